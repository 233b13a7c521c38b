package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/handiism/songbot/internal/logging"
	"github.com/handiism/songbot/internal/model"
)

// ErrTool marks a failed edit of an audio file.
var ErrTool = errors.New("audio tool failed")

// PathAllocator hands out fresh paths for files produced by a cut.
type PathAllocator interface {
	NewPath(ext string) string
}

// ToolOptions configures a Tool.
type ToolOptions struct {
	FFmpegPath  string
	FFprobePath string

	// Paths allocates output paths for Cut.
	Paths PathAllocator

	// Runner executes ffmpeg and ffprobe. Defaults to ExecRunner.
	Runner Runner

	Tagger *Tagger
	Logger *slog.Logger
}

// Tool edits audio files. Tags go through id3v2 directly; cuts and duration
// probes shell out to ffmpeg and ffprobe.
type Tool struct {
	ffmpeg  string
	ffprobe string
	paths   PathAllocator
	runner  Runner
	tagger  *Tagger
	logger  *slog.Logger
}

// NewTool creates a Tool.
func NewTool(opts ToolOptions) (*Tool, error) {
	if opts.Paths == nil {
		return nil, errors.New("audio tool needs a path allocator")
	}
	logger := logging.OrDiscard(opts.Logger)

	t := &Tool{
		ffmpeg:  opts.FFmpegPath,
		ffprobe: opts.FFprobePath,
		paths:   opts.Paths,
		runner:  opts.Runner,
		tagger:  opts.Tagger,
		logger:  logger,
	}
	if t.ffmpeg == "" {
		t.ffmpeg = "ffmpeg"
	}
	if t.ffprobe == "" {
		t.ffprobe = "ffprobe"
	}
	if t.runner == nil {
		t.runner = ExecRunner{Logger: logger}
	}
	if t.tagger == nil {
		t.tagger = NewTagger(nil)
	}
	return t, nil
}

// Tagger returns the tagger used for tag edits.
func (t *Tool) Tagger() *Tagger {
	return t.tagger
}

// ReadMetadata returns the tags and duration of the file at path.
func (t *Tool) ReadMetadata(ctx context.Context, path string) (model.Metadata, error) {
	meta, err := t.tagger.ReadTags(path)
	if err != nil {
		return model.Metadata{}, err
	}
	result, err := probe(ctx, t.runner, t.ffprobe, path)
	if err != nil {
		return model.Metadata{}, err
	}
	if result.AudioStreamCount() == 0 {
		return model.Metadata{}, fmt.Errorf("%w: %s has no audio stream", ErrTool, filepath.Base(path))
	}
	meta.Duration = result.Duration()
	return meta, nil
}

// ChangeMetadata rewrites one tag field in place.
func (t *Tool) ChangeMetadata(_ context.Context, path string, field model.Field, value string) error {
	t.logger.Debug("changing tag", "file", filepath.Base(path), "field", string(field))
	return t.tagger.SetField(path, field, value)
}

// SetCover embeds the JPEG at imagePath as the front cover.
func (t *Tool) SetCover(_ context.Context, path, imagePath string) error {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("%w: read cover %s: %v", ErrTool, imagePath, err)
	}
	return t.tagger.SetCover(path, data)
}

// Cut writes the part of path between start and end into a new file and
// returns its path. The source is left untouched. A negative start counts
// back from the end of the track, and an end of zero or below does too, so
// "cut 5 0" drops the first five seconds. Tags and cover are carried over.
func (t *Tool) Cut(ctx context.Context, path string, start, end model.Offset) (string, error) {
	meta, err := t.ReadMetadata(ctx, path)
	if err != nil {
		return "", err
	}
	total := meta.Duration

	from := start.ResolveStart(total)
	to := end.ResolveEnd(total)
	if to <= from {
		return "", fmt.Errorf("%w: empty cut range %s-%s of a %s track", ErrTool, from, to, total)
	}

	dst := t.paths.NewPath(filepath.Ext(path))
	args := []string{"-y", "-v", "error", "-ss", formatSeconds(from)}
	// Cuts that run to the end leave -to off so ffmpeg keeps the fractional tail.
	if to < total {
		args = append(args, "-to", formatSeconds(to))
	}
	args = append(args,
		"-i", path,
		"-map", "0",
		"-c", "copy",
		"-id3v2_version", "3",
		dst,
	)
	if _, err := t.runner.Run(ctx, t.ffmpeg, args...); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("%w: ffmpeg cut %s: %v", ErrTool, filepath.Base(path), err)
	}
	if _, err := os.Stat(dst); err != nil {
		return "", fmt.Errorf("%w: ffmpeg produced no output for %s", ErrTool, filepath.Base(path))
	}

	t.logger.Debug("cut audio", "file", filepath.Base(path), "from", from, "to", to)
	return dst, nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
