package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/handiism/songbot/internal/audio"
	"github.com/handiism/songbot/internal/directive"
	"github.com/handiism/songbot/internal/logging"
	"github.com/handiism/songbot/internal/model"
)

// ErrUnknownDirective means the engine was handed a kind it has no step for.
// The parser only produces known kinds, so this is always a bug.
var ErrUnknownDirective = errors.New("unknown directive")

// AudioTool is the set of audio edits the engine drives.
type AudioTool interface {
	ReadMetadata(ctx context.Context, path string) (model.Metadata, error)
	ChangeMetadata(ctx context.Context, path string, field model.Field, value string) error
	SetCover(ctx context.Context, path, imagePath string) error
	Cut(ctx context.Context, path string, start, end model.Offset) (string, error)
}

// CoverResolver maps a picture URL to its prepared thumbnail.
type CoverResolver interface {
	Path(pictureURL string) (string, bool)
}

// FileRemover deletes working files.
type FileRemover interface {
	Remove(paths ...string) error
}

// Options configures an Engine.
type Options struct {
	Tool   AudioTool
	Covers CoverResolver
	Files  FileRemover
	Logger *slog.Logger
}

// Engine applies directive sets to working files.
type Engine struct {
	tool   AudioTool
	covers CoverResolver
	files  FileRemover
	steps  map[directive.Kind]step
	logger *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		tool:   opts.Tool,
		covers: opts.Covers,
		files:  opts.Files,
		logger: logging.OrDiscard(opts.Logger),
	}
	e.steps = map[directive.Kind]step{
		directive.KindTitle:         e.setField,
		directive.KindArtist:        e.setField,
		directive.KindAlbum:         e.setField,
		directive.KindCover:         e.setCover,
		directive.KindReplaceTitle:  e.replaceTitle,
		directive.KindCut:           e.cut,
		directive.KindCutHead:       e.cutHead,
		directive.KindSplitChapters: passThrough,
	}
	return e
}

// step applies one directive to one file and returns the files replacing it.
type step func(ctx context.Context, path string, d directive.Directive) ([]string, error)

// Apply runs every directive of set over files.
//
// A failing edit drops that file and everything derived from it; the other
// files carry on and the failures are returned as a *Failure next to the
// surviving outputs. ErrUnknownDirective aborts the whole run and leaves no
// files behind.
func (e *Engine) Apply(ctx context.Context, files []string, set *directive.Set) ([]string, error) {
	frontier := append([]string(nil), files...)
	if set == nil {
		return frontier, nil
	}

	var failure Failure
	for _, d := range set.Directives() {
		fn, ok := e.steps[d.Kind]
		if !ok {
			e.remove(frontier...)
			return nil, fmt.Errorf("%w: %q", ErrUnknownDirective, d.Kind)
		}

		next := make([]string, 0, len(frontier))
		for _, path := range frontier {
			out, err := fn(ctx, path, d)
			if err != nil {
				e.logger.Warn("transform failed", "directive", string(d.Kind), "file", path, "error", err)
				e.remove(path)
				failure.Errors = append(failure.Errors, &FileError{Path: path, Kind: d.Kind, Err: err})
				continue
			}
			next = append(next, out...)
		}
		e.logger.Debug("directive applied", "directive", string(d.Kind), "in", len(frontier), "out", len(next))
		frontier = next
	}

	if len(failure.Errors) > 0 {
		return frontier, &failure
	}
	return frontier, nil
}

func (e *Engine) setField(ctx context.Context, path string, d directive.Directive) ([]string, error) {
	field, _ := d.Field()
	if err := e.tool.ChangeMetadata(ctx, path, field, d.Value); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (e *Engine) setCover(ctx context.Context, path string, d directive.Directive) ([]string, error) {
	var thumb string
	ok := false
	if e.covers != nil {
		thumb, ok = e.covers.Path(d.CoverURL)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no thumbnail for %s", directive.ErrMissingAsset, d.CoverURL)
	}
	if err := e.tool.SetCover(ctx, path, thumb); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (e *Engine) replaceTitle(ctx context.Context, path string, d directive.Directive) ([]string, error) {
	meta, err := e.tool.ReadMetadata(ctx, path)
	if err != nil {
		return nil, err
	}
	title := directive.ApplyReplacements(meta.Title, d.Replacements)
	if title == meta.Title {
		return []string{path}, nil
	}
	if err := e.tool.ChangeMetadata(ctx, path, model.FieldTitle, title); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// cut replaces the file with the requested range of it.
func (e *Engine) cut(ctx context.Context, path string, d directive.Directive) ([]string, error) {
	out, err := e.tool.Cut(ctx, path, d.Start, d.End)
	if err != nil {
		return nil, err
	}
	e.remove(path)
	return []string{out}, nil
}

// cutHead replaces the file with d.Seconds copies, the i-th missing its first
// i seconds.
func (e *Engine) cutHead(ctx context.Context, path string, d directive.Directive) ([]string, error) {
	n := d.Seconds
	if n <= 0 {
		n = directive.DefaultCutHeadSeconds
	}

	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		cut, err := e.tool.Cut(ctx, path, model.Offset(i), 0)
		if err != nil {
			e.remove(out...)
			return nil, err
		}
		out = append(out, cut)
	}
	e.remove(path)
	return out, nil
}

func passThrough(_ context.Context, path string, _ directive.Directive) ([]string, error) {
	return []string{path}, nil
}

func (e *Engine) remove(paths ...string) {
	if e.files == nil || len(paths) == 0 {
		return
	}
	if err := e.files.Remove(paths...); err != nil {
		e.logger.Warn("remove working files failed", "error", err)
	}
}

// Compile-time check that the ffmpeg-backed tool fits the engine.
var _ AudioTool = (*audio.Tool)(nil)
