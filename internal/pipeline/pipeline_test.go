package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/songbot/internal/audio"
	"github.com/handiism/songbot/internal/cache"
	"github.com/handiism/songbot/internal/delivery"
	"github.com/handiism/songbot/internal/directive"
	"github.com/handiism/songbot/internal/fetch"
	"github.com/handiism/songbot/internal/links"
	"github.com/handiism/songbot/internal/model"
	"github.com/handiism/songbot/internal/transform"
	"github.com/handiism/songbot/internal/workfile"
)

var frames = bytes.Repeat([]byte{0xff, 0xfb, 0x90, 0x64}, 64)

// fakeRunner answers ffprobe with a 60 second track and makes ffmpeg copy
// its input, tags included.
type fakeRunner struct {
	mu    sync.Mutex
	cuts  [][]string
	probe int
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch name {
	case "ffprobe":
		f.probe++
		return []byte(`{"streams":[{"index":0,"codec_type":"audio"}],"format":{"duration":"60.0"}}`), nil
	case "ffmpeg":
		f.cuts = append(f.cuts, args)
		src, dst := args[indexOf(args, "-i")+1], args[len(args)-1]
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, err
		}
		return nil, os.WriteFile(dst, data, 0o644)
	}
	return nil, fmt.Errorf("unexpected command %s", name)
}

func indexOf(args []string, s string) int {
	for i, a := range args {
		if a == s {
			return i
		}
	}
	return -1
}

type fakeAttachments struct {
	data  []byte
	err   error
	calls atomic.Int32
}

func (f *fakeAttachments) OpenAttachment(_ context.Context, _ model.Attachment) (io.ReadCloser, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

type fakeAssets struct {
	prepared map[string]bool
	err      error
}

func (f *fakeAssets) Prepare(_ context.Context, url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.prepared[url] = true
	return "/thumbs/" + filepath.Base(url), nil
}

func (f *fakeAssets) HasCover(_ context.Context, url string) bool {
	return f.prepared[url]
}

type harness struct {
	t           *testing.T
	workDir     string
	outDir      string
	runner      *fakeRunner
	tool        *audio.Tool
	downloads   atomic.Int32
	failURL     string
	attachments *fakeAttachments
	assets      *fakeAssets
	events      []Event
	pipeline    *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:           t,
		workDir:     t.TempDir(),
		outDir:      t.TempDir(),
		runner:      &fakeRunner{},
		attachments: &fakeAttachments{},
		assets:      &fakeAssets{prepared: make(map[string]bool)},
	}

	store, err := cache.New(cache.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	files, err := workfile.NewManager(h.workDir)
	require.NoError(t, err)
	h.tool, err = audio.NewTool(audio.ToolOptions{Paths: files, Runner: h.runner})
	require.NoError(t, err)

	downloader := fetch.DownloaderFunc(func(_ context.Context, link model.SourceLink, req fetch.DownloadRequest) (fetch.Download, error) {
		h.downloads.Add(1)
		if link.URL == h.failURL {
			return fetch.Download{}, errors.New("video unavailable")
		}
		path := filepath.Join(req.Dir, "audio.mp3")
		if err := os.WriteFile(path, frames, 0o644); err != nil {
			return fetch.Download{}, err
		}
		return fetch.Download{Path: path}, h.tool.Tagger().SaveTags(path, audio.Tags{Title: "Title " + filepath.Base(link.URL), Artist: "Artist"})
	})

	orchestrator, err := fetch.New(fetch.Options{
		Store:       store,
		Files:       files,
		Classifier:  links.NewClassifier(nil, nil),
		Downloader:  downloader,
		Attachments: h.attachments,
		Workers:     2,
	})
	require.NoError(t, err)

	sink, err := delivery.NewDirSink(delivery.Options{Dir: h.outDir, Store: store, Meta: h.tool})
	require.NoError(t, err)

	h.pipeline, err = New(Options{
		Cache:    store,
		CacheTTL: 0,
		Fetcher:  orchestrator,
		Engine:   transform.NewEngine(transform.Options{Tool: h.tool, Files: files}),
		Assets:   h.assets,
		Deliver:  sink,
		Files:    files,
		OnEvent:  func(e Event) { h.events = append(h.events, e) },
	})
	require.NoError(t, err)
	return h
}

func (h *harness) assertWorkDirEmpty() {
	h.t.Helper()
	entries, err := os.ReadDir(h.workDir)
	require.NoError(h.t, err)
	assert.Empty(h.t, entries)
}

func TestHandle_CutEndToEnd(t *testing.T) {
	h := newHarness(t)

	res, err := h.pipeline.Handle(context.Background(), Request{Text: "https://youtu.be/abc123\ncut 0:10 0:20"})
	require.NoError(t, err)
	require.Len(t, res.Delivered, 1)
	assert.Empty(t, res.Errors)
	assert.NotEmpty(t, res.ID)

	require.Len(t, h.runner.cuts, 1)
	args := h.runner.cuts[0]
	assert.Equal(t, "10", args[indexOf(args, "-ss")+1])
	assert.Equal(t, "20", args[indexOf(args, "-to")+1])

	meta, err := h.tool.Tagger().ReadTags(res.Delivered[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "Title abc123", meta.Title)
	assert.Equal(t, "Artist", meta.Artist)
	assert.Equal(t, filepath.Join(h.outDir, "Title abc123.mp3"), res.Delivered[0].Path)

	h.assertWorkDirEmpty()
}

func TestHandle_DuplicateDirectiveFailsBeforeFetch(t *testing.T) {
	h := newHarness(t)

	_, err := h.pipeline.Handle(context.Background(), Request{Text: "https://youtu.be/abc123\ntitle X\ntitle Y"})
	assert.ErrorIs(t, err, directive.ErrDuplicateDirective)
	assert.Zero(t, h.downloads.Load())
	assert.Empty(t, h.runner.cuts)

	require.NotEmpty(t, h.events)
	assert.Equal(t, LevelError, h.events[len(h.events)-1].Level)
	h.assertWorkDirEmpty()
}

func TestHandle_AttachmentOnlyReply(t *testing.T) {
	h := newHarness(t)
	h.attachments.data = frames

	res, err := h.pipeline.Handle(context.Background(), Request{
		Text:   "",
		Parent: &model.Attachment{FileID: "file-1", UniqueID: "unique-1"},
	})
	require.NoError(t, err)
	require.Len(t, res.Delivered, 1)

	data, err := os.ReadFile(res.Delivered[0].Path)
	require.NoError(t, err)
	assert.Equal(t, frames, data)
	assert.Zero(t, h.downloads.Load())
	assert.Empty(t, h.runner.cuts)
	h.assertWorkDirEmpty()

	_, err = h.pipeline.Handle(context.Background(), Request{Parent: &model.Attachment{FileID: "file-1", UniqueID: "unique-1"}})
	require.NoError(t, err)
	assert.Equal(t, int32(1), h.attachments.calls.Load())
}

func TestHandle_AttachmentFailureEndsRequest(t *testing.T) {
	h := newHarness(t)
	h.attachments.err = errors.New("file is gone")

	_, err := h.pipeline.Handle(context.Background(), Request{Parent: &model.Attachment{UniqueID: "u"}})
	assert.ErrorIs(t, err, fetch.ErrFetch)
}

func TestHandle_PartialFetchFailureKeepsOthers(t *testing.T) {
	h := newHarness(t)
	h.failURL = "https://youtu.be/broken"

	res, err := h.pipeline.Handle(context.Background(), Request{Text: "https://youtu.be/one https://youtu.be/broken https://youtu.be/two"})
	require.NoError(t, err)
	require.Len(t, res.Delivered, 2)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], fetch.ErrFetch)
	assert.Equal(t, filepath.Join(h.outDir, "Title one.mp3"), res.Delivered[0].Path)
	assert.Equal(t, filepath.Join(h.outDir, "Title two.mp3"), res.Delivered[1].Path)

	var warnings int
	for _, e := range h.events {
		if e.Level == LevelWarning {
			warnings++
		}
	}
	assert.Equal(t, 1, warnings)
	h.assertWorkDirEmpty()
}

func TestHandle_EditFailureKeepsOthers(t *testing.T) {
	h := newHarness(t)

	// A cut starting past the end of the track is empty.
	res, err := h.pipeline.Handle(context.Background(), Request{Text: "https://youtu.be/one\ncut 70 80"})
	require.NoError(t, err)
	assert.Empty(t, res.Delivered)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], audio.ErrTool)
	h.assertWorkDirEmpty()
}

func TestHandle_PictureNeedsPreparedCover(t *testing.T) {
	h := newHarness(t)
	h.assets.err = errors.New("404")

	_, err := h.pipeline.Handle(context.Background(), Request{Text: "https://youtu.be/abc123", PictureURL: "https://example.com/p.jpg"})
	assert.ErrorIs(t, err, directive.ErrMissingAsset)
	assert.Zero(t, h.downloads.Load())
}

func TestHandle_NothingToDo(t *testing.T) {
	h := newHarness(t)

	res, err := h.pipeline.Handle(context.Background(), Request{Text: "hello there"})
	require.NoError(t, err)
	assert.Empty(t, res.Delivered)
	assert.Empty(t, res.Errors)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
