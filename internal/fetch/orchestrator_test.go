package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/songbot/internal/cache"
	"github.com/handiism/songbot/internal/model"
	"github.com/handiism/songbot/internal/workfile"
)

type staticClassifier []model.SourceLink

func (s staticClassifier) Classify(context.Context, string) []model.SourceLink {
	return s
}

// fakeDownloader writes the link URL as the file content. Links listed in
// fail return an error, and delays make completion order differ from
// submission order.
type fakeDownloader struct {
	fail     map[string]bool
	delay    map[string]time.Duration
	chapters int
	calls    atomic.Int32
}

func (f *fakeDownloader) Download(_ context.Context, link model.SourceLink, req DownloadRequest) (Download, error) {
	f.calls.Add(1)
	time.Sleep(f.delay[link.URL])
	if f.fail[link.URL] {
		return Download{}, errors.New("yt-dlp exited with status 1")
	}

	path := filepath.Join(req.Dir, "audio.mp3")
	if err := os.WriteFile(path, []byte(link.URL), 0o644); err != nil {
		return Download{}, err
	}
	dl := Download{Path: path}
	if req.SplitChapters {
		for i := 1; i <= f.chapters; i++ {
			ch := fmt.Sprintf("%s.%d.chapter.mp3", path, i)
			if err := os.WriteFile(ch, []byte(fmt.Sprintf("%s#%d", link.URL, i)), 0o644); err != nil {
				return Download{}, err
			}
			dl.Chapters = append(dl.Chapters, ch)
		}
	}
	return dl, nil
}

type fakeAttachments struct {
	content string
	err     error
	calls   int
}

func (f *fakeAttachments) OpenAttachment(context.Context, model.Attachment) (io.ReadCloser, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.content)), nil
}

type fixture struct {
	store *cache.Store
	files *workfile.Manager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store, err := cache.New(cache.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	files, err := workfile.NewManager(t.TempDir())
	require.NoError(t, err)
	return fixture{store: store, files: files}
}

func (f fixture) orchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	opts.Store = f.store
	opts.Files = f.files
	o, err := New(opts)
	require.NoError(t, err)
	return o
}

func song(url string) model.SourceLink {
	return model.SourceLink{URL: url, Platform: model.PlatformYouTube, Kind: model.KindSong}
}

func contents(t *testing.T, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		out[i] = string(data)
	}
	return out
}

func TestNew_RequiresStoreAndFiles(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestDefaultWorkers(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultWorkers(), 1)
}

func TestNew_ZeroWorkersUsesDefault(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, DefaultWorkers(), f.orchestrator(t, Options{}).workers)
	assert.Equal(t, 4, f.orchestrator(t, Options{Workers: 4}).workers)
}

func TestFetchLinks_PartialFailure(t *testing.T) {
	f := newFixture(t)
	links := []model.SourceLink{song("https://youtu.be/a"), song("https://youtu.be/b"), song("https://youtu.be/c")}
	dl := &fakeDownloader{fail: map[string]bool{"https://youtu.be/b": true}}

	var mu sync.Mutex
	var reported []error
	o := f.orchestrator(t, Options{
		Downloader: dl,
		Workers:    3,
		Report: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, err)
		},
	})

	files, err := o.FetchLinks(context.Background(), links, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	require.Len(t, failure.Errors, 1)
	assert.Equal(t, "https://youtu.be/b", failure.Errors[0].Link.URL)
	assert.Equal(t, 3, failure.Total)

	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], ErrFetch)

	assert.Equal(t, []string{"https://youtu.be/a", "https://youtu.be/c"}, contents(t, files))
	for _, p := range files {
		assert.True(t, f.files.Owns(p))
	}
}

func TestFetchLinks_KeepsLinkOrder(t *testing.T) {
	f := newFixture(t)
	links := []model.SourceLink{song("https://youtu.be/slow"), song("https://youtu.be/mid"), song("https://youtu.be/fast")}
	dl := &fakeDownloader{delay: map[string]time.Duration{
		"https://youtu.be/slow": 60 * time.Millisecond,
		"https://youtu.be/mid":  30 * time.Millisecond,
	}}
	o := f.orchestrator(t, Options{Downloader: dl, Workers: 3})

	files, err := o.FetchLinks(context.Background(), links, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://youtu.be/slow", "https://youtu.be/mid", "https://youtu.be/fast"}, contents(t, files))
}

func TestFetchLinks_CacheHitSkipsDownload(t *testing.T) {
	f := newFixture(t)
	link := song("https://youtu.be/a")
	entry, err := f.store.Put(context.Background(), cache.KeyForURL(link.URL), strings.NewReader("cached"))
	require.NoError(t, err)

	dl := &fakeDownloader{}
	o := f.orchestrator(t, Options{Downloader: dl})

	files, err := o.FetchLinks(context.Background(), []model.SourceLink{link, link}, false)
	require.NoError(t, err)
	assert.Zero(t, dl.calls.Load())
	require.Len(t, files, 2)
	assert.NotEqual(t, files[0], files[1])
	for _, p := range files {
		assert.NotEqual(t, entry, p)
	}
	assert.Equal(t, []string{"cached", "cached"}, contents(t, files))
}

func TestFetchLinks_MissPopulatesCache(t *testing.T) {
	f := newFixture(t)
	link := song("https://youtu.be/a")
	o := f.orchestrator(t, Options{Downloader: &fakeDownloader{}})

	files, err := o.FetchLinks(context.Background(), []model.SourceLink{link}, false)
	require.NoError(t, err)
	require.Len(t, files, 1)

	entry, ok := f.store.Get(cache.KeyForURL(link.URL + "?list=PL1"))
	require.True(t, ok)
	assert.NotEqual(t, entry, files[0])

	require.NoError(t, os.WriteFile(files[0], []byte("edited"), 0o644))
	assert.Equal(t, []string{link.URL}, contents(t, []string{entry}))

	leftovers, err := filepath.Glob(filepath.Join(f.files.Dir(), "dl-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFetchLinks_SplitChaptersRefetches(t *testing.T) {
	f := newFixture(t)
	link := song("https://youtu.be/a")
	_, err := f.store.Put(context.Background(), cache.KeyForURL(link.URL), strings.NewReader("stale"))
	require.NoError(t, err)

	dl := &fakeDownloader{chapters: 3}
	o := f.orchestrator(t, Options{Downloader: dl})

	files, err := o.FetchLinks(context.Background(), []model.SourceLink{link}, true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), dl.calls.Load())
	assert.Equal(t, []string{link.URL + "#1", link.URL + "#2", link.URL + "#3"}, contents(t, files))

	entry, ok := f.store.Get(cache.KeyForURL(link.URL))
	require.True(t, ok)
	assert.Equal(t, []string{link.URL}, contents(t, []string{entry}))
}

func TestFetchLinks_SplitWithoutChaptersFallsBackToWholeFile(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t, Options{Downloader: &fakeDownloader{}})

	files, err := o.FetchLinks(context.Background(), []model.SourceLink{song("https://youtu.be/a")}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://youtu.be/a"}, contents(t, files))
}

func TestFetchTargets_AttachmentWins(t *testing.T) {
	f := newFixture(t)
	att := &fakeAttachments{content: "attached"}
	dl := &fakeDownloader{}
	o := f.orchestrator(t, Options{
		Classifier:  staticClassifier{song("https://youtu.be/a")},
		Downloader:  dl,
		Attachments: att,
	})
	parent := &model.Attachment{FileID: "file-1", UniqueID: "uniq-1"}

	files, err := o.FetchTargets(context.Background(), Request{Text: "https://youtu.be/a", Parent: parent})
	require.NoError(t, err)
	assert.Equal(t, []string{"attached"}, contents(t, files))
	assert.Zero(t, dl.calls.Load())
	assert.Equal(t, 1, att.calls)

	files, err = o.FetchTargets(context.Background(), Request{Parent: parent})
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, 1, att.calls)
	assert.True(t, f.store.Has(cache.KeyForFileID("uniq-1")))
}

func TestFetchTargets_AttachmentFailure(t *testing.T) {
	f := newFixture(t)
	var reported []error
	o := f.orchestrator(t, Options{
		Attachments: &fakeAttachments{err: errors.New("network down")},
		Report:      func(err error) { reported = append(reported, err) },
	})

	files, err := o.FetchTargets(context.Background(), Request{Parent: &model.Attachment{UniqueID: "u"}})
	assert.ErrorIs(t, err, ErrFetch)
	assert.Empty(t, files)
	assert.Empty(t, reported)
}

func TestFetchTargets_ClassifiesText(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t, Options{
		Classifier: staticClassifier{song("https://youtu.be/a"), song("https://youtu.be/b")},
		Downloader: &fakeDownloader{},
	})

	files, err := o.FetchTargets(context.Background(), Request{Text: "ignored by the fake"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://youtu.be/a", "https://youtu.be/b"}, contents(t, files))
}

func TestFetchTargets_NoLinks(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t, Options{Classifier: staticClassifier{}})

	files, err := o.FetchTargets(context.Background(), Request{Text: "title only"})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestPlatformDownloaders_Routing(t *testing.T) {
	var used []string
	named := func(name string) Downloader {
		return DownloaderFunc(func(context.Context, model.SourceLink, DownloadRequest) (Download, error) {
			used = append(used, name)
			return Download{}, nil
		})
	}
	p := PlatformDownloaders{
		ByPlatform:      map[model.Platform]Downloader{model.PlatformBandcamp: named("bandcamp")},
		Fallback:        named("ytdlp"),
		ChapterFallback: true,
	}
	bc := model.SourceLink{Platform: model.PlatformBandcamp}
	sc := model.SourceLink{Platform: model.PlatformSoundCloud}

	_, _ = p.Download(context.Background(), bc, DownloadRequest{})
	_, _ = p.Download(context.Background(), sc, DownloadRequest{})
	_, _ = p.Download(context.Background(), bc, DownloadRequest{SplitChapters: true})
	assert.Equal(t, []string{"bandcamp", "ytdlp", "ytdlp"}, used)

	_, err := PlatformDownloaders{}.Download(context.Background(), bc, DownloadRequest{})
	assert.Error(t, err)
}
