package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/songbot/internal/audio"
	"github.com/handiism/songbot/internal/fetch"
	"github.com/handiism/songbot/internal/model"
)

type fakeRunner struct {
	args  []string
	out   []byte
	err   error
	onRun func(args []string) error
}

func (f *fakeRunner) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	f.args = args
	if f.onRun != nil {
		if err := f.onRun(args); err != nil {
			return nil, err
		}
	}
	return f.out, f.err
}

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func fakeMP3() []byte {
	return bytes.Repeat([]byte{0xff, 0xfb, 0x90, 0x64}, 64)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// simulateDownload writes what yt-dlp leaves behind: the audio, the info
// sidecar, a thumbnail and, when asked, chapter files.
func simulateDownload(t *testing.T, infoJSON string, chapters int) func([]string) error {
	return func(args []string) error {
		output := argAfter(args, "--output")
		stem := strings.TrimSuffix(output, ".mp3")
		require.NoError(t, os.WriteFile(output, fakeMP3(), 0o644))
		require.NoError(t, os.WriteFile(stem+".info.json", []byte(infoJSON), 0o644))
		require.NoError(t, os.WriteFile(stem+".png", pngBytes(t, 64, 32), 0o644))
		for i := 1; i <= chapters; i++ {
			require.NoError(t, os.WriteFile(output+"."+string(rune('0'+i))+".chapter.mp3", fakeMP3(), 0o644))
		}
		return nil
	}
}

func TestDownload_TagsAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{onRun: simulateDownload(t, `{"title":"Song","album":"Record","artist":"Band"}`, 0)}
	c := NewClient(Options{Runner: runner, ThumbnailSize: 16})

	dl, err := c.Download(context.Background(), model.SourceLink{URL: "https://youtu.be/a"}, fetch.DownloadRequest{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, outputName), dl.Path)
	assert.Empty(t, dl.Chapters)

	assert.Contains(t, runner.args, "--extract-audio")
	assert.NotContains(t, runner.args, "--split-chapters")
	assert.Equal(t, "https://youtu.be/a", runner.args[len(runner.args)-1])

	tagger := audio.NewTagger(nil)
	meta, err := tagger.ReadTags(dl.Path)
	require.NoError(t, err)
	assert.Equal(t, model.Metadata{Title: "Song", Artist: "Band", Album: "Record"}, meta)

	cover, err := tagger.ReadCover(dl.Path)
	require.NoError(t, err)
	assert.NotEmpty(t, cover)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, outputName, entries[0].Name())
}

func TestDownload_Chapters(t *testing.T) {
	dir := t.TempDir()
	info := `{"title":"Mix","chapters":[{"title":"Second","start_time":60},{"title":"First","start_time":0}]}`
	runner := &fakeRunner{onRun: simulateDownload(t, info, 2)}
	c := NewClient(Options{Runner: runner})

	dl, err := c.Download(context.Background(), model.SourceLink{URL: "https://youtu.be/a"}, fetch.DownloadRequest{Dir: dir, SplitChapters: true})
	require.NoError(t, err)
	assert.Contains(t, runner.args, "--split-chapters")
	require.Len(t, dl.Chapters, 2)

	tagger := audio.NewTagger(nil)
	for i, want := range []string{"First", "Second"} {
		meta, err := tagger.ReadTags(dl.Chapters[i])
		require.NoError(t, err)
		assert.Equal(t, want, meta.Title)
	}
}

func TestDownload_Failure(t *testing.T) {
	c := NewClient(Options{Runner: &fakeRunner{err: errors.New("exit status 1")}})

	_, err := c.Download(context.Background(), model.SourceLink{URL: "https://youtu.be/a"}, fetch.DownloadRequest{Dir: t.TempDir()})
	assert.Error(t, err)

	_, err = c.Download(context.Background(), model.SourceLink{URL: "https://youtu.be/a"}, fetch.DownloadRequest{})
	assert.Error(t, err)
}

func TestExpandPlaylist(t *testing.T) {
	out := strings.Join([]string{
		`{"webpage_url":"https://www.youtube.com/watch?v=b"}`,
		`not json`,
		`{"webpage_url":"https://www.youtube.com/watch?v=a"}`,
		`{"url":"https://www.youtube.com/playlist?list=PL2"}`,
		`{"webpage_url":"http://insecure/x"}`,
		``,
	}, "\n")
	runner := &fakeRunner{out: []byte(out)}
	c := NewClient(Options{Runner: runner, ProxyURL: "socks5://localhost:1080"})

	urls, err := c.ExpandPlaylist(context.Background(), model.SourceLink{URL: "https://www.youtube.com/playlist?list=PL1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.youtube.com/watch?v=b", "https://www.youtube.com/watch?v=a"}, urls)
	assert.Equal(t, "socks5://localhost:1080", argAfter(runner.args, "--proxy"))
	assert.Contains(t, runner.args, "--flat-playlist")
}

func TestExpandPlaylist_PartialOutputOnError(t *testing.T) {
	runner := &fakeRunner{out: []byte(`{"webpage_url":"https://youtu.be/a"}`), err: errors.New("exit status 1")}
	c := NewClient(Options{Runner: runner})

	urls, err := c.ExpandPlaylist(context.Background(), model.SourceLink{URL: "https://soundcloud.com/a/sets/b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://youtu.be/a"}, urls)

	runner.out = nil
	_, err = c.ExpandPlaylist(context.Background(), model.SourceLink{URL: "https://soundcloud.com/a/sets/b"})
	assert.Error(t, err)
}

func TestCommonArgs_MissingCookies(t *testing.T) {
	c := NewClient(Options{Runner: &fakeRunner{}, CookiesPath: filepath.Join(t.TempDir(), "missing.txt")})
	_, err := c.ExpandPlaylist(context.Background(), model.SourceLink{URL: "https://x"})
	assert.Error(t, err)
}

func TestFormatRateLimitMBps(t *testing.T) {
	assert.Equal(t, "10M", formatRateLimitMBps(10))
	assert.Equal(t, "2.5M", formatRateLimitMBps(2.5))
}

func TestDependencyReport_Check(t *testing.T) {
	assert.NoError(t, DependencyReport{YTDLPFound: true, FFmpegFound: true, FFprobeFound: true}.CheckDependencies())
	assert.Error(t, DependencyReport{YTDLPFound: true}.CheckDependencies())
}
