package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/handiism/songbot/internal/audio"
	"github.com/handiism/songbot/internal/fetch"
	ioutils "github.com/handiism/songbot/internal/io"
	"github.com/handiism/songbot/internal/logging"
	"github.com/handiism/songbot/internal/model"
)

// outputName is the file yt-dlp writes inside the scratch directory.
const outputName = "audio.mp3"

// Options configures a Client.
type Options struct {
	Path               string
	FFmpegPath         string
	CookiesPath        string
	CookiesFromBrowser string
	ProxyURL           string
	DownloadLimitMBps  float64

	// ThumbnailSize is the edge of the square cover embedded into downloads.
	ThumbnailSize int

	Runner audio.Runner
	Tagger *audio.Tagger
	Images *ioutils.ImageService
	Logger *slog.Logger
}

// Client runs yt-dlp.
type Client struct {
	opts   Options
	runner audio.Runner
	tagger *audio.Tagger
	images *ioutils.ImageService
	logger *slog.Logger
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	if opts.Path == "" {
		opts.Path = "yt-dlp"
	}
	if opts.ThumbnailSize <= 0 {
		opts.ThumbnailSize = 300
	}
	logger := logging.OrDiscard(opts.Logger)
	c := &Client{opts: opts, runner: opts.Runner, tagger: opts.Tagger, images: opts.Images, logger: logger}
	if c.runner == nil {
		c.runner = audio.ExecRunner{Logger: logger}
	}
	if c.tagger == nil {
		c.tagger = audio.NewTagger(nil)
	}
	if c.images == nil {
		c.images = ioutils.NewImageService()
	}
	return c
}

// info is the subset of the .info.json sidecar used for tagging.
type info struct {
	Title    string    `json:"title"`
	Album    string    `json:"album"`
	Artist   string    `json:"artist"`
	Chapters []chapter `json:"chapters"`
}

type chapter struct {
	Title     string  `json:"title"`
	StartTime float64 `json:"start_time"`
}

func (c *Client) commonArgs() ([]string, error) {
	var args []string
	if strings.TrimSpace(c.opts.FFmpegPath) != "" {
		args = append(args, "--ffmpeg-location", c.opts.FFmpegPath)
	}
	if strings.TrimSpace(c.opts.CookiesPath) != "" {
		cookiesPath, err := resolveCookiesPath(c.opts.CookiesPath)
		if err != nil {
			return nil, err
		}
		args = append(args, "--cookies", cookiesPath)
	}
	if strings.TrimSpace(c.opts.CookiesFromBrowser) != "" {
		args = append(args, "--cookies-from-browser", c.opts.CookiesFromBrowser)
	}
	if strings.TrimSpace(c.opts.ProxyURL) != "" {
		args = append(args, "--proxy", strings.TrimSpace(c.opts.ProxyURL))
	}
	return args, nil
}

// Download implements fetch.Downloader. The audio is extracted to MP3, its
// thumbnail becomes a square JPEG cover, and the title and album come from
// the info sidecar. With chapters requested, each chapter file is tagged with
// its own title, in chapter start order.
func (c *Client) Download(ctx context.Context, link model.SourceLink, req fetch.DownloadRequest) (fetch.Download, error) {
	if strings.TrimSpace(link.URL) == "" {
		return fetch.Download{}, errors.New("video URL is required")
	}
	if strings.TrimSpace(req.Dir) == "" {
		return fetch.Download{}, errors.New("output directory is required")
	}

	output := filepath.Join(req.Dir, outputName)
	args := []string{
		"-f", "bestaudio/best",
		"--extract-audio",
		"--write-thumbnail",
		"--write-info-json",
		"--no-write-comments",
		"--no-playlist",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"--output", output,
	}
	if req.SplitChapters {
		args = append(args, "--split-chapters", "--output", "chapter:"+output+".%(section_number)s.chapter.mp3")
	}
	if c.opts.DownloadLimitMBps > 0 {
		args = append(args, "--limit-rate", formatRateLimitMBps(c.opts.DownloadLimitMBps))
	}
	extra, err := c.commonArgs()
	if err != nil {
		return fetch.Download{}, err
	}
	args = append(args, extra...)
	args = append(args, link.URL)

	c.logger.Info("yt-dlp download", "url", link.URL, "chapters", req.SplitChapters)
	if _, err := c.runner.Run(ctx, c.opts.Path, args...); err != nil {
		return fetch.Download{}, fmt.Errorf("yt-dlp failed: %w", err)
	}
	if !ioutils.Exists(output) {
		return fetch.Download{}, fmt.Errorf("yt-dlp produced no audio for %s", link.URL)
	}

	meta, infoPath, err := readInfo(output)
	if err != nil {
		return fetch.Download{}, err
	}
	cover, thumbs := c.prepareThumbnail(ctx, output)
	defer func() {
		_ = os.Remove(infoPath)
		for _, t := range thumbs {
			_ = os.Remove(t)
		}
	}()

	if err := c.tag(output, meta.Title, meta, cover); err != nil {
		return fetch.Download{}, err
	}
	result := fetch.Download{Path: output}
	if !req.SplitChapters {
		return result, nil
	}

	chapters := append([]chapter(nil), meta.Chapters...)
	sort.SliceStable(chapters, func(i, j int) bool { return chapters[i].StartTime < chapters[j].StartTime })
	for i, ch := range chapters {
		path := fmt.Sprintf("%s.%d.chapter.mp3", output, i+1)
		if !ioutils.Exists(path) {
			c.logger.Warn("chapter file missing", "url", link.URL, "chapter", i+1)
			continue
		}
		if err := c.tag(path, ch.Title, meta, cover); err != nil {
			return fetch.Download{}, err
		}
		result.Chapters = append(result.Chapters, path)
	}
	return result, nil
}

func (c *Client) tag(path, title string, meta info, cover []byte) error {
	err := c.tagger.SaveTags(path, audio.Tags{
		Title:  title,
		Artist: meta.Artist,
		Album:  meta.Album,
		Cover:  cover,
	})
	if err != nil {
		return fmt.Errorf("tag %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readInfo finds and decodes the <stem>.info.json sidecar of output.
func readInfo(output string) (info, string, error) {
	stem := strings.TrimSuffix(output, filepath.Ext(output))
	path := stem + ".info.json"
	data, err := os.ReadFile(path)
	if err != nil {
		return info{}, "", fmt.Errorf("read yt-dlp info: %w", err)
	}
	var meta info
	if err := json.Unmarshal(data, &meta); err != nil {
		return info{}, path, fmt.Errorf("parse yt-dlp info: %w", err)
	}
	return meta, path, nil
}

// prepareThumbnail converts the thumbnail yt-dlp wrote next to output into a
// square JPEG. It returns the paths of every thumbnail file for cleanup. A
// missing or undecodable thumbnail yields no cover.
func (c *Client) prepareThumbnail(ctx context.Context, output string) ([]byte, []string) {
	stem := strings.TrimSuffix(output, filepath.Ext(output))
	matches, err := filepath.Glob(stem + ".*")
	if err != nil {
		return nil, nil
	}

	var thumbs []string
	for _, m := range matches {
		if strings.HasSuffix(m, ".info.json") || strings.HasSuffix(m, ".mp3") {
			continue
		}
		thumbs = append(thumbs, m)
	}
	if len(thumbs) == 0 {
		c.logger.Info("no thumbnail found", "file", filepath.Base(output))
		return nil, nil
	}

	for _, t := range thumbs {
		data, err := os.ReadFile(t)
		if err != nil {
			continue
		}
		cover, err := c.images.SquareThumbnail(ctx, data, c.opts.ThumbnailSize)
		if err != nil {
			c.logger.Debug("thumbnail not usable", "file", filepath.Base(t), "error", err)
			continue
		}
		return cover, thumbs
	}
	return nil, thumbs
}

// ExpandPlaylist implements links.Expander. yt-dlp lists the playlist
// without downloading; a non-zero exit still yields whatever entries were
// printed before it.
func (c *Client) ExpandPlaylist(ctx context.Context, playlist model.SourceLink) ([]string, error) {
	if strings.TrimSpace(playlist.URL) == "" {
		return nil, errors.New("source URL is required")
	}
	args := []string{"--skip-download", "--flat-playlist", "-j"}
	extra, err := c.commonArgs()
	if err != nil {
		return nil, err
	}
	args = append(args, extra...)
	args = append(args, playlist.URL)

	out, runErr := c.runner.Run(ctx, c.opts.Path, args...)
	urls := parseFlatPlaylist(out)
	if runErr != nil {
		if len(urls) == 0 {
			return nil, fmt.Errorf("yt-dlp failed: %w", runErr)
		}
		c.logger.Warn("yt-dlp playlist listing incomplete", "url", playlist.URL, "error", runErr)
	}
	return urls, nil
}

// parseFlatPlaylist reads one JSON object per line and keeps secure entry
// URLs that are not playlists themselves, in listing order.
func parseFlatPlaylist(out []byte) []string {
	var urls []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry struct {
			WebpageURL string `json:"webpage_url"`
			URL        string `json:"url"`
		}
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		u := entry.WebpageURL
		if u == "" {
			u = entry.URL
		}
		if strings.HasPrefix(u, "https") && !strings.Contains(u, "playlist") {
			urls = append(urls, u)
		}
	}
	return urls
}

// DependencyReport tells which external tools are available.
type DependencyReport struct {
	YTDLPFound   bool   `json:"yt_dlp_found"`
	YTDLPPath    string `json:"yt_dlp_path,omitempty"`
	FFmpegFound  bool   `json:"ffmpeg_found"`
	FFmpegPath   string `json:"ffmpeg_path,omitempty"`
	FFprobeFound bool   `json:"ffprobe_found"`
	FFprobePath  string `json:"ffprobe_path,omitempty"`
}

// DependencyStatus looks the given binaries up on PATH. Empty names use the
// defaults.
func DependencyStatus(ytdlp, ffmpeg, ffprobe string) DependencyReport {
	report := DependencyReport{}
	if path, err := exec.LookPath(orDefault(ytdlp, "yt-dlp")); err == nil {
		report.YTDLPFound = true
		report.YTDLPPath = path
	}
	if path, err := exec.LookPath(orDefault(ffmpeg, "ffmpeg")); err == nil {
		report.FFmpegFound = true
		report.FFmpegPath = path
	}
	if path, err := exec.LookPath(orDefault(ffprobe, "ffprobe")); err == nil {
		report.FFprobeFound = true
		report.FFprobePath = path
	}
	return report
}

// CheckDependencies fails when a required tool is missing.
func (r DependencyReport) CheckDependencies() error {
	var errs []error
	if !r.YTDLPFound {
		errs = append(errs, errors.New("missing dependency: yt-dlp is not installed or not on PATH"))
	}
	if !r.FFmpegFound {
		errs = append(errs, errors.New("missing dependency: ffmpeg is required for audio extraction and cuts"))
	}
	if !r.FFprobeFound {
		errs = append(errs, errors.New("missing dependency: ffprobe is required to read track durations"))
	}
	return errors.Join(errs...)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func formatRateLimitMBps(v float64) string {
	return fmt.Sprintf("%gM", v)
}

func resolveCookiesPath(path string) (string, error) {
	p := strings.TrimSpace(path)
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve cookies path %s: %w", p, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("cookies file %s: %w", abs, err)
	}
	return abs, nil
}
