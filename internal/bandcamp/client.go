package bandcamp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/handiism/songbot/internal/audio"
	"github.com/handiism/songbot/internal/fetch"
	"github.com/handiism/songbot/internal/http"
	ioutils "github.com/handiism/songbot/internal/io"
	"github.com/handiism/songbot/internal/logging"
	"github.com/handiism/songbot/internal/model"
)

// ErrNotStreamable is returned for tracks without a free MP3 stream.
var ErrNotStreamable = errors.New("track has no streamable file")

// Options configures a Client.
type Options struct {
	HTTP   *http.Client
	Tagger *audio.Tagger
	Images *ioutils.ImageService

	// ThumbnailSize is the edge of the square cover embedded into downloads.
	ThumbnailSize int

	// MaxRetries, RetryCooldown (seconds) and RetryExponent control the
	// backoff between failed attempts: cooldown * exponent^attempt.
	MaxRetries    int
	RetryCooldown float64
	RetryExponent float64

	Logger *slog.Logger
}

// Client downloads Bandcamp tracks and expands Bandcamp albums natively,
// without yt-dlp.
type Client struct {
	http   *http.Client
	parser *Parser
	tagger *audio.Tagger
	images *ioutils.ImageService
	opts   Options
	logger *slog.Logger
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	if opts.HTTP == nil {
		opts.HTTP = http.NewClient()
	}
	if opts.Tagger == nil {
		opts.Tagger = audio.NewTagger(nil)
	}
	if opts.Images == nil {
		opts.Images = ioutils.NewImageService()
	}
	if opts.ThumbnailSize <= 0 {
		opts.ThumbnailSize = 300
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	return &Client{
		http:   opts.HTTP,
		parser: NewParser(),
		tagger: opts.Tagger,
		images: opts.Images,
		opts:   opts,
		logger: logging.OrDiscard(opts.Logger),
	}
}

// FetchRelease downloads and parses an album or track page.
func (c *Client) FetchRelease(ctx context.Context, pageURL string) (*model.Release, error) {
	var html string
	err := c.retry(ctx, pageURL, func() error {
		var err error
		html, err = c.http.GetString(ctx, pageURL)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	return c.parser.ParseReleasePage(html, pageURL)
}

// ExpandPlaylist implements links.Expander for album pages. Track page URLs
// are returned in album order.
func (c *Client) ExpandPlaylist(ctx context.Context, playlist model.SourceLink) ([]string, error) {
	release, err := c.FetchRelease(ctx, playlist.URL)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(release.Tracks))
	for _, track := range release.Tracks {
		if track.PageURL != "" {
			urls = append(urls, track.PageURL)
		}
	}
	c.logger.Debug("bandcamp album expanded", "url", playlist.URL, "tracks", len(urls))
	return urls, nil
}

// Download implements fetch.Downloader for track pages. Chapter splitting is
// not supported here; route chapter requests to yt-dlp.
func (c *Client) Download(ctx context.Context, link model.SourceLink, req fetch.DownloadRequest) (fetch.Download, error) {
	if req.SplitChapters {
		return fetch.Download{}, errors.New("bandcamp downloader cannot split chapters")
	}

	release, err := c.FetchRelease(ctx, link.URL)
	if err != nil {
		return fetch.Download{}, err
	}
	if len(release.Tracks) == 0 || release.Tracks[0].Mp3URL == "" {
		return fetch.Download{}, fmt.Errorf("%s: %w", link.URL, ErrNotStreamable)
	}
	track := release.Tracks[0]

	path := filepath.Join(req.Dir, "audio.mp3")
	err = c.retry(ctx, track.Title, func() error {
		body, err := c.http.Open(ctx, track.Mp3URL)
		if err != nil {
			return err
		}
		defer body.Close()
		return ioutils.WriteFileAtomic(ctx, path, body)
	})
	if err != nil {
		return fetch.Download{}, fmt.Errorf("download %s: %w", track.Title, err)
	}

	tags := audio.Tags{
		Title:       track.Title,
		Artist:      release.Artist,
		AlbumArtist: release.Artist,
		Year:        release.Year(),
		TrackNumber: track.Number,
		Lyrics:      track.Lyrics,
		Cover:       c.artwork(ctx, release),
	}
	if release.Title != track.Title {
		tags.Album = release.Title
	}
	if err := c.tagger.SaveTags(path, tags); err != nil {
		return fetch.Download{}, err
	}

	c.logger.Info("bandcamp track downloaded", "url", link.URL, "title", track.Title)
	return fetch.Download{Path: path}, nil
}

// artwork returns the release cover as a square JPEG, or nil when it is
// missing or cannot be fetched.
func (c *Client) artwork(ctx context.Context, release *model.Release) []byte {
	if !release.HasArtwork() {
		return nil
	}

	var data []byte
	err := c.retry(ctx, release.ArtworkURL, func() error {
		var err error
		data, err = c.http.DownloadBytes(ctx, release.ArtworkURL)
		return err
	})
	if err != nil {
		c.logger.Warn("artwork download failed", "url", release.ArtworkURL, "error", err)
		return nil
	}

	cover, err := c.images.SquareThumbnail(ctx, data, c.opts.ThumbnailSize)
	if err != nil {
		c.logger.Warn("artwork not usable", "url", release.ArtworkURL, "error", err)
		return nil
	}
	return cover
}

// retry runs fn up to MaxRetries times, waiting between attempts.
func (c *Client) retry(ctx context.Context, what string, fn func() error) error {
	var err error
	for tries := 0; tries < c.opts.MaxRetries; tries++ {
		if err = fn(); err == nil {
			return nil
		}
		if tries+1 == c.opts.MaxRetries {
			break
		}
		c.logger.Warn("retrying", "target", what, "attempt", tries+1, "max", c.opts.MaxRetries, "error", err)
		if !c.waitForRetry(ctx, tries) {
			return ctx.Err()
		}
	}
	return err
}

// waitForRetry sleeps for the backoff of attempt tries. It returns false when
// ctx ends first.
func (c *Client) waitForRetry(ctx context.Context, tries int) bool {
	cooldown := c.opts.RetryCooldown * math.Pow(c.opts.RetryExponent, float64(tries))
	select {
	case <-ctx.Done():
		return false
	case <-time.After(time.Duration(cooldown * float64(time.Second))):
		return true
	}
}
