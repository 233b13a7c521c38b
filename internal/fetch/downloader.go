package fetch

import (
	"context"
	"fmt"
	"io"

	"github.com/handiism/songbot/internal/model"
)

// DownloadRequest tells a Downloader where to put its output.
type DownloadRequest struct {
	// Dir is an empty scratch directory owned by the caller. It is removed
	// after the download has been cached.
	Dir string

	// SplitChapters asks for one extra file per chapter.
	SplitChapters bool
}

// Download is a finished download. Path is the whole track, tagged and with
// its cover embedded. Chapters holds the per-chapter files in chapter order
// when they were requested and the source has chapters.
type Download struct {
	Path     string
	Chapters []string
}

// Downloader retrieves the audio of a song link.
type Downloader interface {
	Download(ctx context.Context, link model.SourceLink, req DownloadRequest) (Download, error)
}

// DownloaderFunc adapts a function to the Downloader interface.
type DownloaderFunc func(ctx context.Context, link model.SourceLink, req DownloadRequest) (Download, error)

// Download calls f.
func (f DownloaderFunc) Download(ctx context.Context, link model.SourceLink, req DownloadRequest) (Download, error) {
	return f(ctx, link, req)
}

// PlatformDownloaders routes a link to the Downloader registered for its
// platform, or to Fallback.
type PlatformDownloaders struct {
	ByPlatform map[model.Platform]Downloader
	Fallback   Downloader

	// ChapterFallback, when set, serves chapter requests for every platform.
	ChapterFallback bool
}

// Download implements Downloader.
func (p PlatformDownloaders) Download(ctx context.Context, link model.SourceLink, req DownloadRequest) (Download, error) {
	if req.SplitChapters && p.ChapterFallback && p.Fallback != nil {
		return p.Fallback.Download(ctx, link, req)
	}
	if d, ok := p.ByPlatform[link.Platform]; ok && d != nil {
		return d.Download(ctx, link, req)
	}
	if p.Fallback != nil {
		return p.Fallback.Download(ctx, link, req)
	}
	return Download{}, fmt.Errorf("no downloader for %s", link.Platform)
}

// AttachmentSource downloads files attached to chat messages.
type AttachmentSource interface {
	OpenAttachment(ctx context.Context, att model.Attachment) (io.ReadCloser, error)
}
