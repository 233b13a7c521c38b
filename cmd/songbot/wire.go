package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/handiism/songbot/internal/artwork"
	"github.com/handiism/songbot/internal/audio"
	"github.com/handiism/songbot/internal/bandcamp"
	"github.com/handiism/songbot/internal/cache"
	"github.com/handiism/songbot/internal/config"
	"github.com/handiism/songbot/internal/delivery"
	"github.com/handiism/songbot/internal/fetch"
	"github.com/handiism/songbot/internal/http"
	ioutils "github.com/handiism/songbot/internal/io"
	"github.com/handiism/songbot/internal/links"
	"github.com/handiism/songbot/internal/model"
	"github.com/handiism/songbot/internal/pipeline"
	"github.com/handiism/songbot/internal/transform"
	"github.com/handiism/songbot/internal/workfile"
	"github.com/handiism/songbot/internal/ytdlp"
)

// services is everything one run needs.
type services struct {
	pipeline *pipeline.Pipeline
	sink     *delivery.DirSink
}

func openCache(settings *config.Settings, logger *slog.Logger) (*cache.Store, error) {
	return cache.New(cache.Options{
		Dir:        settings.CacheDir,
		DefaultExt: settings.AudioExt,
		Sentinel:   settings.SentinelFile,
		Logger:     logger,
	})
}

func buildServices(settings *config.Settings, logger *slog.Logger, outDir string, onEvent func(pipeline.Event)) (*services, error) {
	store, err := openCache(settings, logger)
	if err != nil {
		return nil, err
	}
	files, err := workfile.NewManager(settings.WorkDir)
	if err != nil {
		return nil, err
	}

	runner := audio.ExecRunner{Logger: logger}
	tagger := audio.NewTagger(nil)
	images := ioutils.NewImageService()
	httpClient := http.NewClient()

	tool, err := audio.NewTool(audio.ToolOptions{
		FFmpegPath:  settings.FFmpegPath,
		FFprobePath: settings.FFprobePath,
		Paths:       files,
		Runner:      runner,
		Tagger:      tagger,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	yt := ytdlp.NewClient(ytdlp.Options{
		Path:               settings.YTDLPPath,
		FFmpegPath:         settings.FFmpegPath,
		CookiesPath:        settings.CookiesPath,
		CookiesFromBrowser: settings.CookiesFromBrowser,
		ProxyURL:           settings.ProxyURL,
		DownloadLimitMBps:  settings.DownloadLimitMBps,
		ThumbnailSize:      settings.ThumbnailSize,
		Runner:             runner,
		Tagger:             tagger,
		Images:             images,
		Logger:             logger,
	})
	bc := bandcamp.NewClient(bandcamp.Options{
		HTTP:          httpClient,
		Tagger:        tagger,
		Images:        images,
		ThumbnailSize: settings.ThumbnailSize,
		MaxRetries:    settings.DownloadMaxRetries,
		RetryCooldown: settings.DownloadRetryCooldown,
		RetryExponent: settings.DownloadRetryExponent,
		Logger:        logger,
	})

	classifier := links.NewClassifier(links.PlatformExpanders{
		ByPlatform: map[model.Platform]links.Expander{model.PlatformBandcamp: bc},
		Fallback:   yt,
	}, logger)

	// Report stays unset. Failed links reach the user as pipeline warning events.
	orchestrator, err := fetch.New(fetch.Options{
		Store:      store,
		Files:      files,
		Classifier: classifier,
		Downloader: fetch.PlatformDownloaders{
			ByPlatform:      map[model.Platform]fetch.Downloader{model.PlatformBandcamp: bc},
			Fallback:        yt,
			ChapterFallback: true,
		},
		Attachments: localAttachments{},
		Workers:     settings.FetchWorkers(),
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	covers, err := artwork.NewPreparer(artwork.Options{
		Store:  store,
		HTTP:   httpClient,
		Images: images,
		Size:   settings.ThumbnailSize,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	var playlist *audio.PlaylistCreator
	if settings.CreatePlaylist {
		format, err := audio.ParsePlaylistFormat(settings.PlaylistFormat)
		if err != nil {
			return nil, err
		}
		playlist = audio.NewPlaylistCreator(format, true)
	}

	sink, err := delivery.NewDirSink(delivery.Options{
		Dir:      outDir,
		Store:    store,
		Meta:     tool,
		MaxBytes: settings.MaxUploadBytes,
		Playlist: playlist,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	p, err := pipeline.New(pipeline.Options{
		Cache:    store,
		CacheTTL: settings.CacheTTL(),
		Fetcher:  orchestrator,
		Engine:   transform.NewEngine(transform.Options{Tool: tool, Covers: covers, Files: files, Logger: logger}),
		Assets:   covers,
		Deliver:  sink,
		Files:    files,
		OnEvent:  onEvent,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	return &services{pipeline: p, sink: sink}, nil
}

// localAttachments serves reply files from disk. FileID is the file path.
type localAttachments struct{}

func (localAttachments) OpenAttachment(_ context.Context, att model.Attachment) (io.ReadCloser, error) {
	return os.Open(att.FileID)
}
