package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/handiism/songbot/internal/cache"
	"github.com/handiism/songbot/internal/logging"
	"github.com/handiism/songbot/internal/model"
	"github.com/handiism/songbot/internal/workfile"
)

// Classifier finds song links in request text.
type Classifier interface {
	Classify(ctx context.Context, text string) []model.SourceLink
}

// Request describes what to fetch.
type Request struct {
	// Text is scanned for links when Parent carries no attachment.
	Text string

	// Parent is the audio attached to the message being replied to, if any.
	Parent *model.Attachment

	// SplitChapters re-downloads every link, bypassing cache hits, and
	// returns one working file per chapter.
	SplitChapters bool
}

// Options configures an Orchestrator.
type Options struct {
	Store       *cache.Store
	Files       *workfile.Manager
	Classifier  Classifier
	Downloader  Downloader
	Attachments AttachmentSource

	// Workers bounds concurrent link fetches. Zero means DefaultWorkers().
	Workers int

	// Report receives every failed link once all workers have finished.
	// Attachment failures are only returned to the caller.
	Report func(error)

	Logger *slog.Logger
}

// Orchestrator resolves requests into working files.
type Orchestrator struct {
	store       *cache.Store
	files       *workfile.Manager
	classifier  Classifier
	downloader  Downloader
	attachments AttachmentSource
	workers     int
	report      func(error)
	logger      *slog.Logger
}

// DefaultWorkers is one and a half workers per CPU, at least one.
func DefaultWorkers() int {
	return max(1, runtime.NumCPU()*3/2)
}

// New creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Store == nil || opts.Files == nil {
		return nil, errors.New("fetch orchestrator needs a cache store and a workfile manager")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	report := opts.Report
	if report == nil {
		report = func(error) {}
	}
	return &Orchestrator{
		store:       opts.Store,
		files:       opts.Files,
		classifier:  opts.Classifier,
		downloader:  opts.Downloader,
		attachments: opts.Attachments,
		workers:     workers,
		report:      report,
		logger:      logging.OrDiscard(opts.Logger),
	}, nil
}

// FetchTargets returns the working files for req.
//
// A parent attachment wins over links in the text. Otherwise every link found
// in the text is fetched. When some links fail, the files of the others are
// still returned, in link order, together with a *Failure.
func (o *Orchestrator) FetchTargets(ctx context.Context, req Request) ([]string, error) {
	if req.Parent != nil {
		path, err := o.fetchAttachment(ctx, *req.Parent)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	if o.classifier == nil {
		return nil, nil
	}
	return o.FetchLinks(ctx, o.classifier.Classify(ctx, req.Text), req.SplitChapters)
}

// FetchLinks fetches every link concurrently and reassembles the working
// files in link order. Already started fetches always run to completion.
func (o *Orchestrator) FetchLinks(ctx context.Context, links []model.SourceLink, splitChapters bool) ([]string, error) {
	if len(links) == 0 {
		return nil, nil
	}

	results := make([][]string, len(links))
	errs := make([]error, len(links))

	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, link := range links {
		g.Go(func() error {
			files, err := o.fetchLink(ctx, link, splitChapters)
			if err != nil {
				o.logger.Warn("link fetch failed", "url", link.URL, "error", err)
				errs[i] = err
				return nil
			}
			results[i] = files
			return nil
		})
	}
	_ = g.Wait()

	var files []string
	var failure *Failure
	for i, link := range links {
		if errs[i] != nil {
			if failure == nil {
				failure = &Failure{Total: len(links)}
			}
			linkErr := &LinkError{Link: link, Err: errs[i]}
			failure.Errors = append(failure.Errors, linkErr)
			o.report(linkErr)
			continue
		}
		files = append(files, results[i]...)
	}

	if failure != nil {
		return files, failure
	}
	return files, nil
}

func (o *Orchestrator) fetchAttachment(ctx context.Context, att model.Attachment) (string, error) {
	key := cache.KeyForFileID(att.UniqueID)

	entry, ok := o.store.Get(key)
	if !ok {
		if o.attachments == nil {
			return "", fmt.Errorf("%w: no attachment source for %s", ErrFetch, att.UniqueID)
		}
		o.logger.Info("downloading attachment", "file_id", att.FileID)

		rc, err := o.attachments.OpenAttachment(ctx, att)
		if err != nil {
			return "", fmt.Errorf("%w: attachment %s: %v", ErrFetch, att.UniqueID, err)
		}
		entry, err = o.store.Put(ctx, key, rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: attachment %s: %v", ErrFetch, att.UniqueID, err)
		}
	}

	path, err := o.files.CopyFrom(ctx, entry)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return path, nil
}

func (o *Orchestrator) fetchLink(ctx context.Context, link model.SourceLink, splitChapters bool) ([]string, error) {
	key := cache.KeyForURL(link.URL)

	if !splitChapters {
		if entry, ok := o.store.Get(key); ok {
			path, err := o.files.CopyFrom(ctx, entry)
			if err != nil {
				return nil, err
			}
			return []string{path}, nil
		}
	}

	if o.downloader == nil {
		return nil, fmt.Errorf("no downloader configured")
	}

	scratch, err := os.MkdirTemp(o.files.Dir(), "dl-*")
	if err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	o.logger.Info("downloading", "url", link.URL, "platform", link.Platform.String(), "chapters", splitChapters)
	dl, err := o.downloader.Download(ctx, link, DownloadRequest{Dir: scratch, SplitChapters: splitChapters})
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dl.Path); err != nil {
		return nil, fmt.Errorf("downloader returned missing file %s", filepath.Base(dl.Path))
	}

	entry, err := o.store.PutFile(ctx, key, dl.Path)
	if err != nil {
		return nil, err
	}

	sources := []string{entry}
	if splitChapters && len(dl.Chapters) > 0 {
		sources = dl.Chapters
	}

	files := make([]string, 0, len(sources))
	for _, src := range sources {
		path, err := o.files.CopyFrom(ctx, src)
		if err != nil {
			_ = o.files.Remove(files...)
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}
