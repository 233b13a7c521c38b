package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/handiism/songbot/internal/delivery"
	"github.com/handiism/songbot/internal/directive"
	"github.com/handiism/songbot/internal/fetch"
	"github.com/handiism/songbot/internal/logging"
	"github.com/handiism/songbot/internal/model"
	"github.com/handiism/songbot/internal/transform"
)

// Request is one inbound message.
type Request struct {
	// Text holds links and directives.
	Text string

	// PictureURL is a picture sent with the message. It becomes the cover of
	// every produced file.
	PictureURL string

	// Parent is the audio attached to the message being replied to.
	Parent *model.Attachment
}

// Result lists what a request produced.
type Result struct {
	ID        string
	Delivered []delivery.Delivered

	// Errors holds the failures that did not stop the request.
	Errors []error
}

// Fetcher resolves a request into working files.
type Fetcher interface {
	FetchTargets(ctx context.Context, req fetch.Request) ([]string, error)
}

// Transformer applies directives to working files.
type Transformer interface {
	Apply(ctx context.Context, files []string, set *directive.Set) ([]string, error)
}

// Deliverer hands a finished file to the requester.
type Deliverer interface {
	Deliver(ctx context.Context, path string) (delivery.Delivered, error)
}

// AssetPreparer prepares cover thumbnails.
type AssetPreparer interface {
	directive.AssetChecker
	Prepare(ctx context.Context, pictureURL string) (string, error)
}

// Sweeper evicts expired cache entries.
type Sweeper interface {
	EvictOlderThan(ttl time.Duration) (int, error)
}

// FileRemover deletes working files.
type FileRemover interface {
	Remove(paths ...string) error
}

// Options configures a Pipeline.
type Options struct {
	Cache    Sweeper
	CacheTTL time.Duration

	Fetcher Fetcher
	Engine  Transformer
	Assets  AssetPreparer
	Deliver Deliverer
	Files   FileRemover

	OnEvent func(Event)
	Logger  *slog.Logger
}

// Pipeline handles requests.
type Pipeline struct {
	opts    Options
	onEvent func(Event)
	logger  *slog.Logger
}

// New creates a Pipeline. Fetcher, Engine, Deliver and Files are required.
func New(opts Options) (*Pipeline, error) {
	if opts.Fetcher == nil || opts.Engine == nil || opts.Deliver == nil || opts.Files == nil {
		return nil, errors.New("pipeline needs a fetcher, an engine, a deliverer and a file remover")
	}
	onEvent := opts.OnEvent
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	return &Pipeline{
		opts:    opts,
		onEvent: onEvent,
		logger:  logging.OrDiscard(opts.Logger),
	}, nil
}

// Handle runs req through every step.
//
// Directive and asset errors, and a failed attachment fetch, end the request
// and are returned. Failed links, edits and deliveries are reported as
// events and collected in Result.Errors while the other files carry on.
func (p *Pipeline) Handle(ctx context.Context, req Request) (Result, error) {
	res := Result{ID: uuid.NewString()}
	logger := p.logger.With("request", res.ID)

	p.sweep(logger)

	text := req.Text
	if req.PictureURL != "" {
		text += "\n" + string(directive.KindCover) + " " + req.PictureURL
	}

	set, err := directive.Parse(text)
	if err != nil {
		p.fail("Invalid directives", err)
		return res, err
	}
	if err := p.prepareAssets(ctx, set); err != nil {
		p.fail("Missing cover", err)
		return res, err
	}

	files, err := p.opts.Fetcher.FetchTargets(ctx, fetch.Request{
		Text:          req.Text,
		Parent:        req.Parent,
		SplitChapters: set.SplitChapters(),
	})
	// Everything fetched is ours to delete, whatever happens next.
	owned := append([]string(nil), files...)
	defer func() { p.cleanup(logger, owned) }()

	var fetchFailure *fetch.Failure
	switch {
	case errors.As(err, &fetchFailure):
		for _, e := range fetchFailure.Errors {
			p.warn(fmt.Sprintf("Could not fetch %s", e.Link.URL), e)
			res.Errors = append(res.Errors, e)
		}
	case err != nil:
		p.fail("Could not fetch the attached file", err)
		return res, err
	}
	if len(files) == 0 {
		p.onEvent(Event{Message: "Nothing to process", Level: LevelInfo})
		return res, nil
	}
	p.onEvent(Event{Message: fmt.Sprintf("Fetched %d file(s)", len(files)), Level: LevelVerbose})

	out, err := p.opts.Engine.Apply(ctx, files, set)
	owned = append(owned, out...)
	var editFailure *transform.Failure
	switch {
	case errors.As(err, &editFailure):
		for _, e := range editFailure.Errors {
			p.warn(fmt.Sprintf("Could not apply %s", e.Kind), e)
			res.Errors = append(res.Errors, e)
		}
	case err != nil:
		p.fail("Could not apply directives", err)
		return res, err
	}

	for _, path := range out {
		d, err := p.opts.Deliver.Deliver(ctx, path)
		if err != nil {
			p.warn(fmt.Sprintf("Could not deliver %s", filepath.Base(path)), err)
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Delivered = append(res.Delivered, d)
		p.onEvent(Event{Message: fmt.Sprintf("Delivered %s", filepath.Base(d.Path)), Level: LevelSuccess})
	}

	logger.Info("request handled", "delivered", len(res.Delivered), "errors", len(res.Errors))
	return res, nil
}

func (p *Pipeline) sweep(logger *slog.Logger) {
	if p.opts.Cache == nil || p.opts.CacheTTL <= 0 {
		return
	}
	n, err := p.opts.Cache.EvictOlderThan(p.opts.CacheTTL)
	if err != nil {
		logger.Warn("cache sweep failed", "error", err)
		return
	}
	if n > 0 {
		logger.Info("cache swept", "removed", n)
	}
}

// prepareAssets fetches the cover thumbnail and fails when it is still
// missing afterwards.
func (p *Pipeline) prepareAssets(ctx context.Context, set *directive.Set) error {
	url, ok := set.CoverURL()
	if !ok {
		return nil
	}
	if p.opts.Assets == nil {
		return set.CheckAssets(ctx, nil)
	}
	if _, err := p.opts.Assets.Prepare(ctx, url); err != nil {
		p.warn("Could not prepare cover", err)
	}
	return set.CheckAssets(ctx, p.opts.Assets)
}

func (p *Pipeline) cleanup(logger *slog.Logger, paths []string) {
	if len(paths) == 0 {
		return
	}
	if err := p.opts.Files.Remove(paths...); err != nil {
		logger.Warn("working file cleanup failed", "error", err)
	}
}

func (p *Pipeline) warn(msg string, err error) {
	p.onEvent(Event{Message: fmt.Sprintf("%s: %v", msg, err), Level: LevelWarning, Err: err})
}

func (p *Pipeline) fail(msg string, err error) {
	p.onEvent(Event{Message: fmt.Sprintf("%s: %v", msg, err), Level: LevelError, Err: err})
}
