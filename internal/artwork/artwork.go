package artwork

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/handiism/songbot/internal/cache"
	"github.com/handiism/songbot/internal/http"
	ioutils "github.com/handiism/songbot/internal/io"
	"github.com/handiism/songbot/internal/logging"
)

// Ext is the extension thumbnails are stored with.
const Ext = ".jpg"

// DefaultSize is the thumbnail edge used when Options.Size is not set.
const DefaultSize = 300

// Options configures a Preparer.
type Options struct {
	Store  *cache.Store
	HTTP   *http.Client
	Images *ioutils.ImageService
	Size   int
	Logger *slog.Logger
}

// Preparer downloads pictures and stores them as square JPEG thumbnails.
type Preparer struct {
	store  *cache.Store
	http   *http.Client
	images *ioutils.ImageService
	size   int
	logger *slog.Logger
}

// NewPreparer creates a Preparer. A Store is required.
func NewPreparer(opts Options) (*Preparer, error) {
	if opts.Store == nil {
		return nil, errors.New("artwork: cache store is required")
	}
	if opts.HTTP == nil {
		opts.HTTP = http.NewClient()
	}
	if opts.Images == nil {
		opts.Images = ioutils.NewImageService()
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	return &Preparer{
		store:  opts.Store,
		http:   opts.HTTP,
		images: opts.Images,
		size:   opts.Size,
		logger: logging.OrDiscard(opts.Logger),
	}, nil
}

// Key returns the cache key of the thumbnail for pictureURL.
func Key(pictureURL string) cache.Key {
	sum := sha256.Sum256([]byte(pictureURL))
	return cache.Key{Name: hex.EncodeToString(sum[:]), Ext: Ext}
}

// Prepare makes sure a thumbnail for pictureURL is cached and returns its
// path. Cached thumbnails are reused.
func (p *Preparer) Prepare(ctx context.Context, pictureURL string) (string, error) {
	key := Key(pictureURL)
	if path, ok := p.store.Get(key); ok {
		p.logger.Debug("thumbnail cache hit", "url", pictureURL)
		return path, nil
	}

	data, err := p.http.DownloadBytes(ctx, pictureURL)
	if err != nil {
		return "", fmt.Errorf("download picture %s: %w", pictureURL, err)
	}
	thumb, err := p.images.SquareThumbnail(ctx, data, p.size)
	if err != nil {
		return "", fmt.Errorf("thumbnail %s: %w", pictureURL, err)
	}

	path, err := p.store.Put(ctx, key, bytes.NewReader(thumb))
	if err != nil {
		return "", err
	}
	p.logger.Info("thumbnail prepared", "url", pictureURL, "path", path)
	return path, nil
}

// HasCover reports whether a thumbnail for pictureURL is cached.
func (p *Preparer) HasCover(_ context.Context, pictureURL string) bool {
	return p.store.Has(Key(pictureURL))
}

// Path returns the cached thumbnail path for pictureURL.
func (p *Preparer) Path(pictureURL string) (string, bool) {
	return p.store.Get(Key(pictureURL))
}
