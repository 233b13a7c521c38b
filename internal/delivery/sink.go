package delivery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/handiism/songbot/internal/audio"
	"github.com/handiism/songbot/internal/cache"
	ioutils "github.com/handiism/songbot/internal/io"
	"github.com/handiism/songbot/internal/logging"
	"github.com/handiism/songbot/internal/model"
)

// ErrTooLarge is returned for files over the upload limit.
var ErrTooLarge = errors.New("file too large to deliver")

// DefaultMaxBytes matches the upload limit of chat bot APIs.
const DefaultMaxBytes = 50_000_000

// MetadataReader reads the tags used to name delivered files.
type MetadataReader interface {
	ReadMetadata(ctx context.Context, path string) (model.Metadata, error)
}

// Delivered describes one delivered file.
type Delivered struct {
	// Path is the file in the output directory.
	Path string
	// FileID is the content id the file was cached under.
	FileID string
	Meta   model.Metadata
	Size   int64
}

// Options configures a DirSink.
type Options struct {
	Dir      string
	Store    *cache.Store
	Meta     MetadataReader
	MaxBytes int64
	Playlist *audio.PlaylistCreator
	Logger   *slog.Logger
}

// DirSink delivers files into a local directory.
type DirSink struct {
	dir      string
	store    *cache.Store
	meta     MetadataReader
	maxBytes int64
	playlist *audio.PlaylistCreator
	logger   *slog.Logger

	mu        sync.Mutex
	delivered []Delivered
}

// NewDirSink creates a DirSink, creating the output directory if needed.
func NewDirSink(opts Options) (*DirSink, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("output directory is required")
	}
	if err := ioutils.EnsureDir(opts.Dir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	return &DirSink{
		dir:      opts.Dir,
		store:    opts.Store,
		meta:     opts.Meta,
		maxBytes: opts.MaxBytes,
		playlist: opts.Playlist,
		logger:   logging.OrDiscard(opts.Logger),
	}, nil
}

// Deliver copies path into the output directory, named after its title tag,
// and caches it under its content id. path itself is left in place.
func (s *DirSink) Deliver(ctx context.Context, path string) (Delivered, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Delivered{}, err
	}
	if info.Size() > s.maxBytes {
		return Delivered{}, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrTooLarge, filepath.Base(path), info.Size(), s.maxBytes)
	}

	var meta model.Metadata
	if s.meta != nil {
		if meta, err = s.meta.ReadMetadata(ctx, path); err != nil {
			s.logger.Warn("could not read tags for naming", "file", path, "error", err)
		}
	}

	id, err := ContentID(path)
	if err != nil {
		return Delivered{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dst := s.uniqueName(meta, path)
	if err := ioutils.CopyFile(ctx, path, dst); err != nil {
		return Delivered{}, fmt.Errorf("deliver %s: %w", filepath.Base(path), err)
	}

	if s.store != nil {
		key := cache.KeyForFileID(id).WithExt(filepath.Ext(path))
		if _, err := s.store.PutFile(ctx, key, path); err != nil {
			s.logger.Warn("could not cache delivered file", "file", dst, "error", err)
		}
	}

	d := Delivered{Path: dst, FileID: id, Meta: meta, Size: info.Size()}
	s.delivered = append(s.delivered, d)
	s.logger.Info("file delivered", "path", dst, "title", meta.Title)
	return d, nil
}

// Delivered returns every file delivered so far, in delivery order.
func (s *DirSink) Delivered() []Delivered {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Delivered(nil), s.delivered...)
}

// WritePlaylist writes a playlist named name of every delivered file and
// returns its path. Nothing is written when no file was delivered or no
// playlist creator is configured.
func (s *DirSink) WritePlaylist(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playlist == nil || len(s.delivered) == 0 {
		return "", nil
	}

	entries := make([]audio.PlaylistEntry, len(s.delivered))
	for i, d := range s.delivered {
		entries[i] = audio.PlaylistEntry{
			Path:     d.Path,
			Title:    d.Meta.Title,
			Artist:   d.Meta.Artist,
			Duration: d.Meta.Duration,
		}
	}

	path := filepath.Join(s.dir, ioutils.SanitizeFileName(name)+s.playlist.Format().Ext())
	content := s.playlist.CreatePlaylist(entries)
	if err := ioutils.WriteFileAtomic(ctx, path, strings.NewReader(content)); err != nil {
		return "", fmt.Errorf("write playlist: %w", err)
	}
	return path, nil
}

// uniqueName picks a free file name in the output directory. Callers hold
// s.mu.
func (s *DirSink) uniqueName(meta model.Metadata, src string) string {
	ext := filepath.Ext(src)
	base := ioutils.SanitizeFileName(meta.Title)
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(src), ext)
	}

	dst := filepath.Join(s.dir, base+ext)
	for n := 2; ioutils.Exists(dst); n++ {
		dst = filepath.Join(s.dir, fmt.Sprintf("%s (%d)%s", base, n, ext))
	}
	return dst
}

// ContentID returns the hex SHA-256 of the file at path. It stands in for a
// platform file id when files are delivered to disk.
func ContentID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", filepath.Base(path), err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
