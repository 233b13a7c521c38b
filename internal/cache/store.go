package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	ioutils "github.com/handiism/songbot/internal/io"
	"github.com/handiism/songbot/internal/logging"
)

const (
	// DefaultSentinel keeps the otherwise empty cache directory under version
	// control. It is never treated as cache content.
	DefaultSentinel = ".gitkeep"

	// sweepLockName guards the eviction sweep across processes sharing the
	// directory.
	sweepLockName = ".sweep.lock"
)

// Options configures a Store.
type Options struct {
	// Dir is the cache directory. It is created when missing.
	Dir string

	// DefaultExt is used for keys without an extension. Defaults to ".mp3".
	DefaultExt string

	// Sentinel names the file the eviction sweep must skip.
	// Defaults to DefaultSentinel.
	Sentinel string

	Logger *slog.Logger
}

// Store manages cached media files in one flat directory.
type Store struct {
	dir        string
	defaultExt string
	sentinel   string
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Store rooted at opts.Dir.
func New(opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := ioutils.EnsureDir(opts.Dir); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	ext := opts.DefaultExt
	if ext == "" {
		ext = ".mp3"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	sentinel := opts.Sentinel
	if sentinel == "" {
		sentinel = DefaultSentinel
	}

	return &Store{
		dir:        opts.Dir,
		defaultExt: ext,
		sentinel:   sentinel,
		logger:     logging.OrDiscard(opts.Logger),
		now:        time.Now,
	}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path an entry for key lives at, whether or not it
// exists yet.
func (s *Store) Path(key Key) string {
	ext := key.Ext
	if ext == "" {
		ext = s.defaultExt
	}
	return filepath.Join(s.dir, key.Name+ext)
}

// Has reports whether an entry exists for key.
func (s *Store) Has(key Key) bool {
	return ioutils.Exists(s.Path(key))
}

// Entry describes a stored cache file.
type Entry struct {
	Key     Key
	Path    string
	ModTime time.Time
}

// Lookup returns the entry for key, or false on a miss.
func (s *Store) Lookup(key Key) (Entry, bool) {
	path := s.Path(key)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return Entry{}, false
	}
	return Entry{Key: key, Path: path, ModTime: info.ModTime()}, true
}

// Get returns the path of the entry for key, or false on a miss.
func (s *Store) Get(key Key) (string, bool) {
	entry, ok := s.Lookup(key)
	if !ok {
		return "", false
	}
	s.logger.Debug("cache hit", "key", key.String())
	return entry.Path, true
}

// Put stores the content of r under key and returns the entry path. An
// existing entry is replaced.
func (s *Store) Put(ctx context.Context, key Key, r io.Reader) (string, error) {
	if strings.TrimSpace(key.Name) == "" {
		return "", errors.New("cache key is empty")
	}
	path := s.Path(key)
	if err := ioutils.WriteFileAtomic(ctx, path, r); err != nil {
		return "", fmt.Errorf("cache put %s: %w", key, err)
	}
	s.logger.Debug("cache put", "key", key.String())
	return path, nil
}

// PutFile copies the file at src into the cache under key.
func (s *Store) PutFile(ctx context.Context, key Key, src string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("cache put %s: %w", key, err)
	}
	defer f.Close()
	return s.Put(ctx, key, f)
}

// Remove deletes the entry for key if present.
func (s *Store) Remove(key Key) error {
	return ioutils.RemoveIfExists(s.Path(key))
}

// EvictOlderThan removes every entry whose modification time is older than
// ttl and returns how many were removed. The sentinel file and the sweep lock
// are skipped. When another process is already sweeping the directory the
// call returns immediately with zero.
func (s *Store) EvictOlderThan(ttl time.Duration) (int, error) {
	lock := flock.New(filepath.Join(s.dir, sweepLockName))
	locked, err := lock.TryLock()
	if err != nil {
		return 0, fmt.Errorf("lock cache sweep: %w", err)
	}
	if !locked {
		s.logger.Debug("cache sweep already running elsewhere")
		return 0, nil
	}
	defer lock.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache directory: %w", err)
	}

	cutoff := s.now().Add(-ttl)
	removed := 0
	var errs []error
	for _, entry := range entries {
		name := entry.Name()
		if name == s.sentinel || name == sweepLockName || entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := ioutils.RemoveIfExists(filepath.Join(s.dir, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("cache sweep", "removed", removed, "ttl", ttl)
	}
	return removed, errors.Join(errs...)
}
