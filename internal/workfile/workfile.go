package workfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	ioutils "github.com/handiism/songbot/internal/io"
)

// Prefix starts the name of every working file.
const Prefix = "tmp_"

// Manager creates and removes working files in one directory.
type Manager struct {
	dir string
}

// NewManager returns a Manager for dir, creating the directory if needed.
func NewManager(dir string) (*Manager, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("work directory is required")
	}
	if err := ioutils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the work directory.
func (m *Manager) Dir() string {
	return m.dir
}

// NewPath returns a fresh, unused path with the given extension. Nothing is
// created on disk.
func (m *Manager) NewPath(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(m.dir, Prefix+uuid.NewString()+ext)
}

// CopyFrom copies src into a new working file with the same extension and
// returns its path.
func (m *Manager) CopyFrom(ctx context.Context, src string) (string, error) {
	dst := m.NewPath(filepath.Ext(src))
	if err := ioutils.CopyFile(ctx, src, dst); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("copy %s to working file: %w", filepath.Base(src), err)
	}
	return dst, nil
}

// Owns reports whether path is a working file of this manager.
func (m *Manager) Owns(path string) bool {
	return filepath.Dir(path) == filepath.Clean(m.dir) &&
		strings.HasPrefix(filepath.Base(path), Prefix)
}

// Remove deletes the given working files, ignoring ones already gone.
func (m *Manager) Remove(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if err := ioutils.RemoveIfExists(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
