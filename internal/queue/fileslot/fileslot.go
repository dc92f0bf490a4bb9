// Package fileslot stores queue slots as JSON files in a directory.
package fileslot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Slot keeps one file per key under dir. Writes go to a temp file that is
// renamed over the previous value, so readers see either the old or the new
// list and never a partial one.
type Slot struct {
	dir string
	mu  sync.Mutex
}

// New creates a slot rooted at dir, creating the directory if needed.
func New(dir string) (*Slot, error) {
	if dir == "" {
		return nil, errors.New("fileslot: directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("fileslot: create %s: %w", dir, err)
	}
	return &Slot{dir: dir}, nil
}

func (s *Slot) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("fileslot: invalid key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Get implements queue.Slot.
func (s *Slot) Get(_ context.Context, key string) ([]byte, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(p) //nolint:gosec // path is built from a validated key under the configured dir
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("fileslot: read %s: %w", p, err)
	}
	return b, true, nil
}

// Put implements queue.Slot.
func (s *Slot) Put(_ context.Context, key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("fileslot: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("fileslot: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("fileslot: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fileslot: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("fileslot: rename to %s: %w", p, err)
	}
	return nil
}
