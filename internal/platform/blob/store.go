// Package blob is a local-disk blob store keyed by opaque identifiers.
// Bytes are written once and never mutated; deletion happens only through
// the cleanup worker when the owning submission is removed.
package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Put streams r into a new blob and returns its ID and size.
func (s *Store) Put(r io.Reader) (string, int64, error) {
	id := uuid.NewString()
	path := s.path(id)

	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create blob %s: %w", id, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("failed to write blob %s: %w", id, err)
	}
	return id, n, nil
}

func (s *Store) Get(id string) ([]byte, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", id, err)
	}
	return data, nil
}

func (s *Store) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob %s: %w", id, err)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id)
}
