package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore persists upload contents under opaque keys. Soft-deleted
// uploads keep their blobs; only the metadata row decides visibility.
type BlobStore interface {
	Save(key string, r io.Reader) (int64, error)
	Open(key string) (io.ReadCloser, error)
}

// DiskStore keeps blobs as flat files in one directory.
type DiskStore struct {
	root string
}

// NewDiskStore creates the directory if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: create store dir: %w", err)
	}
	return &DiskStore{root: root}, nil
}

var _ BlobStore = (*DiskStore)(nil)

func (s *DiskStore) path(key string) (string, error) {
	// Keys are uuids we minted ourselves; anything else is refused.
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return "", fmt.Errorf("uploads: invalid storage key %q", key)
	}
	return filepath.Join(s.root, key), nil
}

// Save writes the blob and reports its size.
func (s *DiskStore) Save(key string, r io.Reader) (int64, error) {
	path, err := s.path(key)
	if err != nil {
		return 0, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("uploads: create blob: %w", err)
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("uploads: write blob: %w", err)
	}
	return n, nil
}

// Open returns the blob for reading.
func (s *DiskStore) Open(key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("uploads: open blob: %w", err)
	}
	return f, nil
}
