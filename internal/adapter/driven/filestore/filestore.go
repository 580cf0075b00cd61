// Package filestore implements the BlobStore port on the local filesystem
// using diskv. Each record is one file named after the blob.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/peterbourgon/diskv/v3"

	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BlobStore = (*Store)(nil)

// Store is a diskv-backed BlobStore. Writes go to a temp directory on the same
// filesystem and are renamed into place.
type Store struct {
	dv *diskv.Diskv
}

// New creates a Store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	tempDir := filepath.Join(dir, ".tmp")
	if err := os.MkdirAll(tempDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}

	// Flat layout: every blob is a file directly under dir.
	// CacheSizeMax stays 0 so every Get reads the file; the server and
	// storefrontctl may share one data dir.
	flatTransform := func(string) []string { return []string{} }

	dv := diskv.New(diskv.Options{
		BasePath:     dir,
		TempDir:      tempDir,
		Transform:    flatTransform,
		CacheSizeMax: 0,
		FilePerm:     0o600,
		PathPerm:     0o700,
	})

	return &Store{dv: dv}, nil
}

// Get returns the record stored under name, or driven.ErrBlobNotFound.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := s.dv.Read(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, driven.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %q: %w", name, err)
	}
	return data, nil
}

// Put atomically stores or replaces the record under name.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.dv.Write(name, data); err != nil {
		return fmt.Errorf("write blob %q: %w", name, err)
	}
	return nil
}

// Has reports whether a record exists under name.
func (s *Store) Has(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.dv.Has(name), nil
}
