// Package memstore implements the BlobStore port in process memory. It backs
// the "memory" storage mode and the service-level tests.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BlobStore = (*Store)(nil)

// Store is a mutex-protected map of blobs. Values are copied on the way in and
// out so callers can never alias stored bytes.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// New creates an empty Store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// Get returns the record stored under name, or driven.ErrBlobNotFound.
func (s *Store) Get(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[name]
	if !ok {
		return nil, driven.ErrBlobNotFound
	}
	return slices.Clone(data), nil
}

// Put stores or replaces the record under name.
func (s *Store) Put(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[name] = slices.Clone(data)
	return nil
}

// Has reports whether a record exists under name.
func (s *Store) Has(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.blobs[name]
	return ok, nil
}
