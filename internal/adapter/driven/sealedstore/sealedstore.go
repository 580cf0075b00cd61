// Package sealedstore decorates a BlobStore so selected records are
// encrypted at rest with AES-256-GCM.
package sealedstore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// KeySize is the required key length in bytes.
const KeySize = 32

// ErrInvalidKey is returned by New when the key is not KeySize bytes.
var ErrInvalidKey = errors.New("sealed store key must be 32 bytes")

// Compile-time interface satisfaction check.
var _ driven.BlobStore = (*Store)(nil)

// Store seals the named records before writing them to the inner store and
// opens them on read. Other records pass through untouched.
type Store struct {
	inner  driven.BlobStore
	gcm    cipher.AEAD
	sealed map[string]struct{}
}

// New wraps inner. names lists the records to encrypt; with none given only
// the credential is sealed.
func New(inner driven.BlobStore, key []byte, names ...string) (*Store, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}

	if len(names) == 0 {
		names = []string{driven.BlobCredential}
	}
	sealed := make(map[string]struct{}, len(names))
	for _, n := range names {
		sealed[n] = struct{}{}
	}

	return &Store{inner: inner, gcm: gcm, sealed: sealed}, nil
}

// Get reads name and opens it when it is a sealed record. A record written
// before encryption was enabled is plaintext JSON and is returned as is; the
// next Put seals it.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.inner.Get(ctx, name)
	if err != nil || !s.isSealed(name) {
		return data, err
	}

	plaintext, err := s.open(data)
	if err == nil {
		return plaintext, nil
	}
	if json.Valid(data) {
		slog.Warn("record stored unencrypted, it will be sealed on next write", "name", name)
		return data, nil
	}
	return nil, fmt.Errorf("open sealed record %q: %w", name, err)
}

// Put seals data when name is a sealed record and writes it.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if !s.isSealed(name) {
		return s.inner.Put(ctx, name, data)
	}

	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	return s.inner.Put(ctx, name, s.gcm.Seal(nonce, nonce, data, nil))
}

// Has delegates to the inner store.
func (s *Store) Has(ctx context.Context, name string) (bool, error) {
	return s.inner.Has(ctx, name)
}

func (s *Store) isSealed(name string) bool {
	_, ok := s.sealed[name]
	return ok
}

func (s *Store) open(data []byte) ([]byte, error) {
	nonceSize := s.gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("gcm.Open: %w", err)
	}
	return plaintext, nil
}
