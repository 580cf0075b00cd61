package blobstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/ericfisherdev/storefront/internal/domain/model"
	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TaxCodeStore = (*TaxCodeRepo)(nil)

// TaxCodeRepo implements driven.TaxCodeStore as one JSON object per table,
// stored under "tax-<table>". Set and Delete are read-modify-write and are
// serialized by an internal mutex.
type TaxCodeRepo struct {
	blobs driven.BlobStore
	mu    sync.Mutex
}

// NewTaxCodeRepo creates a TaxCodeRepo backed by blobs.
func NewTaxCodeRepo(blobs driven.BlobStore) *TaxCodeRepo {
	return &TaxCodeRepo{blobs: blobs}
}

// List returns every key -> value pair in table.
func (r *TaxCodeRepo) List(ctx context.Context, table model.TaxTable) (map[string]string, error) {
	codes, err := r.read(ctx, table)
	if err != nil {
		return nil, err
	}
	return maps.Clone(codes), nil
}

// Set stores or replaces the value for key in table.
func (r *TaxCodeRepo) Set(ctx context.Context, table model.TaxTable, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	codes, err := r.read(ctx, table)
	if err != nil {
		return err
	}
	codes[key] = value
	return r.write(ctx, table, codes)
}

// Delete removes key from table.
func (r *TaxCodeRepo) Delete(ctx context.Context, table model.TaxTable, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	codes, err := r.read(ctx, table)
	if err != nil {
		return err
	}
	if _, ok := codes[key]; !ok {
		return nil
	}
	delete(codes, key)
	return r.write(ctx, table, codes)
}

func (r *TaxCodeRepo) read(ctx context.Context, table model.TaxTable) (map[string]string, error) {
	data, err := r.blobs.Get(ctx, blobName(table))
	if errors.Is(err, driven.ErrBlobNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s codes: %w", table, err)
	}

	codes := map[string]string{}
	if err := json.Unmarshal(data, &codes); err != nil {
		return nil, fmt.Errorf("decode %s codes: %w", table, err)
	}
	return codes, nil
}

func (r *TaxCodeRepo) write(ctx context.Context, table model.TaxTable, codes map[string]string) error {
	data, err := json.MarshalIndent(codes, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s codes: %w", table, err)
	}
	if err := r.blobs.Put(ctx, blobName(table), data); err != nil {
		return fmt.Errorf("write %s codes: %w", table, err)
	}
	return nil
}

func blobName(table model.TaxTable) string {
	return "tax-" + string(table)
}
