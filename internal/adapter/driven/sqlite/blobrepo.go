package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BlobStore = (*BlobRepo)(nil)

// BlobRepo is the SQLite implementation of the BlobStore port interface.
// Each Put is a single INSERT OR REPLACE statement, so readers see either the
// previous record or the new one.
type BlobRepo struct {
	db *DB
}

// NewBlobRepo creates a new BlobRepo backed by the given DB.
func NewBlobRepo(db *DB) *BlobRepo {
	return &BlobRepo{db: db}
}

// Get returns the record stored under name, or driven.ErrBlobNotFound.
func (r *BlobRepo) Get(ctx context.Context, name string) ([]byte, error) {
	const query = `SELECT data FROM blobs WHERE name = ?`

	var data []byte
	err := r.db.Reader.QueryRowContext(ctx, query, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, driven.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %q: %w", name, err)
	}
	return data, nil
}

// Put stores or replaces the record under name.
func (r *BlobRepo) Put(ctx context.Context, name string, data []byte) error {
	const query = `INSERT OR REPLACE INTO blobs (name, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`

	if _, err := r.db.Writer.ExecContext(ctx, query, name, data); err != nil {
		return fmt.Errorf("put blob %q: %w", name, err)
	}
	return nil
}

// Has reports whether a record exists under name.
func (r *BlobRepo) Has(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM blobs WHERE name = ?)`

	var exists bool
	if err := r.db.Reader.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check blob %q: %w", name, err)
	}
	return exists, nil
}
