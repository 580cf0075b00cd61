package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/storefront/internal/domain/model"
	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TaxCodeStore = (*TaxCodeRepo)(nil)

// TaxCodeRepo is the SQLite implementation of the TaxCodeStore port interface.
type TaxCodeRepo struct {
	db *DB
}

// NewTaxCodeRepo creates a new TaxCodeRepo backed by the given DB.
func NewTaxCodeRepo(db *DB) *TaxCodeRepo {
	return &TaxCodeRepo{db: db}
}

// List returns every key -> value pair in table.
func (r *TaxCodeRepo) List(ctx context.Context, table model.TaxTable) (map[string]string, error) {
	const query = `SELECT lookup_key, value FROM tax_codes WHERE tax_table = ? ORDER BY lookup_key`

	rows, err := r.db.Reader.QueryContext(ctx, query, string(table))
	if err != nil {
		return nil, fmt.Errorf("list %s codes: %w", table, err)
	}
	defer rows.Close()

	codes := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan %s code: %w", table, err)
		}
		codes[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s codes: %w", table, err)
	}

	return codes, nil
}

// Set stores or replaces the value for key in table.
func (r *TaxCodeRepo) Set(ctx context.Context, table model.TaxTable, key, value string) error {
	const query = `
		INSERT INTO tax_codes (tax_table, lookup_key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (tax_table, lookup_key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.Writer.ExecContext(ctx, query, string(table), key, value); err != nil {
		return fmt.Errorf("set %s code for %q: %w", table, key, err)
	}
	return nil
}

// Delete removes key from table.
func (r *TaxCodeRepo) Delete(ctx context.Context, table model.TaxTable, key string) error {
	const query = `DELETE FROM tax_codes WHERE tax_table = ? AND lookup_key = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, string(table), key); err != nil {
		return fmt.Errorf("delete %s code for %q: %w", table, key, err)
	}
	return nil
}
