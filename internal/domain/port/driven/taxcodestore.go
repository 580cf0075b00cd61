package driven

import (
	"context"

	"github.com/ericfisherdev/storefront/internal/domain/model"
)

// TaxCodeStore defines the driven port for the tax lookup tables. The NCM
// table is keyed by SKU; the IPI table is keyed by NCM code.
type TaxCodeStore interface {
	// List returns every key -> value pair in table. Returns an empty map if
	// the table has no entries.
	List(ctx context.Context, table model.TaxTable) (map[string]string, error)

	// Set stores or replaces the value for key in table.
	Set(ctx context.Context, table model.TaxTable, key, value string) error

	// Delete removes key from table. Deleting a missing key is not an error.
	Delete(ctx context.Context, table model.TaxTable, key string) error
}
