package driven

import (
	"context"

	"github.com/ericfisherdev/storefront/internal/domain/model"
)

// CatalogClient defines the driven port for the upstream product catalog.
type CatalogClient interface {
	// FetchAll pages through the whole catalog using accessToken and returns
	// normalized products in upstream order. When pagination stops early it
	// returns the products accumulated so far together with an error wrapping
	// ErrFetchIncomplete.
	FetchAll(ctx context.Context, accessToken string) ([]model.Product, error)
}
