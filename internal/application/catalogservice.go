package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ericfisherdev/storefront/internal/domain/model"
	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// Page size bounds for the storefront listing.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ProductPage is one page of the in-stock listing.
type ProductPage struct {
	Products     []model.Product
	Page         int
	PageSize     int
	TotalPages   int
	TotalInStock int
	CatalogSize  int
	HasMore      bool
	Stale        bool
	CapturedAt   time.Time
}

// Freshener brings the snapshot up to date and returns it. ok reports
// whether a snapshot is stored, even when err is set.
type Freshener interface {
	FreshSnapshot(ctx context.Context) (snap model.Snapshot, ok bool, err error)
}

// CatalogService serves the storefront listing from the snapshot.
type CatalogService struct {
	sync Freshener
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(sync Freshener) *CatalogService {
	return &CatalogService{sync: sync}
}

// ListInStock ensures the snapshot is fresh, keeps only products with
// positive stock and returns the requested page. Out-of-range pages yield an
// empty product list with the correct totals.
//
// Credential problems are returned as-is so the caller can ask for
// re-authorization. Any other sync failure falls back to the stored snapshot,
// flagged stale, when there is one.
func (s *CatalogService) ListInStock(ctx context.Context, page, pageSize int) (*ProductPage, error) {
	page, pageSize = normalizePaging(page, pageSize)

	snap, ok, syncErr := s.sync.FreshSnapshot(ctx)
	if syncErr != nil && needsReauthorization(syncErr) {
		return nil, syncErr
	}

	if syncErr != nil {
		if !ok || len(snap.Products) == 0 {
			return nil, syncErr
		}
		slog.Warn("sync failed, serving stale snapshot", "captured_at", snap.CapturedAt, "error", syncErr)
	}

	inStock := make([]model.Product, 0, len(snap.Products))
	for _, p := range snap.Products {
		if p.InStock() {
			inStock = append(inStock, p)
		}
	}

	totalPages := (len(inStock) + pageSize - 1) / pageSize
	start, end := len(inStock), len(inStock)
	// Pages past the end are empty; checking first keeps the offset from
	// overflowing.
	if page <= totalPages {
		start = (page - 1) * pageSize
		end = min(start+pageSize, len(inStock))
	}

	return &ProductPage{
		Products:     inStock[start:end],
		Page:         page,
		PageSize:     pageSize,
		TotalPages:   totalPages,
		TotalInStock: len(inStock),
		CatalogSize:  len(snap.Products),
		HasMore:      page < totalPages,
		Stale:        syncErr != nil,
		CapturedAt:   snap.CapturedAt,
	}, nil
}

func normalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// needsReauthorization reports whether err can only be fixed by an operator.
func needsReauthorization(err error) bool {
	return errors.Is(err, driven.ErrNotConfigured) ||
		errors.Is(err, driven.ErrRefreshFailed) ||
		errors.Is(err, driven.ErrClientNotConfigured)
}
