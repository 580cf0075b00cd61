package blobstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/storefront/internal/domain/model"
	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SnapshotStore = (*SnapshotRepo)(nil)

type snapshotRecord struct {
	LastUpdate int64           `json:"lastUpdate"`
	Products   []productRecord `json:"products"`
}

type productRecord struct {
	SKU   string          `json:"sku"`
	Name  string          `json:"nome"`
	Price decimal.Decimal `json:"preco"`
	Stock stockCount      `json:"estoque"`
}

// stockCount is an exact integer stock. Older records stored fractional
// numbers, which are truncated toward zero.
type stockCount int64

func (c *stockCount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = 0
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("stock %s: %w", data, err)
	}
	*c = stockCount(d.IntPart())
	return nil
}

// SnapshotRepo implements driven.SnapshotStore on top of a BlobStore.
type SnapshotRepo struct {
	blobs driven.BlobStore
}

// NewSnapshotRepo creates a SnapshotRepo backed by blobs.
func NewSnapshotRepo(blobs driven.BlobStore) *SnapshotRepo {
	return &SnapshotRepo{blobs: blobs}
}

// Load reads and decodes the stored snapshot. Duplicate SKUs in a stored
// record are collapsed on the way out.
func (r *SnapshotRepo) Load(ctx context.Context) (model.Snapshot, bool) {
	data, err := r.blobs.Get(ctx, driven.BlobSnapshot)
	if errors.Is(err, driven.ErrBlobNotFound) {
		return model.Snapshot{}, false
	}
	if err != nil {
		slog.Error("snapshot read failed, treating as absent", "error", err)
		return model.Snapshot{}, false
	}

	var rec snapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Error("snapshot record corrupt, treating as absent", "error", err)
		return model.Snapshot{}, false
	}

	products := make([]model.Product, 0, len(rec.Products))
	for _, p := range rec.Products {
		products = append(products, model.Product{
			SKU:   p.SKU,
			Name:  p.Name,
			Price: p.Price,
			Stock: int64(p.Stock),
		})
	}

	return model.Snapshot{
		CapturedAt: time.UnixMilli(rec.LastUpdate).UTC(),
		Products:   model.UniqueProducts(products),
	}, true
}

// Save encodes and overwrites the stored snapshot.
func (r *SnapshotRepo) Save(ctx context.Context, snap model.Snapshot) error {
	rec := snapshotRecord{
		LastUpdate: snap.CapturedAt.UnixMilli(),
		Products:   make([]productRecord, 0, len(snap.Products)),
	}
	for _, p := range snap.Products {
		rec.Products = append(rec.Products, productRecord{
			SKU:   p.SKU,
			Name:  p.Name,
			Price: p.Price,
			Stock: stockCount(p.Stock),
		})
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := r.blobs.Put(ctx, driven.BlobSnapshot, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
