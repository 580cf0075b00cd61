package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ericfisherdev/storefront/internal/domain/model"
	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// SnapshotInfo is the read-only view of the stored snapshot.
type SnapshotInfo struct {
	Exists       bool
	CapturedAt   time.Time
	ProductCount int
	Age          time.Duration
	Valid        bool
}

// SnapshotCache owns the persisted catalog snapshot. Writes are serialized so
// a merge never interleaves with another merge or a replace.
type SnapshotCache struct {
	store driven.SnapshotStore
	clock clockwork.Clock
	mu    sync.Mutex
}

// NewSnapshotCache creates a SnapshotCache backed by store.
func NewSnapshotCache(store driven.SnapshotStore, clock clockwork.Clock) *SnapshotCache {
	return &SnapshotCache{store: store, clock: clock}
}

// IsValid reports whether a snapshot exists and is younger than
// model.SnapshotStaleAfter.
func (c *SnapshotCache) IsValid(ctx context.Context) bool {
	snap, ok := c.store.Load(ctx)
	return ok && snap.IsValid(c.clock.Now())
}

// ReadAll returns every cached product, or nil when nothing is cached.
func (c *SnapshotCache) ReadAll(ctx context.Context) []model.Product {
	snap, ok := c.store.Load(ctx)
	if !ok {
		return nil
	}
	return snap.Products
}

// Snapshot returns the whole stored snapshot.
func (c *SnapshotCache) Snapshot(ctx context.Context) (model.Snapshot, bool) {
	return c.store.Load(ctx)
}

// ReplaceAll overwrites the snapshot with products, stamped now.
func (c *SnapshotCache) ReplaceAll(ctx context.Context, products []model.Product) (model.MergeStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := model.Snapshot{
		CapturedAt: c.clock.Now(),
		Products:   model.UniqueProducts(products),
	}
	if err := c.store.Save(ctx, snap); err != nil {
		return model.MergeStats{}, fmt.Errorf("replacing snapshot: %w", err)
	}
	return model.MergeStats{Added: len(snap.Products), Total: len(snap.Products)}, nil
}

// MergeUpdate reconciles products into the stored snapshot by SKU and stamps
// it now. Existing entries missing from products are kept.
func (c *SnapshotCache) MergeUpdate(ctx context.Context, products []model.Product) (model.MergeStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, _ := c.store.Load(ctx)
	stats := snap.Merge(products, c.clock.Now())

	if err := c.store.Save(ctx, snap); err != nil {
		return model.MergeStats{}, fmt.Errorf("saving merged snapshot: %w", err)
	}
	return stats, nil
}

// Info reports the snapshot's size and age.
func (c *SnapshotCache) Info(ctx context.Context) SnapshotInfo {
	snap, ok := c.store.Load(ctx)
	if !ok {
		return SnapshotInfo{}
	}

	now := c.clock.Now()
	return SnapshotInfo{
		Exists:       true,
		CapturedAt:   snap.CapturedAt,
		ProductCount: len(snap.Products),
		Age:          snap.Age(now),
		Valid:        snap.IsValid(now),
	}
}
