package model

import "time"

// SnapshotStaleAfter is the maximum snapshot age before a resync is triggered.
const SnapshotStaleAfter = 30 * time.Minute

// Snapshot is the locally persisted copy of the upstream catalog. Products
// are unique by SKU and keep their insertion order.
type Snapshot struct {
	CapturedAt time.Time
	Products   []Product
}

// MergeStats summarizes the effect of a merge on a snapshot.
type MergeStats struct {
	Updated int
	Added   int
	Total   int
}

// IsValid reports whether the snapshot is younger than SnapshotStaleAfter at now.
func (s Snapshot) IsValid(now time.Time) bool {
	if s.CapturedAt.IsZero() {
		return false
	}
	return now.Sub(s.CapturedAt) < SnapshotStaleAfter
}

// Age returns how long ago the snapshot was captured.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CapturedAt)
}

// Merge reconciles incoming products into the snapshot by SKU. Matching
// entries get the incoming price and stock in place; unknown SKUs are appended
// in arrival order. Entries absent from incoming are never removed.
// CapturedAt is set to capturedAt whether or not anything changed.
func (s *Snapshot) Merge(incoming []Product, capturedAt time.Time) MergeStats {
	index := make(map[string]int, len(s.Products)+len(incoming))
	for i, p := range s.Products {
		index[p.SKU] = i
	}

	var stats MergeStats
	for _, p := range incoming {
		if i, ok := index[p.SKU]; ok {
			s.Products[i].Price = p.Price
			s.Products[i].Stock = p.Stock
			stats.Updated++
			continue
		}
		index[p.SKU] = len(s.Products)
		s.Products = append(s.Products, p)
		stats.Added++
	}

	s.CapturedAt = capturedAt
	stats.Total = len(s.Products)
	return stats
}

// UniqueProducts returns products with duplicate SKUs collapsed. The first
// occurrence keeps its position; later duplicates overwrite its fields.
func UniqueProducts(products []Product) []Product {
	out := make([]Product, 0, len(products))
	index := make(map[string]int, len(products))
	for _, p := range products {
		if i, ok := index[p.SKU]; ok {
			out[i] = p
			continue
		}
		index[p.SKU] = len(out)
		out = append(out, p)
	}
	return out
}
