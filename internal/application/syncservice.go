// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/storefront/internal/domain/model"
	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// ErrNoProducts is returned when a sync fetched nothing at all.
var ErrNoProducts = errors.New("upstream returned no products")

// SyncMode selects how fetched products are applied to the snapshot.
type SyncMode string

const (
	SyncModeMerge   SyncMode = "merge"
	SyncModeReplace SyncMode = "replace"
)

// SyncResult describes one completed sync.
type SyncResult struct {
	Mode     SyncMode
	Fetched  int
	Stats    model.MergeStats
	Partial  bool
	SyncedAt time.Time
	Duration time.Duration
}

// SyncRun is the outcome of the most recent sync attempt.
type SyncRun struct {
	AttemptedAt time.Time
	Result      *SyncResult
	Err         error
}

// AccessTokenSource yields an upstream access token that is safe to use now.
type AccessTokenSource interface {
	ObtainUsable(ctx context.Context) (string, error)
}

// SyncService keeps the snapshot fresh: credential, then catalog, then cache.
// Concurrent callers share a single in-flight sync.
type SyncService struct {
	tokens  AccessTokenSource
	catalog driven.CatalogClient
	cache   *SnapshotCache
	clock   clockwork.Clock
	flight  singleflight.Group

	mu   sync.RWMutex
	last SyncRun
}

// NewSyncService creates a SyncService with all required dependencies.
func NewSyncService(
	tokens AccessTokenSource,
	catalog driven.CatalogClient,
	cache *SnapshotCache,
	clock clockwork.Clock,
) *SyncService {
	return &SyncService{
		tokens:  tokens,
		catalog: catalog,
		cache:   cache,
		clock:   clock,
	}
}

// EnsureFresh returns nil when the snapshot is valid, either already or after
// a merge sync. Callers arriving while a sync is running wait for it and
// receive its outcome. The sync itself is not canceled with ctx so a
// disconnecting caller does not abort it for everyone else.
func (s *SyncService) EnsureFresh(ctx context.Context) error {
	if s.cache.IsValid(ctx) {
		return nil
	}
	return s.syncStale(ctx)
}

// FreshSnapshot behaves like EnsureFresh but also returns the stored
// snapshot. A valid snapshot is loaded once. ok reports whether any snapshot
// is stored; it may be set alongside a sync error.
func (s *SyncService) FreshSnapshot(ctx context.Context) (snap model.Snapshot, ok bool, err error) {
	snap, ok = s.cache.Snapshot(ctx)
	if ok && snap.IsValid(s.clock.Now()) {
		return snap, true, nil
	}

	err = s.syncStale(ctx)
	snap, ok = s.cache.Snapshot(ctx)
	return snap, ok, err
}

// syncStale runs a merge sync shared by every concurrent caller.
func (s *SyncService) syncStale(ctx context.Context) error {
	_, err, shared := s.flight.Do("ensure-fresh", func() (any, error) {
		detached := context.WithoutCancel(ctx)
		if s.cache.IsValid(detached) {
			return nil, nil
		}
		return s.run(detached, SyncModeMerge)
	})
	if shared {
		slog.Debug("joined in-flight sync")
	}
	return err
}

// Resync runs a sync regardless of snapshot validity. SyncModeReplace
// overwrites the snapshot, except when the fetch was partial, in which case
// the products are merged so the catalog does not shrink.
func (s *SyncService) Resync(ctx context.Context, mode SyncMode) (*SyncResult, error) {
	v, err, _ := s.flight.Do("resync-"+string(mode), func() (any, error) {
		return s.run(context.WithoutCancel(ctx), mode)
	})
	if err != nil {
		return nil, err
	}
	return v.(*SyncResult), nil
}

// LastRun returns the outcome of the most recent sync attempt.
func (s *SyncService) LastRun() SyncRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Start keeps the snapshot warm by calling EnsureFresh every interval. A
// non-positive interval disables it. Start blocks until ctx is canceled.
func (s *SyncService) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("background sync stopped")
			return
		case <-ticker.Chan():
			if err := s.EnsureFresh(ctx); err != nil {
				slog.Error("background sync failed", "error", err)
			}
		}
	}
}

func (s *SyncService) run(ctx context.Context, mode SyncMode) (*SyncResult, error) {
	start := s.clock.Now()

	result, err := s.sync(ctx, mode, start)

	s.mu.Lock()
	s.last = SyncRun{AttemptedAt: start, Result: result, Err: err}
	s.mu.Unlock()

	if err != nil {
		slog.Error("catalog sync failed", "mode", mode, "error", err)
		return nil, err
	}

	slog.Info("catalog sync complete",
		"mode", result.Mode,
		"fetched", result.Fetched,
		"updated", result.Stats.Updated,
		"added", result.Stats.Added,
		"total", result.Stats.Total,
		"partial", result.Partial,
		"duration", result.Duration.Round(time.Millisecond),
	)
	return result, nil
}

func (s *SyncService) sync(ctx context.Context, mode SyncMode, start time.Time) (*SyncResult, error) {
	token, err := s.tokens.ObtainUsable(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtaining credential: %w", err)
	}

	products, fetchErr := s.catalog.FetchAll(ctx, token)
	if len(products) == 0 {
		if fetchErr != nil {
			return nil, fmt.Errorf("fetching catalog: %w", fetchErr)
		}
		return nil, ErrNoProducts
	}

	partial := fetchErr != nil
	if partial {
		slog.Warn("catalog fetch incomplete, merging partial result", "fetched", len(products), "error", fetchErr)
	}

	applied := mode
	if mode == SyncModeReplace && partial {
		applied = SyncModeMerge
	}

	var stats model.MergeStats
	if applied == SyncModeReplace {
		stats, err = s.cache.ReplaceAll(ctx, products)
	} else {
		stats, err = s.cache.MergeUpdate(ctx, products)
	}
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	return &SyncResult{
		Mode:     applied,
		Fetched:  len(products),
		Stats:    stats,
		Partial:  partial,
		SyncedAt: now,
		Duration: now.Sub(start),
	}, nil
}
