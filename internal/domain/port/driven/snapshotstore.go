package driven

import (
	"context"

	"github.com/ericfisherdev/storefront/internal/domain/model"
)

// SnapshotStore defines the driven port for the persisted catalog snapshot.
// At most one snapshot exists; Save overwrites it.
type SnapshotStore interface {
	// Load returns the stored snapshot. ok is false when nothing was persisted
	// or the stored record is corrupt.
	Load(ctx context.Context) (snap model.Snapshot, ok bool)

	// Save overwrites the stored snapshot.
	Save(ctx context.Context, snap model.Snapshot) error
}
