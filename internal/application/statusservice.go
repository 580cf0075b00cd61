package application

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// SystemStatus is the combined credential, snapshot and sync view.
type SystemStatus struct {
	Credential CredentialStatus
	Snapshot   SnapshotInfo
	LastSync   SyncRun
	CheckedAt  time.Time
}

// StatusService assembles read-only introspection for operators. It never
// triggers a sync or a refresh.
type StatusService struct {
	credentials *CredentialRefresher
	cache       *SnapshotCache
	sync        *SyncService
	clock       clockwork.Clock
}

// NewStatusService creates a StatusService with the required dependencies.
func NewStatusService(credentials *CredentialRefresher, cache *SnapshotCache, sync *SyncService, clock clockwork.Clock) *StatusService {
	return &StatusService{
		credentials: credentials,
		cache:       cache,
		sync:        sync,
		clock:       clock,
	}
}

// Status returns the current system status.
func (s *StatusService) Status(ctx context.Context) SystemStatus {
	return SystemStatus{
		Credential: s.credentials.Status(ctx),
		Snapshot:   s.cache.Info(ctx),
		LastSync:   s.sync.LastRun(),
		CheckedAt:  s.clock.Now(),
	}
}
