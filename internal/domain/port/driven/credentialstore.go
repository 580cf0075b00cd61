package driven

import (
	"context"

	"github.com/ericfisherdev/storefront/internal/domain/model"
)

// CredentialStore defines the driven port for the single shared credential.
// It provides no concurrency control; writers are serialized by the caller.
type CredentialStore interface {
	// Exists reports whether a credential has ever been persisted.
	Exists(ctx context.Context) bool

	// Load returns the stored credential. ok is false when nothing was
	// persisted or the stored record is unreadable; the adapter logs the latter.
	Load(ctx context.Context) (cred model.Credential, ok bool)

	// Save overwrites the stored credential.
	Save(ctx context.Context, cred model.Credential) error
}
