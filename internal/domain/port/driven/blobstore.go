package driven

import "context"

// Well-known blob names for the two records owned by the sync subsystem.
const (
	BlobCredential = "credential"
	BlobSnapshot   = "snapshot"
)

// BlobStore persists opaque records under fixed names. Put must give
// all-or-nothing visibility: a concurrent Get never observes a partial write.
type BlobStore interface {
	// Get returns the stored bytes, or ErrBlobNotFound.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put stores or replaces the record under name.
	Put(ctx context.Context, name string, data []byte) error
	// Has reports whether a record exists under name.
	Has(ctx context.Context, name string) (bool, error)
}
