package driven

import "errors"

var (
	// ErrNotConfigured is returned when no credential has ever been established.
	// The operator must run the authorization flow.
	ErrNotConfigured = errors.New("credential not configured: authorization required")

	// ErrRefreshFailed is returned when the upstream rejected a refresh attempt.
	// It is terminal until an operator re-authorizes.
	ErrRefreshFailed = errors.New("credential refresh failed: re-authorization required")

	// ErrClientNotConfigured is returned when the application client id or
	// secret is missing. It is a configuration error and is never retried.
	ErrClientNotConfigured = errors.New("upstream client id/secret not configured")

	// ErrFetchIncomplete is returned alongside a partial result when catalog
	// pagination stopped early on a non rate-limit upstream error.
	ErrFetchIncomplete = errors.New("catalog fetch incomplete")

	// ErrBlobNotFound is returned by BlobStore.Get when nothing is stored under the name.
	ErrBlobNotFound = errors.New("blob not found")
)
