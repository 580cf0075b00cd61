package driven

import (
	"context"

	"github.com/ericfisherdev/storefront/internal/domain/model"
)

// TokenExchanger defines the driven port for the upstream OAuth token endpoint.
// Both methods return ErrClientNotConfigured when the application identity is
// missing, and a descriptive error for non-2xx or network failures.
type TokenExchanger interface {
	// ExchangeRefreshToken trades a refresh token for a new grant.
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*model.TokenGrant, error)

	// ExchangeAuthorizationCode trades an authorization code for the first grant.
	ExchangeAuthorizationCode(ctx context.Context, code string) (*model.TokenGrant, error)

	// AuthorizeURL returns the upstream consent URL carrying the given state.
	AuthorizeURL(state string) string
}
