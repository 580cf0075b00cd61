package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ericfisherdev/storefront/internal/domain/model"
	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// CredentialStatus is the read-only view of the stored credential.
type CredentialStatus struct {
	Configured      bool
	IssuedAt        time.Time
	LastRefreshedAt time.Time
	ExpiresAt       time.Time
	ExpiresIn       time.Duration // negative once expired
	Fresh           bool
	Expired         bool
}

// CredentialRefresher hands out a usable access token, exchanging the refresh
// token upstream when the stored one is inside the safety margin. Refreshes
// are serialized so a rotated refresh token is never spent twice.
type CredentialRefresher struct {
	store     driven.CredentialStore
	exchanger driven.TokenExchanger
	clock     clockwork.Clock
	mu        sync.Mutex
}

// NewCredentialRefresher creates a CredentialRefresher with all required dependencies.
func NewCredentialRefresher(store driven.CredentialStore, exchanger driven.TokenExchanger, clock clockwork.Clock) *CredentialRefresher {
	return &CredentialRefresher{
		store:     store,
		exchanger: exchanger,
		clock:     clock,
	}
}

// ObtainUsable returns an access token that is valid for at least the safety
// margin. It returns driven.ErrNotConfigured when no credential exists,
// driven.ErrClientNotConfigured when the application identity is missing and
// an error wrapping driven.ErrRefreshFailed when the upstream rejected the
// refresh. On any failure the stored credential is left untouched.
func (r *CredentialRefresher) ObtainUsable(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cred, ok := r.store.Load(ctx)
	if !ok {
		return "", driven.ErrNotConfigured
	}

	now := r.clock.Now()
	if cred.IsFresh(now) {
		return cred.AccessToken, nil
	}

	slog.Info("credential stale, refreshing",
		"last_refreshed_at", cred.LastRefreshedAt,
		"lifetime", cred.Lifetime(),
	)

	grant, err := r.exchanger.ExchangeRefreshToken(ctx, cred.RefreshToken)
	if errors.Is(err, driven.ErrClientNotConfigured) {
		return "", err
	}
	if err != nil {
		slog.Error("credential refresh rejected", "error", err)
		return "", fmt.Errorf("%w: %w", driven.ErrRefreshFailed, err)
	}

	refreshed := applyGrant(cred, grant, r.clock.Now())
	if err := r.store.Save(ctx, refreshed); err != nil {
		return "", fmt.Errorf("persisting refreshed credential: %w", err)
	}

	slog.Info("credential refreshed", "expires_at", refreshed.ExpiresAt())
	return refreshed.AccessToken, nil
}

// Authorize exchanges an authorization code for the first credential and
// persists it, replacing whatever was stored before.
func (r *CredentialRefresher) Authorize(ctx context.Context, code string) (model.Credential, error) {
	if code == "" {
		return model.Credential{}, errors.New("authorization code is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	grant, err := r.exchanger.ExchangeAuthorizationCode(ctx, code)
	if err != nil {
		return model.Credential{}, fmt.Errorf("exchanging authorization code: %w", err)
	}
	if grant.RefreshToken == "" {
		return model.Credential{}, errors.New("authorization grant carried no refresh token")
	}

	now := r.clock.Now()
	cred := model.Credential{
		AccessToken:     grant.AccessToken,
		RefreshToken:    grant.RefreshToken,
		IssuedAt:        now,
		LastRefreshedAt: now,
		LifetimeSeconds: grant.ExpiresIn,
	}
	if err := r.store.Save(ctx, cred); err != nil {
		return model.Credential{}, fmt.Errorf("persisting credential: %w", err)
	}

	slog.Info("credential authorized", "expires_at", cred.ExpiresAt())
	return cred, nil
}

// AuthorizeURL returns the upstream consent URL for the given state.
func (r *CredentialRefresher) AuthorizeURL(state string) string {
	return r.exchanger.AuthorizeURL(state)
}

// Status reports the stored credential's timing without contacting upstream.
func (r *CredentialRefresher) Status(ctx context.Context) CredentialStatus {
	cred, ok := r.store.Load(ctx)
	if !ok {
		return CredentialStatus{}
	}

	now := r.clock.Now()
	return CredentialStatus{
		Configured:      true,
		IssuedAt:        cred.IssuedAt,
		LastRefreshedAt: cred.LastRefreshedAt,
		ExpiresAt:       cred.ExpiresAt(),
		ExpiresIn:       cred.ExpiresAt().Sub(now),
		Fresh:           cred.IsFresh(now),
		Expired:         cred.IsExpired(now),
	}
}

// applyGrant folds a refresh grant into cred. IssuedAt is preserved, the
// refresh token is kept when the upstream did not rotate it and
// LastRefreshedAt never moves backwards.
func applyGrant(cred model.Credential, grant *model.TokenGrant, now time.Time) model.Credential {
	next := cred
	next.AccessToken = grant.AccessToken
	if grant.RefreshToken != "" {
		next.RefreshToken = grant.RefreshToken
	}
	next.LifetimeSeconds = grant.ExpiresIn
	if now.After(cred.LastRefreshedAt) {
		next.LastRefreshedAt = now
	}
	return next
}
