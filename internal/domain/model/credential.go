package model

import "time"

// CredentialSafetyMargin is subtracted from the upstream-declared lifetime so
// the credential is refreshed before the upstream actually expires it.
const CredentialSafetyMargin = 5 * time.Minute

// Credential is the single OAuth credential shared by every visitor. It is
// created by the interactive authorization step and mutated in place on each
// refresh. LastRefreshedAt never moves backwards.
type Credential struct {
	AccessToken     string
	RefreshToken    string
	IssuedAt        time.Time
	LastRefreshedAt time.Time
	LifetimeSeconds int64
}

// Lifetime returns the upstream-declared validity window.
func (c Credential) Lifetime() time.Duration {
	return time.Duration(c.LifetimeSeconds) * time.Second
}

// ExpiresAt returns the instant the upstream considers the access token expired.
func (c Credential) ExpiresAt() time.Time {
	return c.LastRefreshedAt.Add(c.Lifetime())
}

// IsFresh reports whether the access token can be used at now without a
// refresh: now - LastRefreshedAt < Lifetime - CredentialSafetyMargin.
func (c Credential) IsFresh(now time.Time) bool {
	return now.Sub(c.LastRefreshedAt) < c.Lifetime()-CredentialSafetyMargin
}

// IsExpired reports whether the upstream lifetime has fully elapsed at now.
func (c Credential) IsExpired(now time.Time) bool {
	return now.Sub(c.LastRefreshedAt) > c.Lifetime()
}

// TokenGrant is the payload returned by the upstream token endpoint.
// RefreshToken is empty when the upstream did not rotate it.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}
