package blobstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/storefront/internal/domain/model"
	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// credentialRecord is the persisted layout. Timestamps are unix milliseconds.
type credentialRecord struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	CreatedAt    int64  `json:"created_at"`
	LastRefresh  int64  `json:"last_refresh"`
}

// CredentialRepo implements driven.CredentialStore on top of a BlobStore.
type CredentialRepo struct {
	blobs driven.BlobStore
}

// NewCredentialRepo creates a CredentialRepo backed by blobs.
func NewCredentialRepo(blobs driven.BlobStore) *CredentialRepo {
	return &CredentialRepo{blobs: blobs}
}

// Exists reports whether a credential record has ever been written.
func (r *CredentialRepo) Exists(ctx context.Context) bool {
	has, err := r.blobs.Has(ctx, driven.BlobCredential)
	if err != nil {
		slog.Warn("credential existence check failed", "error", err)
		return false
	}
	return has
}

// Load reads and decodes the stored credential. Missing, unreadable and
// incomplete records are all reported as absent.
func (r *CredentialRepo) Load(ctx context.Context) (model.Credential, bool) {
	data, err := r.blobs.Get(ctx, driven.BlobCredential)
	if errors.Is(err, driven.ErrBlobNotFound) {
		return model.Credential{}, false
	}
	if err != nil {
		slog.Error("credential read failed, treating as absent", "error", err)
		return model.Credential{}, false
	}

	var rec credentialRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Error("credential record corrupt, treating as absent", "error", err)
		return model.Credential{}, false
	}
	if rec.AccessToken == "" || rec.RefreshToken == "" {
		slog.Error("credential record incomplete, treating as absent",
			"has_access_token", rec.AccessToken != "",
			"has_refresh_token", rec.RefreshToken != "",
		)
		return model.Credential{}, false
	}

	return model.Credential{
		AccessToken:     rec.AccessToken,
		RefreshToken:    rec.RefreshToken,
		IssuedAt:        time.UnixMilli(rec.CreatedAt).UTC(),
		LastRefreshedAt: time.UnixMilli(rec.LastRefresh).UTC(),
		LifetimeSeconds: rec.ExpiresIn,
	}, true
}

// Save encodes and overwrites the stored credential.
func (r *CredentialRepo) Save(ctx context.Context, cred model.Credential) error {
	data, err := json.MarshalIndent(credentialRecord{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		ExpiresIn:    cred.LifetimeSeconds,
		CreatedAt:    cred.IssuedAt.UnixMilli(),
		LastRefresh:  cred.LastRefreshedAt.UnixMilli(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	if err := r.blobs.Put(ctx, driven.BlobCredential, data); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}
