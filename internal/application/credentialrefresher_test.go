package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/storefront/internal/domain/model"
	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

func TestObtainUsable_NotConfigured(t *testing.T) {
	f := newFixture(t)

	_, err := f.refresher.ObtainUsable(context.Background())
	assert.ErrorIs(t, err, driven.ErrNotConfigured)
	assert.Zero(t, f.exchanger.refreshCount())
}

func TestObtainUsable_FreshCredentialNeedsNoExchange(t *testing.T) {
	f := newFixture(t)
	f.storeCredential(t, time.Hour, 21600)

	token, err := f.refresher.ObtainUsable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A1", token)
	assert.Zero(t, f.exchanger.refreshCount())
}

func TestObtainUsable_SafetyMarginBoundary(t *testing.T) {
	tests := []struct {
		name        string
		remaining   time.Duration
		wantRefresh bool
	}{
		{"301s remaining is fresh", 301 * time.Second, false},
		{"299s remaining is stale", 299 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.storeCredential(t, time.Hour-tt.remaining, 3600)

			_, err := f.refresher.ObtainUsable(context.Background())
			require.NoError(t, err)

			if tt.wantRefresh {
				assert.Equal(t, 1, f.exchanger.refreshCount())
			} else {
				assert.Zero(t, f.exchanger.refreshCount())
			}
		})
	}
}

func TestObtainUsable_ExpiredCredentialIsRefreshedOnce(t *testing.T) {
	f := newFixture(t)
	stored := f.storeCredential(t, 6*time.Hour+time.Second, 21600)
	ctx := context.Background()

	token, err := f.refresher.ObtainUsable(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A2", token)
	assert.Equal(t, []string{"R1"}, f.exchanger.refreshes)

	saved, ok := f.credentials.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, "A2", saved.AccessToken)
	assert.Equal(t, "R2", saved.RefreshToken)
	assert.Equal(t, stored.IssuedAt, saved.IssuedAt, "issued_at is preserved")
	assert.Equal(t, epoch, saved.LastRefreshedAt)
	assert.Equal(t, int64(21600), saved.LifetimeSeconds)

	token, err = f.refresher.ObtainUsable(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A2", token)
	assert.Equal(t, 1, f.exchanger.refreshCount(), "second call uses the refreshed credential")
}

func TestObtainUsable_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	f := newFixture(t)
	f.storeCredential(t, 7*time.Hour, 21600)
	f.exchanger.grant = &model.TokenGrant{AccessToken: "A2", ExpiresIn: 3600}

	_, err := f.refresher.ObtainUsable(context.Background())
	require.NoError(t, err)

	saved, ok := f.credentials.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, "R1", saved.RefreshToken)
	assert.Equal(t, int64(3600), saved.LifetimeSeconds)
}

func TestObtainUsable_UpstreamFailureLeavesCredentialUntouched(t *testing.T) {
	f := newFixture(t)
	stored := f.storeCredential(t, 7*time.Hour, 21600)
	f.exchanger.err = errors.New("token endpoint returned 400")

	_, err := f.refresher.ObtainUsable(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrRefreshFailed)

	saved, ok := f.credentials.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, stored, saved)
}

func TestObtainUsable_ClientNotConfiguredIsNotARefreshFailure(t *testing.T) {
	f := newFixture(t)
	f.storeCredential(t, 7*time.Hour, 21600)
	f.exchanger.err = driven.ErrClientNotConfigured

	_, err := f.refresher.ObtainUsable(context.Background())
	assert.ErrorIs(t, err, driven.ErrClientNotConfigured)
	assert.NotErrorIs(t, err, driven.ErrRefreshFailed)
}

func TestObtainUsable_LastRefreshedNeverMovesBackwards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Stored refresh time lies ahead of the local clock but is already stale
	// because the lifetime is shorter than the safety margin.
	future := epoch.Add(time.Minute)
	require.NoError(t, f.credentials.Save(ctx, model.Credential{
		AccessToken:     "A1",
		RefreshToken:    "R1",
		IssuedAt:        future,
		LastRefreshedAt: future,
		LifetimeSeconds: 60,
	}))

	_, err := f.refresher.ObtainUsable(ctx)
	require.NoError(t, err)

	saved, ok := f.credentials.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, future, saved.LastRefreshedAt)
}

func TestObtainUsable_ConcurrentCallersShareOneRefresh(t *testing.T) {
	f := newFixture(t)
	f.storeCredential(t, 7*time.Hour, 21600)

	var wg sync.WaitGroup
	tokens := make([]string, 8)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := f.refresher.ObtainUsable(context.Background())
			assert.NoError(t, err)
			tokens[i] = token
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.exchanger.refreshCount())
	for _, tok := range tokens {
		assert.Equal(t, "A2", tok)
	}
}

func TestAuthorize(t *testing.T) {
	f := newFixture(t)
	f.exchanger.grant = &model.TokenGrant{AccessToken: "A1", RefreshToken: "R1", ExpiresIn: 21600}

	cred, err := f.refresher.Authorize(context.Background(), "code-123")
	require.NoError(t, err)

	assert.Equal(t, []string{"code-123"}, f.exchanger.codes)
	assert.Equal(t, epoch, cred.IssuedAt)
	assert.Equal(t, epoch, cred.LastRefreshedAt)

	saved, ok := f.credentials.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, cred, saved)
}

func TestAuthorize_Failures(t *testing.T) {
	t.Run("empty code", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.refresher.Authorize(context.Background(), "")
		assert.Error(t, err)
		assert.Empty(t, f.exchanger.codes)
	})

	t.Run("upstream rejects", func(t *testing.T) {
		f := newFixture(t)
		f.exchanger.err = errors.New("invalid_grant")
		_, err := f.refresher.Authorize(context.Background(), "code")
		assert.Error(t, err)
		assert.False(t, f.credentials.Exists(context.Background()))
	})

	t.Run("grant without refresh token", func(t *testing.T) {
		f := newFixture(t)
		f.exchanger.grant = &model.TokenGrant{AccessToken: "A1", ExpiresIn: 60}
		_, err := f.refresher.Authorize(context.Background(), "code")
		assert.Error(t, err)
		assert.False(t, f.credentials.Exists(context.Background()))
	})
}

func TestCredentialStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.False(t, f.refresher.Status(ctx).Configured)

	f.storeCredential(t, 5*time.Hour, 21600)
	status := f.refresher.Status(ctx)

	assert.True(t, status.Configured)
	assert.Equal(t, time.Hour, status.ExpiresIn)
	assert.True(t, status.Fresh)
	assert.False(t, status.Expired)

	f.clock.Advance(2 * time.Hour)
	status = f.refresher.Status(ctx)
	assert.Equal(t, -time.Hour, status.ExpiresIn)
	assert.False(t, status.Fresh)
	assert.True(t, status.Expired)
}

func TestAuthorizeURL(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "https://upstream.example/authorize?state=s1", f.refresher.AuthorizeURL("s1"))
}
