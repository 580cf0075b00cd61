package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/storefront/internal/adapter/driven/blobstate"
	"github.com/ericfisherdev/storefront/internal/adapter/driven/memstore"
	"github.com/ericfisherdev/storefront/internal/application"
	"github.com/ericfisherdev/storefront/internal/domain/model"
)

var epoch = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

// --- Mock implementations ---

type mockExchanger struct {
	mu          sync.Mutex
	refreshes   []string
	codes       []string
	grant       *model.TokenGrant
	err         error
	beforeReply func()
}

func (m *mockExchanger) ExchangeRefreshToken(_ context.Context, refreshToken string) (*model.TokenGrant, error) {
	m.mu.Lock()
	m.refreshes = append(m.refreshes, refreshToken)
	hook := m.beforeReply
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if m.err != nil {
		return nil, m.err
	}
	g := *m.grant
	return &g, nil
}

func (m *mockExchanger) ExchangeAuthorizationCode(_ context.Context, code string) (*model.TokenGrant, error) {
	m.mu.Lock()
	m.codes = append(m.codes, code)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	g := *m.grant
	return &g, nil
}

func (m *mockExchanger) AuthorizeURL(state string) string {
	return "https://upstream.example/authorize?state=" + state
}

func (m *mockExchanger) refreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.refreshes)
}

type mockCatalog struct {
	mu       sync.Mutex
	calls    int
	tokens   []string
	products []model.Product
	err      error
	block    chan struct{}
}

func (m *mockCatalog) FetchAll(_ context.Context, accessToken string) ([]model.Product, error) {
	m.mu.Lock()
	m.calls++
	m.tokens = append(m.tokens, accessToken)
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	return m.products, m.err
}

func (m *mockCatalog) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) ObtainUsable(context.Context) (string, error) {
	return s.token, s.err
}

type failingSnapshotStore struct{}

func (failingSnapshotStore) Load(context.Context) (model.Snapshot, bool) { return model.Snapshot{}, false }
func (failingSnapshotStore) Save(context.Context, model.Snapshot) error {
	return errors.New("disk full")
}

// --- Fixtures ---

type fixture struct {
	clock       clockwork.FakeClock
	credentials *blobstate.CredentialRepo
	snapshots   *blobstate.SnapshotRepo
	taxes       *blobstate.TaxCodeRepo
	exchanger   *mockExchanger
	catalog     *mockCatalog
	refresher   *application.CredentialRefresher
	cache       *application.SnapshotCache
	sync        *application.SyncService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	blobs := memstore.New()
	f := &fixture{
		clock:       clockwork.NewFakeClockAt(epoch),
		credentials: blobstate.NewCredentialRepo(blobs),
		snapshots:   blobstate.NewSnapshotRepo(blobs),
		taxes:       blobstate.NewTaxCodeRepo(blobs),
		exchanger: &mockExchanger{grant: &model.TokenGrant{
			AccessToken:  "A2",
			RefreshToken: "R2",
			ExpiresIn:    21600,
		}},
		catalog: &mockCatalog{},
	}
	f.refresher = application.NewCredentialRefresher(f.credentials, f.exchanger, f.clock)
	f.cache = application.NewSnapshotCache(f.snapshots, f.clock)
	f.sync = application.NewSyncService(f.refresher, f.catalog, f.cache, f.clock)
	return f
}

// storeCredential saves a credential last refreshed age ago.
func (f *fixture) storeCredential(t *testing.T, age time.Duration, lifetime int64) model.Credential {
	t.Helper()

	cred := model.Credential{
		AccessToken:     "A1",
		RefreshToken:    "R1",
		IssuedAt:        epoch.Add(-48 * time.Hour),
		LastRefreshedAt: epoch.Add(-age),
		LifetimeSeconds: lifetime,
	}
	require.NoError(t, f.credentials.Save(context.Background(), cred))
	return cred
}

// storeSnapshot saves a snapshot captured age ago.
func (f *fixture) storeSnapshot(t *testing.T, age time.Duration, products ...model.Product) {
	t.Helper()
	require.NoError(t, f.snapshots.Save(context.Background(), model.Snapshot{
		CapturedAt: epoch.Add(-age),
		Products:   products,
	}))
}

func product(sku, price string, stock int64) model.Product {
	return model.Product{
		SKU:   sku,
		Name:  "Produto " + sku,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

func skus(products []model.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.SKU)
	}
	return out
}
