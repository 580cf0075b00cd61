package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/storefront/internal/adapter/driven/blobstate"
	"github.com/ericfisherdev/storefront/internal/adapter/driven/memstore"
	"github.com/ericfisherdev/storefront/internal/app"
	"github.com/ericfisherdev/storefront/internal/domain/model"
)

type stubExchanger struct{}

func (stubExchanger) ExchangeRefreshToken(context.Context, string) (*model.TokenGrant, error) {
	return &model.TokenGrant{AccessToken: "A2", ExpiresIn: 21600}, nil
}

func (stubExchanger) ExchangeAuthorizationCode(_ context.Context, code string) (*model.TokenGrant, error) {
	return &model.TokenGrant{AccessToken: "A-" + code, RefreshToken: "R1", ExpiresIn: 21600}, nil
}

func (stubExchanger) AuthorizeURL(state string) string {
	return "https://upstream.example/authorize?state=" + state
}

type stubCatalog struct{ products []model.Product }

func (c stubCatalog) FetchAll(context.Context, string) ([]model.Product, error) {
	return c.products, nil
}

// harness runs CLI commands against one shared in-memory store.
type harness struct {
	blobs *memstore.Store
	clock clockwork.FakeClock
}

func newHarness() *harness {
	return &harness{
		blobs: memstore.New(),
		clock: clockwork.NewFakeClockAt(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)),
	}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var cli CLI
	parser, err := kong.New(&cli, kong.Name(cliName), kong.Description(cliDescription))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)

	var out bytes.Buffer
	rt := &runtime{
		ctx: context.Background(),
		out: &out,
		open: func(context.Context) (*app.App, error) {
			catalog := stubCatalog{products: []model.Product{
				{SKU: "A", Name: "Caneta", Price: decimal.RequireFromString("2.35"), Stock: 4},
				{SKU: "B", Name: "Caderno", Price: decimal.RequireFromString("12"), Stock: 0},
			}}
			return app.Wire(h.blobs, blobstate.NewTaxCodeRepo(h.blobs), stubExchanger{}, catalog, h.clock), nil
		},
	}

	err = kctx.Run(rt)
	return out.String(), err
}

func TestParse(t *testing.T) {
	tests := []struct {
		args    []string
		command string
	}{
		{[]string{"setup", "abc"}, "setup <code>"},
		{[]string{"sync", "--full"}, "sync"},
		{[]string{"status"}, "status"},
		{[]string{"authorize-url"}, "authorize-url"},
		{[]string{"tax", "set", "ipi", "9608.10.00", "10"}, "tax set <table> <key> <value>"},
		{[]string{"health", "--addr", "0.0.0.0:9000"}, "health"},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			var cli CLI
			parser, err := kong.New(&cli)
			require.NoError(t, err)

			kctx, err := parser.Parse(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.command, kctx.Command())
		})
	}
}

func TestParse_RejectsUnknownTable(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli)
	require.NoError(t, err)

	_, err = parser.Parse([]string{"tax", "list", "icms"})
	require.Error(t, err)
}

func TestSetupSyncStatus(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "configured=false")

	_, err = h.run(t, "sync")
	require.Error(t, err, "sync before setup")

	out, err = h.run(t, "setup", "abc")
	require.NoError(t, err)
	assert.Contains(t, out, "valid until 2026-04-01T18:00:00Z")
	assert.Contains(t, out, "sync merge: fetched=2 updated=0 added=2 total=2")

	out, err = h.run(t, "sync", "--full")
	require.NoError(t, err)
	assert.Contains(t, out, "sync replace: fetched=2")

	out, err = h.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "configured=true")
	assert.Contains(t, out, "products=2")
	assert.Contains(t, out, "valid=true")
}

func TestSetup_NoWarm(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "setup", "abc", "--no-warm")
	require.NoError(t, err)
	assert.NotContains(t, out, "sync")
}

func TestAuthorizeURL(t *testing.T) {
	out, err := newHarness().run(t, "authorize-url")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "https://upstream.example/authorize?state="))
}

func TestTaxCommands(t *testing.T) {
	h := newHarness()

	_, err := h.run(t, "tax", "set", "ncm", "B", "4820.20.00")
	require.NoError(t, err)
	_, err = h.run(t, "tax", "set", "ncm", "A", "9608.10.00")
	require.NoError(t, err)
	_, err = h.run(t, "tax", "set", "ipi", "9608.10.00", "150")
	require.Error(t, err)

	out, err := h.run(t, "tax", "list", "ncm")
	require.NoError(t, err)
	assert.Equal(t, "A  9608.10.00\nB  4820.20.00\n", out)

	_, err = h.run(t, "tax", "delete", "ncm", "A")
	require.NoError(t, err)

	out, err = h.run(t, "tax", "list", "ncm")
	require.NoError(t, err)
	assert.Equal(t, "B  4820.20.00\n", out)
}

func TestHealth(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer ok.Close()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	h := newHarness()

	_, err := h.run(t, "health", "--addr", strings.TrimPrefix(ok.URL, "http://"))
	require.NoError(t, err)

	_, err = h.run(t, "health", "--addr", strings.TrimPrefix(down.URL, "http://"))
	require.Error(t, err)
}

func TestNormalizeAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", normalizeAddr(""))
	assert.Equal(t, "127.0.0.1:8080", normalizeAddr("garbage"))
	assert.Equal(t, "127.0.0.1:9090", normalizeAddr("0.0.0.0:9090"))
	assert.Equal(t, "127.0.0.1:9090", normalizeAddr(":9090"))
	assert.Equal(t, "10.0.0.5:80", normalizeAddr("10.0.0.5:80"))
}
