// Package bling implements the TokenExchanger and CatalogClient ports against
// the Bling ERP v3 REST API.
package bling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/gregjones/httpcache"
	"github.com/jonboulle/clockwork"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tidwall/gjson"

	"github.com/ericfisherdev/storefront/internal/domain/model"
	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CatalogClient = (*CatalogClient)(nil)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://www.bling.com.br/Api/v3"

// Catalog paging defaults. The upstream documents a limit of three requests
// per second; one second between pages keeps a sync well under it.
const (
	DefaultPageSize           = 100
	DefaultMaxPages           = 50
	DefaultPageDelay          = time.Second
	DefaultRateLimitBackoff   = 2 * time.Second
	DefaultRateLimitRetries   = 5
	defaultRequestTimeout     = 30 * time.Second
	maxErrorBodyInLogMessages = 200
)

// errRateLimited marks an HTTP 429; it is the only retryable page error.
var errRateLimited = errors.New("rate limited by upstream")

// CatalogConfig tunes catalog pagination. Zero values select the defaults.
type CatalogConfig struct {
	BaseURL          string
	PageSize         int
	MaxPages         int
	PageDelay        time.Duration
	RateLimitBackoff time.Duration
	RateLimitRetries uint64
	Clock            clockwork.Clock
}

func (c CatalogConfig) withDefaults() CatalogConfig {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.PageDelay <= 0 {
		c.PageDelay = DefaultPageDelay
	}
	if c.RateLimitBackoff <= 0 {
		c.RateLimitBackoff = DefaultRateLimitBackoff
	}
	if c.RateLimitRetries == 0 {
		c.RateLimitRetries = DefaultRateLimitRetries
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return c
}

// CatalogClient pages through /produtos. Pages are fetched strictly in
// sequence; a 429 is retried on the same page with a constant backoff.
type CatalogClient struct {
	http      *resty.Client
	cfg       CatalogConfig
	sanitizer *bluemonday.Policy
}

// NewCatalogClient creates a CatalogClient with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. resty (request building, bearer auth, timeouts)
func NewCatalogClient(cfg CatalogConfig) *CatalogClient {
	httpClient := &http.Client{Transport: httpcache.NewMemoryCacheTransport()}
	return NewCatalogClientWithHTTPClient(httpClient, cfg)
}

// NewCatalogClientWithHTTPClient creates a CatalogClient on a caller-supplied
// http.Client. Tests use it to point the client at an httptest server.
func NewCatalogClientWithHTTPClient(httpClient *http.Client, cfg CatalogConfig) *CatalogClient {
	cfg = cfg.withDefaults()

	client := resty.NewWithClient(httpClient).
		SetBaseURL(cfg.BaseURL).
		SetTimeout(defaultRequestTimeout).
		SetHeader("Accept", "application/json")

	return &CatalogClient{
		http:      client,
		cfg:       cfg,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// pageResult carries the normalized products of one page and the number of
// raw records the upstream returned, which decides whether paging continues.
type pageResult struct {
	products []model.Product
	raw      int
}

// FetchAll retrieves every catalog page with accessToken. Paging stops on a
// short or empty page, or after MaxPages. Any failure other than a recovered
// 429 ends paging; the products gathered so far are returned together with an
// error wrapping driven.ErrFetchIncomplete.
func (c *CatalogClient) FetchAll(ctx context.Context, accessToken string) ([]model.Product, error) {
	var products []model.Product

	for page := 1; page <= c.cfg.MaxPages; page++ {
		if page > 1 {
			if err := c.sleep(ctx, c.cfg.PageDelay); err != nil {
				return products, fmt.Errorf("%w before page %d: %w", driven.ErrFetchIncomplete, page, err)
			}
		}

		result, err := c.fetchPageWithRetry(ctx, accessToken, page)
		if err != nil {
			slog.Warn("catalog paging stopped early", "page", page, "fetched", len(products), "error", err)
			return products, fmt.Errorf("%w at page %d: %w", driven.ErrFetchIncomplete, page, err)
		}

		products = append(products, result.products...)
		slog.Debug("catalog page fetched", "page", page, "records", result.raw, "total", len(products))

		if result.raw < c.cfg.PageSize {
			return products, nil
		}
	}

	slog.Warn("catalog page cap reached, remaining pages skipped", "max_pages", c.cfg.MaxPages, "fetched", len(products))
	return products, nil
}

func (c *CatalogClient) fetchPageWithRetry(ctx context.Context, accessToken string, page int) (pageResult, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.RateLimitBackoff), c.cfg.RateLimitRetries),
		ctx,
	)

	operation := func() (pageResult, error) {
		result, err := c.fetchPage(ctx, accessToken, page)
		if err != nil && !errors.Is(err, errRateLimited) {
			return pageResult{}, backoff.Permanent(err)
		}
		return result, err
	}

	notify := func(_ error, wait time.Duration) {
		slog.Info("catalog rate limited, retrying page", "page", page, "backoff", wait)
	}

	return backoff.RetryNotifyWithData(operation, policy, notify)
}

func (c *CatalogClient) fetchPage(ctx context.Context, accessToken string, page int) (pageResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetQueryParams(map[string]string{
			"pagina": strconv.Itoa(page),
			"limite": strconv.Itoa(c.cfg.PageSize),
		}).
		Get("/produtos")
	if err != nil {
		return pageResult{}, fmt.Errorf("requesting page %d: %w", page, err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		return pageResult{}, errRateLimited
	}
	if resp.IsError() {
		return pageResult{}, fmt.Errorf("page %d: upstream returned %d: %s", page, resp.StatusCode(), truncate(resp.String()))
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return pageResult{}, fmt.Errorf("page %d: response is not valid JSON", page)
	}

	records := gjson.GetBytes(body, "data").Array()
	result := pageResult{
		products: make([]model.Product, 0, len(records)),
		raw:      len(records),
	}
	for _, rec := range records {
		p, ok := normalizeProduct(rec, c.sanitizer)
		if !ok {
			slog.Debug("catalog record without identity skipped", "page", page)
			continue
		}
		result.products = append(result.products, p)
	}
	return result, nil
}

// sleep waits d on the configured clock, returning early when ctx is done.
func (c *CatalogClient) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.cfg.Clock.After(d):
		return nil
	}
}

func truncate(s string) string {
	if len(s) <= maxErrorBodyInLogMessages {
		return s
	}
	return s[:maxErrorBodyInLogMessages] + "..."
}
