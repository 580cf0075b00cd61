package bling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"

	"github.com/ericfisherdev/storefront/internal/domain/model"
	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TokenExchanger = (*TokenClient)(nil)

// OAuth endpoint defaults.
const (
	DefaultTokenURL     = DefaultBaseURL + "/oauth/token"
	DefaultAuthorizeURL = DefaultBaseURL + "/oauth/authorize"
)

// AuthConfig identifies this application to the upstream OAuth server.
type AuthConfig struct {
	TokenURL     string
	AuthorizeURL string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// TokenClient talks to the upstream OAuth token endpoint. Client credentials
// travel as HTTP Basic auth; grant parameters as a form body.
type TokenClient struct {
	http *resty.Client
	cfg  AuthConfig
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// NewTokenClient creates a TokenClient using http.DefaultTransport.
func NewTokenClient(cfg AuthConfig) *TokenClient {
	return NewTokenClientWithHTTPClient(&http.Client{}, cfg)
}

// NewTokenClientWithHTTPClient creates a TokenClient on a caller-supplied
// http.Client.
func NewTokenClientWithHTTPClient(httpClient *http.Client, cfg AuthConfig) *TokenClient {
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = DefaultAuthorizeURL
	}

	client := resty.NewWithClient(httpClient).
		SetTimeout(defaultRequestTimeout).
		SetHeader("Accept", "application/json")

	return &TokenClient{http: client, cfg: cfg}
}

// ExchangeRefreshToken trades refreshToken for a new grant.
func (c *TokenClient) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*model.TokenGrant, error) {
	return c.exchange(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	})
}

// ExchangeAuthorizationCode trades the code returned by the consent screen for
// the first grant.
func (c *TokenClient) ExchangeAuthorizationCode(ctx context.Context, code string) (*model.TokenGrant, error) {
	form := map[string]string{
		"grant_type": "authorization_code",
		"code":       code,
	}
	if c.cfg.RedirectURI != "" {
		form["redirect_uri"] = c.cfg.RedirectURI
	}
	return c.exchange(ctx, form)
}

// AuthorizeURL returns the consent screen URL for this application.
func (c *TokenClient) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.cfg.ClientID)
	q.Set("state", state)
	if c.cfg.RedirectURI != "" {
		q.Set("redirect_uri", c.cfg.RedirectURI)
	}
	return c.cfg.AuthorizeURL + "?" + q.Encode()
}

func (c *TokenClient) exchange(ctx context.Context, form map[string]string) (*model.TokenGrant, error) {
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return nil, driven.ErrClientNotConfigured
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret).
		SetFormData(form).
		Post(c.cfg.TokenURL)
	if err != nil {
		return nil, fmt.Errorf("requesting %s grant: %w", form["grant_type"], err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s grant: token endpoint returned %d: %s",
			form["grant_type"], resp.StatusCode(), truncate(resp.String()))
	}

	var body tokenResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	if body.ExpiresIn <= 0 {
		return nil, fmt.Errorf("token response has invalid expires_in %d", body.ExpiresIn)
	}

	return &model.TokenGrant{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiresIn:    body.ExpiresIn,
	}, nil
}

