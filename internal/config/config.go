// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends selectable with STOREFRONT_STORAGE.
const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
	StorageMemory = "memory"
)

// Log formats selectable with STOREFRONT_LOG_FORMAT.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	AdminToken string

	// SecretKey encrypts the stored credential at rest when set (32 bytes).
	SecretKey []byte

	Storage string
	DBPath  string
	DataDir string

	ClientID     string
	ClientSecret string
	RedirectURI  string
	APIBaseURL   string
	TokenURL     string
	AuthorizeURL string

	PageDelay        time.Duration
	RateLimitBackoff time.Duration
	RateLimitRetries uint64
	MaxPages         int

	SyncCooldown time.Duration
	WarmInterval time.Duration

	LogLevel  slog.Level
	LogFormat string
}

// HasClientCredentials reports whether the upstream application identity is
// configured. Without it every token exchange fails with
// driven.ErrClientNotConfigured.
func (c *Config) HasClientCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Load reads configuration from environment variables and returns a validated
// Config. A .env file in the working directory is loaded first when present;
// variables already set in the environment win over it.
//
// Every variable is optional. Defaults: STOREFRONT_LISTEN_ADDR (127.0.0.1:8080),
// STOREFRONT_STORAGE (sqlite), STOREFRONT_DB_PATH (storefront.db),
// STOREFRONT_DATA_DIR (data), STOREFRONT_PAGE_DELAY (1s),
// STOREFRONT_RATE_LIMIT_BACKOFF (2s), STOREFRONT_RATE_LIMIT_RETRIES (5),
// STOREFRONT_MAX_PAGES (50), STOREFRONT_SYNC_COOLDOWN (1m),
// STOREFRONT_WARM_INTERVAL (0, disabled), STOREFRONT_LOG_LEVEL (info),
// STOREFRONT_LOG_FORMAT (text). Empty upstream URLs fall back to the adapter
// defaults. STOREFRONT_SECRET_KEY, when set, is a hex-encoded 32-byte key that
// encrypts the stored credential.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		ListenAddr:   envOr("STOREFRONT_LISTEN_ADDR", "127.0.0.1:8080"),
		AdminToken:   os.Getenv("STOREFRONT_ADMIN_TOKEN"),
		Storage:      strings.ToLower(envOr("STOREFRONT_STORAGE", StorageSQLite)),
		DBPath:       envOr("STOREFRONT_DB_PATH", "storefront.db"),
		DataDir:      envOr("STOREFRONT_DATA_DIR", "data"),
		ClientID:     os.Getenv("STOREFRONT_CLIENT_ID"),
		ClientSecret: os.Getenv("STOREFRONT_CLIENT_SECRET"),
		RedirectURI:  os.Getenv("STOREFRONT_REDIRECT_URI"),
		APIBaseURL:   os.Getenv("STOREFRONT_API_BASE_URL"),
		TokenURL:     os.Getenv("STOREFRONT_TOKEN_URL"),
		AuthorizeURL: os.Getenv("STOREFRONT_AUTHORIZE_URL"),
		LogFormat:    strings.ToLower(envOr("STOREFRONT_LOG_FORMAT", LogFormatText)),
	}

	if v := os.Getenv("STOREFRONT_SECRET_KEY"); v != "" {
		key, err := hex.DecodeString(v)
		if err != nil || len(key) != 32 {
			return nil, fmt.Errorf("STOREFRONT_SECRET_KEY must be 64 hex characters (32 bytes)")
		}
		cfg.SecretKey = key
	}

	switch cfg.Storage {
	case StorageSQLite, StorageFile, StorageMemory:
	default:
		return nil, fmt.Errorf("STOREFRONT_STORAGE has invalid value %q: want sqlite, file or memory", cfg.Storage)
	}

	switch cfg.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return nil, fmt.Errorf("STOREFRONT_LOG_FORMAT has invalid value %q: want text or json", cfg.LogFormat)
	}

	if v, ok := os.LookupEnv("STOREFRONT_LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("STOREFRONT_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	var err error
	if cfg.PageDelay, err = durationEnv("STOREFRONT_PAGE_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimitBackoff, err = durationEnv("STOREFRONT_RATE_LIMIT_BACKOFF", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.SyncCooldown, err = durationEnv("STOREFRONT_SYNC_COOLDOWN", time.Minute); err != nil {
		return nil, err
	}
	if cfg.WarmInterval, err = durationEnv("STOREFRONT_WARM_INTERVAL", 0); err != nil {
		return nil, err
	}

	retries, err := intEnv("STOREFRONT_RATE_LIMIT_RETRIES", 5)
	if err != nil {
		return nil, err
	}
	cfg.RateLimitRetries = uint64(retries)

	if cfg.MaxPages, err = intEnv("STOREFRONT_MAX_PAGES", 50); err != nil {
		return nil, err
	}
	if cfg.MaxPages == 0 {
		return nil, fmt.Errorf("STOREFRONT_MAX_PAGES must be at least 1")
	}

	if cfg.SyncCooldown <= 0 {
		return nil, fmt.Errorf("STOREFRONT_SYNC_COOLDOWN must be positive, got %s", cfg.SyncCooldown)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %q", key, v)
	}
	return parsed, nil
}

func intEnv(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid integer %q: %w", key, v, err)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %d", key, parsed)
	}
	return parsed, nil
}
