package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sethvargo/go-limiter/memorystore"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	httphandler "github.com/ericfisherdev/storefront/internal/adapter/driving/http"
	"github.com/ericfisherdev/storefront/internal/app"
	"github.com/ericfisherdev/storefront/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(app.NewLogger(os.Stderr, cfg))
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"storage", cfg.Storage,
		"db_path", cfg.DBPath,
		"data_dir", cfg.DataDir,
		"client_configured", cfg.HasClientCredentials(),
		"admin_token_set", cfg.AdminToken != "",
	)
	if !cfg.HasClientCredentials() {
		slog.Warn("no upstream client credentials configured, setup and refresh will fail")
	}

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open storage and wire services.
	svc, err := app.New(ctx, cfg, clockwork.NewRealClock())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil {
			slog.Error("error closing storage", "error", closeErr)
		}
	}()

	// 4. Optional background warm-up keeps the snapshot fresh between visits.
	go svc.Sync.Start(ctx, cfg.WarmInterval)

	// 5. One manual resync per client per cooldown.
	syncLimiter, err := memorystore.New(&memorystore.Config{
		Tokens:   1,
		Interval: cfg.SyncCooldown,
	})
	if err != nil {
		return err
	}
	defer func() { _ = syncLimiter.Close(context.Background()) }()

	// 6. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(httphandler.Services{
		Catalog:     svc.Catalog,
		Status:      svc.Status,
		Sync:        svc.Sync,
		Credentials: svc.Credentials,
		Taxes:       svc.Taxes,
		Orders:      svc.Orders,
	}, cfg.AdminToken, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, syncLimiter, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// A cold catalog sync pages through the upstream inside the request.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("storefront started",
		"listen_addr", cfg.ListenAddr,
		"warm_interval", cfg.WarmInterval,
		"sync_cooldown", cfg.SyncCooldown,
	)

	// 7. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 8. Graceful shutdown with 10s timeout for in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
