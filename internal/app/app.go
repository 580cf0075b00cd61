// Package app is the composition root shared by the server and the operator
// CLI. It opens the configured storage and wires adapters into services.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/ericfisherdev/storefront/internal/adapter/driven/blobstate"
	"github.com/ericfisherdev/storefront/internal/adapter/driven/bling"
	"github.com/ericfisherdev/storefront/internal/adapter/driven/filestore"
	"github.com/ericfisherdev/storefront/internal/adapter/driven/memstore"
	"github.com/ericfisherdev/storefront/internal/adapter/driven/sealedstore"
	sqliteadapter "github.com/ericfisherdev/storefront/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/storefront/internal/application"
	"github.com/ericfisherdev/storefront/internal/config"
	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// App holds the wired services and the resources backing them.
type App struct {
	Credentials *application.CredentialRefresher
	Cache       *application.SnapshotCache
	Sync        *application.SyncService
	Catalog     *application.CatalogService
	Status      *application.StatusService
	Taxes       *application.TaxService
	Orders      *application.OrderService

	closers []io.Closer
}

// storage is the set of driven ports backed by one storage mode.
type storage struct {
	blobs   driven.BlobStore
	taxes   driven.TaxCodeStore
	closers []io.Closer
}

// New opens the storage selected by cfg and wires every service on top of
// it using the real upstream adapters.
func New(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (*App, error) {
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.SecretKey != nil {
		sealed, err := sealedstore.New(store.blobs, cfg.SecretKey)
		if err != nil {
			_ = closeAll(store.closers)
			return nil, err
		}
		store.blobs = sealed
		slog.Info("credential encryption enabled")
	}

	exchanger := bling.NewTokenClient(bling.AuthConfig{
		TokenURL:     cfg.TokenURL,
		AuthorizeURL: cfg.AuthorizeURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
	})
	catalog := bling.NewCatalogClient(bling.CatalogConfig{
		BaseURL:          cfg.APIBaseURL,
		MaxPages:         cfg.MaxPages,
		PageDelay:        cfg.PageDelay,
		RateLimitBackoff: cfg.RateLimitBackoff,
		RateLimitRetries: cfg.RateLimitRetries,
		Clock:            clock,
	})

	return Wire(store.blobs, store.taxes, exchanger, catalog, clock, store.closers...), nil
}

// Wire builds the services over already-constructed adapters. closers are
// released by Close in reverse order.
func Wire(
	blobs driven.BlobStore,
	taxes driven.TaxCodeStore,
	exchanger driven.TokenExchanger,
	catalog driven.CatalogClient,
	clock clockwork.Clock,
	closers ...io.Closer,
) *App {
	credentials := application.NewCredentialRefresher(blobstate.NewCredentialRepo(blobs), exchanger, clock)
	cache := application.NewSnapshotCache(blobstate.NewSnapshotRepo(blobs), clock)
	syncSvc := application.NewSyncService(credentials, catalog, cache, clock)

	return &App{
		Credentials: credentials,
		Cache:       cache,
		Sync:        syncSvc,
		Catalog:     application.NewCatalogService(syncSvc),
		Status:      application.NewStatusService(credentials, cache, syncSvc, clock),
		Taxes:       application.NewTaxService(taxes),
		Orders:      application.NewOrderService(cache, taxes),
		closers:     closers,
	}
}

// Close releases the storage resources.
func (a *App) Close() error {
	return closeAll(a.closers)
}

func closeAll(closers []io.Closer) error {
	var firstErr error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func openStorage(ctx context.Context, cfg *config.Config) (storage, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		// Dual reader/writer with WAL mode.
		db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
		if err != nil {
			return storage{}, err
		}
		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			_ = db.Close()
			return storage{}, err
		}
		slog.Info("database opened", "path", cfg.DBPath)
		return storage{
			blobs:   sqliteadapter.NewBlobRepo(db),
			taxes:   sqliteadapter.NewTaxCodeRepo(db),
			closers: []io.Closer{db},
		}, nil

	case config.StorageFile:
		fs, err := filestore.New(cfg.DataDir)
		if err != nil {
			return storage{}, err
		}
		slog.Info("file storage opened", "dir", cfg.DataDir)
		return storage{blobs: fs, taxes: blobstate.NewTaxCodeRepo(fs)}, nil

	case config.StorageMemory:
		slog.Warn("using in-memory storage, state is lost on exit")
		mem := memstore.New()
		return storage{blobs: mem, taxes: blobstate.NewTaxCodeRepo(mem)}, nil

	default:
		return storage{}, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}

// NewLogger builds the process logger from the configured level and format.
func NewLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
