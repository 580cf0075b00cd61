// Package httphandler is the REST driving adapter for the storefront API.
package httphandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sethvargo/go-limiter"

	"github.com/ericfisherdev/storefront/internal/application"
	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// Services groups the application services the API exposes.
type Services struct {
	Catalog     *application.CatalogService
	Status      *application.StatusService
	Sync        *application.SyncService
	Credentials *application.CredentialRefresher
	Taxes       *application.TaxService
	Orders      *application.OrderService
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	svc        Services
	adminToken string
	logger     *slog.Logger
}

// NewHandler creates a Handler. An empty adminToken leaves the admin routes
// open, matching a deployment behind a trusted proxy.
func NewHandler(svc Services, adminToken string, logger *slog.Logger) *Handler {
	return &Handler{
		svc:        svc,
		adminToken: adminToken,
		logger:     logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware. syncLimiter throttles manual resyncs
// per client address.
func NewServeMux(h *Handler, syncLimiter limiter.Store, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/products", h.ListProducts)
	mux.HandleFunc("GET /api/v1/status", h.Status)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.Handle("GET /api/v1/admin/authorize-url", h.admin(h.AuthorizeURL))
	mux.Handle("POST /api/v1/admin/setup", h.admin(h.Setup))
	mux.Handle("POST /api/v1/sync", h.admin(rateLimitMiddleware(syncLimiter, logger, http.HandlerFunc(h.Sync)).ServeHTTP))

	mux.HandleFunc("GET /api/v1/tax/{table}", h.ListTaxCodes)
	mux.Handle("PUT /api/v1/tax/{table}", h.admin(h.SetTaxCodes))
	mux.Handle("DELETE /api/v1/tax/{table}/{key}", h.admin(h.DeleteTaxCode))

	mux.HandleFunc("POST /api/v1/orders/quote", h.QuoteOrder)
	mux.HandleFunc("POST /api/v1/orders/export", h.ExportOrder)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

func (h *Handler) admin(fn http.HandlerFunc) http.Handler {
	return requireAdminToken(h.adminToken, fn)
}

// ListProducts returns one page of in-stock products, syncing first when the
// snapshot is stale.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := intQuery(r, "page")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page")
		return
	}
	pageSize, err := intQuery(r, "pageSize")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pageSize")
		return
	}

	result, err := h.svc.Catalog.ListInStock(r.Context(), page, pageSize)
	if err != nil {
		h.writeSyncError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductListResponse(result))
}

// Status reports credential, snapshot and last sync state without touching
// the upstream.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toStatusResponse(h.svc.Status.Status(r.Context())))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeSyncError maps sync failures to responses. Credential problems ask
// the operator to re-authorize.
func (h *Handler) writeSyncError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, driven.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error:      "upstream connection not configured",
			RedirectTo: setupPath,
		})
	case errors.Is(err, driven.ErrRefreshFailed):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error:      "upstream authorization expired",
			RedirectTo: setupPath,
		})
	case errors.Is(err, driven.ErrClientNotConfigured):
		h.logger.Error("upstream client credentials missing", "error", err)
		writeError(w, http.StatusServiceUnavailable, "upstream client not configured")
	default:
		h.logger.Error("catalog sync failed", "error", err)
		writeError(w, http.StatusBadGateway, "catalog sync failed")
	}
}

// intQuery parses an optional integer query parameter; absent yields 0.
func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
