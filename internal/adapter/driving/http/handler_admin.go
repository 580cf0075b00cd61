package httphandler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ericfisherdev/storefront/internal/application"
	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// AuthorizeURL returns the upstream consent URL with a fresh state value.
func (h *Handler) AuthorizeURL(w http.ResponseWriter, _ *http.Request) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		h.logger.Error("failed to generate state", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	state := hex.EncodeToString(buf)

	writeJSON(w, http.StatusOK, AuthorizeURLResponse{
		URL:   h.svc.Credentials.AuthorizeURL(state),
		State: state,
	})
}

// Setup exchanges an authorization code for the shared credential and warms
// the snapshot in the background.
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	var req SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	cred, err := h.svc.Credentials.Authorize(r.Context(), code)
	if err != nil {
		if errors.Is(err, driven.ErrClientNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "upstream client not configured")
			return
		}
		h.logger.Error("authorization failed", "error", err)
		writeError(w, http.StatusBadGateway, "authorization code rejected by upstream")
		return
	}

	// Fire-and-forget warm-up with background context since the HTTP
	// request context will be cancelled after the response is sent.
	go func() {
		if err := h.svc.Sync.EnsureFresh(context.Background()); err != nil {
			h.logger.Error("post-setup sync failed", "error", err)
		}
	}()

	writeJSON(w, http.StatusOK, SetupResponse{
		Configured: true,
		ExpiresAt:  formatTime(cred.ExpiresAt()),
	})
}

// Sync forces a catalog sync. ?full=true replaces the snapshot instead of
// merging into it.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	mode := application.SyncModeMerge
	if r.URL.Query().Get("full") == "true" {
		mode = application.SyncModeReplace
	}

	result, err := h.svc.Sync.Resync(r.Context(), mode)
	if err != nil {
		h.writeSyncError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSyncResponse(result))
}
