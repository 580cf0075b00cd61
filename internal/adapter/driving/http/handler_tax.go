package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ericfisherdev/storefront/internal/application"
	"github.com/ericfisherdev/storefront/internal/domain/model"
)

// ListTaxCodes returns every entry in the NCM or IPI table.
func (h *Handler) ListTaxCodes(w http.ResponseWriter, r *http.Request) {
	table := model.TaxTable(r.PathValue("table"))

	codes, err := h.svc.Taxes.List(r.Context(), table)
	if err != nil {
		h.writeTaxError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, codes)
}

// SetTaxCodes upserts a JSON object of key -> value pairs into a table.
func (h *Handler) SetTaxCodes(w http.ResponseWriter, r *http.Request) {
	table := model.TaxTable(r.PathValue("table"))

	var entries map[string]string
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: expected an object of string values")
		return
	}

	if err := h.svc.Taxes.SetMany(r.Context(), table, entries); err != nil {
		h.writeTaxError(w, err)
		return
	}

	codes, err := h.svc.Taxes.List(r.Context(), table)
	if err != nil {
		h.writeTaxError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, codes)
}

// DeleteTaxCode removes one entry from a table.
func (h *Handler) DeleteTaxCode(w http.ResponseWriter, r *http.Request) {
	table := model.TaxTable(r.PathValue("table"))

	if err := h.svc.Taxes.Delete(r.Context(), table, r.PathValue("key")); err != nil {
		h.writeTaxError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeTaxError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrUnknownTaxTable):
		writeError(w, http.StatusNotFound, "unknown tax table")
	case errors.Is(err, application.ErrInvalidTaxValue):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("tax table operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
