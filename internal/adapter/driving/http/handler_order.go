package httphandler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ericfisherdev/storefront/internal/application"
	"github.com/ericfisherdev/storefront/internal/domain/model"
)

var orderCSVHeader = []string{
	"SKU", "Nome", "Quantidade", "Preço", "Total Base", "IPI %", "Valor IPI", "Total com IPI", "NCM",
}

// QuoteOrder prices an order and returns it as JSON.
func (h *Handler) QuoteOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := h.priceOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// ExportOrder prices an order and returns it as a CSV spreadsheet with a
// totals block under the lines.
func (h *Handler) ExportOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := h.priceOrder(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="pedido.csv"`)
	w.WriteHeader(http.StatusOK)

	if err := writeOrderCSV(csv.NewWriter(w), order); err != nil {
		h.logger.Error("failed to write order csv", "error", err)
	}
}

func (h *Handler) priceOrder(w http.ResponseWriter, r *http.Request) (*model.Order, bool) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	items := make([]model.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, model.OrderItem{SKU: it.SKU, Quantity: it.Quantity})
	}

	order, err := h.svc.Orders.Price(r.Context(), items)
	switch {
	case err == nil:
		return order, true
	case errors.Is(err, application.ErrEmptyOrder),
		errors.Is(err, application.ErrInvalidQuantity),
		errors.Is(err, application.ErrUnknownSKU):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("failed to price order", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
	return nil, false
}

func writeOrderCSV(cw *csv.Writer, order *model.Order) error {
	rows := [][]string{orderCSVHeader}
	for _, l := range order.Lines {
		rate := "-"
		if !l.IPIRate.IsZero() {
			rate = l.IPIRate.String() + "%"
		}
		ncm := l.NCM
		if ncm == "" {
			ncm = "N/A"
		}
		rows = append(rows, []string{
			l.SKU,
			l.Name,
			strconv.FormatInt(l.Quantity, 10),
			l.UnitPrice.StringFixed(2),
			l.Total.StringFixed(2),
			rate,
			l.IPIAmount.StringFixed(2),
			l.TotalAfter.StringFixed(2),
			ncm,
		})
	}

	blank := make([]string, len(orderCSVHeader))
	rows = append(rows,
		blank,
		totalsRow("Total Base:", order.TotalBase.StringFixed(2)),
		totalsRow("Total IPI:", order.TotalIPI.StringFixed(2)),
		totalsRow("Total Geral:", order.GrandTotal.StringFixed(2)),
	)

	return cw.WriteAll(rows)
}

func totalsRow(label, value string) []string {
	row := make([]string, len(orderCSVHeader))
	row[3] = label
	row[4] = value
	return row
}
