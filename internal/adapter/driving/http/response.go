package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/storefront/internal/application"
	"github.com/ericfisherdev/storefront/internal/domain/model"
)

// setupPath is where the storefront UI sends an operator to re-authorize.
const setupPath = "/admin-setup"

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body. RedirectTo is set when
// the operator has to re-authorize the upstream connection.
type errorResponse struct {
	Error      string `json:"error"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// ProductResponse is the JSON representation of a catalog product.
type ProductResponse struct {
	SKU   string      `json:"sku"`
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
	Stock int64       `json:"stock"`
}

// PaginationResponse describes the page returned by the products endpoint.
type PaginationResponse struct {
	CurrentPage    int  `json:"current_page"`
	TotalPages     int  `json:"total_pages"`
	TotalProducts  int  `json:"total_products"`
	TotalWithStock int  `json:"total_with_stock"`
	PageSize       int  `json:"page_size"`
	HasMore        bool `json:"has_more"`
}

// ProductListResponse is the body of GET /api/v1/products.
type ProductListResponse struct {
	Products   []ProductResponse  `json:"products"`
	Pagination PaginationResponse `json:"pagination"`
	Stale      bool               `json:"stale"`
	CapturedAt string             `json:"captured_at,omitempty"`
}

// CredentialStatusResponse is the credential half of the status endpoint.
type CredentialStatusResponse struct {
	Configured       bool   `json:"configured"`
	IssuedAt         string `json:"issued_at,omitempty"`
	LastRefreshedAt  string `json:"last_refreshed_at,omitempty"`
	ExpiresAt        string `json:"expires_at,omitempty"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
	IsExpired        bool   `json:"is_expired"`
	IsFresh          bool   `json:"is_fresh"`
}

// SnapshotStatusResponse is the snapshot half of the status endpoint.
type SnapshotStatusResponse struct {
	Exists       bool   `json:"exists"`
	CapturedAt   string `json:"captured_at,omitempty"`
	ProductCount int    `json:"product_count"`
	MinutesAgo   int    `json:"minutes_ago"`
	IsExpired    bool   `json:"is_expired"`
}

// SyncResponse describes a completed sync.
type SyncResponse struct {
	Mode       string `json:"mode"`
	Fetched    int    `json:"fetched"`
	Updated    int    `json:"updated"`
	Added      int    `json:"added"`
	Total      int    `json:"total"`
	Partial    bool   `json:"partial"`
	SyncedAt   string `json:"synced_at"`
	DurationMS int64  `json:"duration_ms"`
}

// LastSyncResponse is the most recent sync attempt.
type LastSyncResponse struct {
	AttemptedAt string        `json:"attempted_at"`
	Result      *SyncResponse `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Credential CredentialStatusResponse `json:"credential"`
	Snapshot   SnapshotStatusResponse   `json:"snapshot"`
	LastSync   *LastSyncResponse        `json:"last_sync"`
	Timestamp  string                   `json:"timestamp"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// SetupRequest is the JSON body for the setup endpoint.
type SetupRequest struct {
	Code string `json:"code"`
}

// SetupResponse confirms a completed authorization.
type SetupResponse struct {
	Configured bool   `json:"configured"`
	ExpiresAt  string `json:"expires_at"`
}

// AuthorizeURLResponse carries the upstream consent URL.
type AuthorizeURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// OrderRequest is the JSON body for the order endpoints.
type OrderRequest struct {
	Items []OrderItemRequest `json:"items"`
}

// OrderItemRequest is one requested order line.
type OrderItemRequest struct {
	SKU      string `json:"sku"`
	Quantity int64  `json:"quantity"`
}

// OrderLineResponse is one priced order line.
type OrderLineResponse struct {
	SKU        string      `json:"sku"`
	Name       string      `json:"name"`
	Quantity   int64       `json:"quantity"`
	UnitPrice  json.Number `json:"unit_price"`
	Total      json.Number `json:"total"`
	NCM        string      `json:"ncm,omitempty"`
	IPIRate    json.Number `json:"ipi_rate"`
	IPIAmount  json.Number `json:"ipi_amount"`
	TotalAfter json.Number `json:"total_with_ipi"`
}

// OrderResponse is a priced order.
type OrderResponse struct {
	Lines      []OrderLineResponse `json:"lines"`
	TotalBase  json.Number         `json:"total_base"`
	TotalIPI   json.Number         `json:"total_ipi"`
	GrandTotal json.Number         `json:"grand_total"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toProductResponse(p model.Product) ProductResponse {
	return ProductResponse{
		SKU:   p.SKU,
		Name:  p.Name,
		Price: json.Number(p.Price.StringFixed(2)),
		Stock: p.Stock,
	}
}

func toProductListResponse(page *application.ProductPage) ProductListResponse {
	products := make([]ProductResponse, 0, len(page.Products))
	for _, p := range page.Products {
		products = append(products, toProductResponse(p))
	}

	return ProductListResponse{
		Products: products,
		Pagination: PaginationResponse{
			CurrentPage:    page.Page,
			TotalPages:     page.TotalPages,
			TotalProducts:  page.TotalInStock,
			TotalWithStock: page.TotalInStock,
			PageSize:       page.PageSize,
			HasMore:        page.HasMore,
		},
		Stale:      page.Stale,
		CapturedAt: formatTime(page.CapturedAt),
	}
}

func toSyncResponse(r *application.SyncResult) *SyncResponse {
	if r == nil {
		return nil
	}
	return &SyncResponse{
		Mode:       string(r.Mode),
		Fetched:    r.Fetched,
		Updated:    r.Stats.Updated,
		Added:      r.Stats.Added,
		Total:      r.Stats.Total,
		Partial:    r.Partial,
		SyncedAt:   formatTime(r.SyncedAt),
		DurationMS: r.Duration.Milliseconds(),
	}
}

func toStatusResponse(s application.SystemStatus) StatusResponse {
	resp := StatusResponse{
		Credential: CredentialStatusResponse{
			Configured:      s.Credential.Configured,
			IssuedAt:        formatTime(s.Credential.IssuedAt),
			LastRefreshedAt: formatTime(s.Credential.LastRefreshedAt),
			ExpiresAt:       formatTime(s.Credential.ExpiresAt),
			IsExpired:       s.Credential.Expired,
			IsFresh:         s.Credential.Fresh,
		},
		Snapshot: SnapshotStatusResponse{
			Exists:       s.Snapshot.Exists,
			CapturedAt:   formatTime(s.Snapshot.CapturedAt),
			ProductCount: s.Snapshot.ProductCount,
			IsExpired:    s.Snapshot.Exists && !s.Snapshot.Valid,
		},
		Timestamp: formatTime(s.CheckedAt),
	}
	if s.Credential.Configured {
		resp.Credential.ExpiresInMinutes = int(s.Credential.ExpiresIn.Minutes())
	}
	if s.Snapshot.Exists {
		resp.Snapshot.MinutesAgo = int(s.Snapshot.Age.Minutes())
	}

	if !s.LastSync.AttemptedAt.IsZero() {
		resp.LastSync = &LastSyncResponse{
			AttemptedAt: formatTime(s.LastSync.AttemptedAt),
			Result:      toSyncResponse(s.LastSync.Result),
		}
		if s.LastSync.Err != nil {
			resp.LastSync.Error = s.LastSync.Err.Error()
		}
	}
	return resp
}

func toOrderResponse(o *model.Order) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineResponse{
			SKU:        l.SKU,
			Name:       l.Name,
			Quantity:   l.Quantity,
			UnitPrice:  json.Number(l.UnitPrice.StringFixed(2)),
			Total:      json.Number(l.Total.StringFixed(2)),
			NCM:        l.NCM,
			IPIRate:    json.Number(l.IPIRate.String()),
			IPIAmount:  json.Number(l.IPIAmount.StringFixed(2)),
			TotalAfter: json.Number(l.TotalAfter.StringFixed(2)),
		})
	}
	return OrderResponse{
		Lines:      lines,
		TotalBase:  json.Number(o.TotalBase.StringFixed(2)),
		TotalIPI:   json.Number(o.TotalIPI.StringFixed(2)),
		GrandTotal: json.Number(o.GrandTotal.StringFixed(2)),
	}
}
