package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/storefront/internal/domain/model"
	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// Order pricing errors.
var (
	ErrEmptyOrder      = errors.New("order has no items")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrUnknownSKU      = errors.New("sku not in catalog")
)

var hundred = decimal.NewFromInt(100)

// OrderService prices sales orders from the cached catalog and the tax
// lookup tables. It never triggers a sync.
type OrderService struct {
	cache *SnapshotCache
	taxes driven.TaxCodeStore
}

// NewOrderService creates an OrderService.
func NewOrderService(cache *SnapshotCache, taxes driven.TaxCodeStore) *OrderService {
	return &OrderService{cache: cache, taxes: taxes}
}

// Price builds a priced order. Repeated SKUs are combined into one line.
// The NCM code comes from the SKU's entry in the NCM table and the IPI rate
// from the NCM code's entry in the IPI table; a missing or malformed rate
// counts as zero. Money is rounded to cents per line.
func (s *OrderService) Price(ctx context.Context, items []model.OrderItem) (*model.Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	catalog := make(map[string]model.Product)
	for _, p := range s.cache.ReadAll(ctx) {
		catalog[p.SKU] = p
	}

	ncmCodes, err := s.taxes.List(ctx, model.TaxTableNCM)
	if err != nil {
		return nil, fmt.Errorf("loading NCM codes: %w", err)
	}
	ipiRates, err := s.taxes.List(ctx, model.TaxTableIPI)
	if err != nil {
		return nil, fmt.Errorf("loading IPI rates: %w", err)
	}

	quantities, order, err := combineItems(items)
	if err != nil {
		return nil, err
	}

	priced := &model.Order{
		TotalBase:  decimal.Zero,
		TotalIPI:   decimal.Zero,
		GrandTotal: decimal.Zero,
	}
	for _, sku := range order {
		p, ok := catalog[sku]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSKU, sku)
		}

		qty := quantities[sku]
		ncm := ncmCodes[sku]
		rate := parseRate(ipiRates[ncm], ncm)

		total := p.Price.Mul(decimal.NewFromInt(qty)).Round(2)
		ipi := total.Mul(rate).Div(hundred).Round(2)

		priced.Lines = append(priced.Lines, model.OrderLine{
			SKU:        sku,
			Name:       p.Name,
			Quantity:   qty,
			UnitPrice:  p.Price,
			Total:      total,
			NCM:        ncm,
			IPIRate:    rate,
			IPIAmount:  ipi,
			TotalAfter: total.Add(ipi),
		})
		priced.TotalBase = priced.TotalBase.Add(total)
		priced.TotalIPI = priced.TotalIPI.Add(ipi)
	}
	priced.GrandTotal = priced.TotalBase.Add(priced.TotalIPI)

	return priced, nil
}

// combineItems sums quantities per SKU, keeping first-seen order.
func combineItems(items []model.OrderItem) (map[string]int64, []string, error) {
	quantities := make(map[string]int64, len(items))
	var order []string
	for _, it := range items {
		sku := strings.TrimSpace(it.SKU)
		if it.Quantity <= 0 {
			return nil, nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, sku)
		}
		if _, seen := quantities[sku]; !seen {
			order = append(order, sku)
		}
		quantities[sku] += it.Quantity
	}
	return quantities, order, nil
}

func parseRate(raw, ncm string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	rate, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if err != nil || rate.IsNegative() {
		slog.Warn("ignoring malformed IPI rate", "ncm", ncm, "value", raw)
		return decimal.Zero
	}
	return rate
}
