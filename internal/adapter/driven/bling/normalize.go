package bling

import (
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/ericfisherdev/storefront/internal/domain/model"
)

// stockPaths is the ordered fallback chain for the stock balance. Older API
// responses carry the balance in different places; the first present and
// parseable value wins.
var stockPaths = []string{
	"estoque.saldoVirtualTotal",
	"estoque.virtual",
	"estoque.fisico",
	"estoqueAtual",
	"quantidade",
	"depositos.0.saldo",
	"depositos.0.quantidade",
}

// normalizeProduct maps one upstream record to a Product. It returns false
// when the record has neither a merchant code nor an internal id.
func normalizeProduct(rec gjson.Result, sanitizer *bluemonday.Policy) (model.Product, bool) {
	sku := strings.TrimSpace(rec.Get("codigo").String())
	if sku == "" {
		sku = strings.TrimSpace(rec.Get("id").String())
	}
	if sku == "" {
		return model.Product{}, false
	}

	return model.Product{
		SKU:   sku,
		Name:  productName(rec.Get("nome").String(), sanitizer),
		Price: parsePrice(rec.Get("preco")),
		Stock: parseStock(rec),
	}, true
}

// productName strips markup from the upstream name. Entities escaped by the
// sanitizer are decoded back so names are stored as plain text.
func productName(raw string, sanitizer *bluemonday.Policy) string {
	name := strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(raw)))
	if name == "" {
		return model.PlaceholderProductName
	}
	return name
}

// parsePrice returns the price as a decimal. Missing, unparseable and negative
// values all yield zero.
func parsePrice(v gjson.Result) decimal.Decimal {
	var raw string
	switch v.Type {
	case gjson.Number:
		raw = v.Raw
	case gjson.String:
		raw = strings.TrimSpace(v.Str)
	default:
		return decimal.Zero
	}

	price, err := decimal.NewFromString(raw)
	if err != nil || price.IsNegative() {
		return decimal.Zero
	}
	return price
}

func parseStock(rec gjson.Result) int64 {
	for _, path := range stockPaths {
		if qty, ok := stockValue(rec.Get(path)); ok {
			return qty
		}
	}
	return 0
}

// stockValue converts a numeric or numeric-string field. Fractions truncate
// toward zero.
func stockValue(v gjson.Result) (int64, bool) {
	switch v.Type {
	case gjson.Number:
		return int64(v.Num), true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}
