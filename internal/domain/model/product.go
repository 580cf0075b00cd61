package model

import "github.com/shopspring/decimal"

// PlaceholderProductName is used when the upstream record has a blank name.
const PlaceholderProductName = "Produto sem nome"

// Product is the canonical catalog record. SKU is the identity key.
// Stock may be zero or negative when the upstream reports an oversell.
type Product struct {
	SKU   string
	Name  string
	Price decimal.Decimal
	Stock int64
}

// InStock reports whether the product has a positive stock balance.
func (p Product) InStock() bool {
	return p.Stock > 0
}
