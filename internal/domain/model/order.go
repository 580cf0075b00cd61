package model

import "github.com/shopspring/decimal"

// OrderItem is a requested line: a SKU and how many units of it.
type OrderItem struct {
	SKU      string
	Quantity int64
}

// OrderLine is a priced order line.
type OrderLine struct {
	SKU        string
	Name       string
	Quantity   int64
	UnitPrice  decimal.Decimal
	Total      decimal.Decimal
	NCM        string
	IPIRate    decimal.Decimal // percent; zero when unknown
	IPIAmount  decimal.Decimal
	TotalAfter decimal.Decimal // Total + IPIAmount
}

// Order is a priced sales order ready for export.
type Order struct {
	Lines      []OrderLine
	TotalBase  decimal.Decimal
	TotalIPI   decimal.Decimal
	GrandTotal decimal.Decimal
}
