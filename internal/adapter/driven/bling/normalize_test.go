package bling

import (
	"testing"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/ericfisherdev/storefront/internal/domain/model"
)

func TestNormalizeProduct_Identity(t *testing.T) {
	policy := bluemonday.StrictPolicy()

	tests := []struct {
		name    string
		record  string
		wantSKU string
		wantOK  bool
	}{
		{"merchant code wins", `{"id":17,"codigo":"CAN-01"}`, "CAN-01", true},
		{"blank code falls back to id", `{"id":17,"codigo":"  "}`, "17", true},
		{"missing code falls back to id", `{"id":"9001"}`, "9001", true},
		{"no identity", `{"nome":"Solto"}`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := normalizeProduct(gjson.Parse(tt.record), policy)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantSKU, p.SKU)
		})
	}
}

func TestNormalizeProduct_Name(t *testing.T) {
	policy := bluemonday.StrictPolicy()

	tests := []struct {
		name   string
		record string
		want   string
	}{
		{"plain", `{"id":1,"nome":"Caneta azul"}`, "Caneta azul"},
		{"trimmed", `{"id":1,"nome":"  Caderno  "}`, "Caderno"},
		{"markup stripped", `{"id":1,"nome":"<b>Lápis</b><script>alert(1)</script>"}`, "Lápis"},
		{"entities kept as text", `{"id":1,"nome":"Cola & Tesoura"}`, "Cola & Tesoura"},
		{"blank", `{"id":1,"nome":"   "}`, model.PlaceholderProductName},
		{"missing", `{"id":1}`, model.PlaceholderProductName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := normalizeProduct(gjson.Parse(tt.record), policy)
			require.True(t, ok)
			assert.Equal(t, tt.want, p.Name)
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"number", `{"preco":12.9}`, "12.9"},
		{"integer", `{"preco":7}`, "7"},
		{"numeric string", `{"preco":"4.35"}`, "4.35"},
		{"garbage string", `{"preco":"R$ 4,35"}`, "0"},
		{"negative", `{"preco":-1}`, "0"},
		{"missing", `{}`, "0"},
		{"null", `{"preco":null}`, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePrice(gjson.Get(tt.json, "preco"))
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseStock_FallbackChain(t *testing.T) {
	tests := []struct {
		name   string
		record string
		want   int64
	}{
		{"virtual total", `{"estoque":{"saldoVirtualTotal":12,"fisico":3}}`, 12},
		{"zero virtual total still wins", `{"estoque":{"saldoVirtualTotal":0},"depositos":[{"saldo":9}]}`, 0},
		{"virtual", `{"estoque":{"virtual":"8"}}`, 8},
		{"physical", `{"estoque":{"fisico":5}}`, 5},
		{"flat current stock", `{"estoqueAtual":4}`, 4},
		{"quantity", `{"quantidade":"3"}`, 3},
		{"first warehouse balance", `{"depositos":[{"saldo":2},{"saldo":50}]}`, 2},
		{"first warehouse quantity", `{"depositos":[{"quantidade":6}]}`, 6},
		{"unparseable skipped", `{"estoque":{"saldoVirtualTotal":"n/a","fisico":7}}`, 7},
		{"fraction truncated", `{"estoqueAtual":3.9}`, 3},
		{"negative fraction truncated toward zero", `{"estoqueAtual":-2.5}`, -2},
		{"nothing", `{"id":1}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseStock(gjson.Parse(tt.record)))
		})
	}
}
