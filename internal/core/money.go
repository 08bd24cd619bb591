// Package core holds the domain model shared by the cache, the endpoint
// layer, and the aggregation functions.
package core

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

func init() {
	// The backend speaks plain JSON numbers for amounts.
	decimal.MarshalJSONWithoutQuotes = true
}

// DefaultCurrency is used when no preference has been stored yet.
const DefaultCurrency = "KES"

// ValidCurrency reports whether code names a known ISO 4217 currency.
func ValidCurrency(code string) bool {
	return money.GetCurrency(code) != nil
}

// FormatAmount renders a decimal amount in the given currency for display,
// e.g. FormatAmount(decimal.NewFromInt(80), "USD") == "$80.00".
// Unknown codes fall back to the default currency.
func FormatAmount(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		cur = money.GetCurrency(DefaultCurrency)
	}
	cents := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(cents, cur.Code).Display()
}
