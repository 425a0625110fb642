package handler

import "github.com/shopspring/decimal"

// toDecimalPtr converts an optional request amount into the decimal
// pointer the application layer expects.
func toDecimalPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}
