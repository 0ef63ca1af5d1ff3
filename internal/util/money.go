// Package util provides common utility functions for money formatting.
package util

import "github.com/shopspring/decimal"

// FormatUSD renders d as a dollar amount with two decimal places.
// Negative amounts keep the sign in front of the dollar symbol,
// e.g. -12.5 becomes "-$12.50".
func FormatUSD(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// FormatSignedUSD is FormatUSD with an explicit "+" on positive amounts,
// used for profit and loss figures.
func FormatSignedUSD(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+$" + d.StringFixed(2)
	}
	return FormatUSD(d)
}
