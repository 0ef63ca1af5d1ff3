package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order for fully-specified dates. The month/day
// layouts accept both padded and unpadded digits.
var dateLayouts = []string{
	"2006-1-2",
	time.RFC3339,
	"1/2/2006",
	"1/2/06",
}

// ParseCurrency parses a broker-formatted currency string into an exact
// decimal. It tolerates a leading dollar sign, thousands separators, and the
// accounting convention of parentheses for negative amounts: "($1,234.56)"
// parses to -1234.56.
func ParseCurrency(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		negative = true
		v = v[1 : len(v)-1]
	}
	if strings.HasPrefix(v, "-") {
		negative = true
		v = v[1:]
	}
	v = strings.TrimPrefix(v, "$")
	v = strings.ReplaceAll(v, ",", "")
	v = strings.TrimSpace(v)

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable amount %q", s)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseDate parses a transaction date, tolerating ISO forms, MM/DD/YYYY,
// MM/DD/YY, and bare MM/DD. A bare MM/DD has no year: it resolves to the
// current year, or the next year if that day already passed relative to now
// (exports print expirations this way). The result is midnight UTC.
func ParseDate(s string, now time.Time) (time.Time, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	// Bare MM/DD.
	parts := strings.Split(v, "/")
	if len(parts) == 2 {
		month, merr := strconv.Atoi(parts[0])
		day, derr := strconv.Atoi(parts[1])
		if merr == nil && derr == nil && month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			candidate := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, time.UTC)
			if candidate.Before(today) {
				candidate = candidate.AddDate(1, 0, 0)
			}
			return candidate, nil
		}
	}

	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// parseStrike reads a strike price, tolerating a leading dollar sign.
func parseStrike(s string) (float64, error) {
	v := strings.TrimPrefix(strings.TrimSpace(s), "$")
	v = strings.ReplaceAll(v, ",", "")
	strike, err := strconv.ParseFloat(v, 64)
	if err != nil || strike <= 0 {
		return 0, fmt.Errorf("unparseable strike %q", s)
	}
	return strike, nil
}

// parseQuantity reads a contract count. Some exports sign the quantity by
// trade side; the sign carries no information beyond the transaction code,
// so the magnitude is used.
func parseQuantity(s string) (int, error) {
	v := strings.TrimSpace(s)
	qty, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("unparseable quantity %q", s)
	}
	if qty < 0 {
		qty = -qty
	}
	if qty == 0 {
		return 0, fmt.Errorf("zero quantity")
	}
	return qty, nil
}
