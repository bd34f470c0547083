// Package money keeps amounts as float64 at full precision and rounds to cents
// only when presenting or comparing them.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("amount must be a non-negative number")

// Round2 rounds v half away from zero to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Format renders v with exactly two decimals, e.g. "8.66".
func Format(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// ParseAmount parses operator input such as "20", "20.5" or "$20.50".
func ParseAmount(raw string) (float64, error) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "$")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}

// Covers reports whether paid is at least owed once both are rounded to cents.
func Covers(paid, owed float64) bool {
	return decimal.NewFromFloat(paid).Round(2).GreaterThanOrEqual(decimal.NewFromFloat(owed).Round(2))
}
