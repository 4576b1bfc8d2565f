package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are rendered as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// ParseAmount parses a decimal amount such as "1000" or "15750.85".
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid amount %q", ErrValidation, s)
	}
	return d, nil
}

// ValidCurrency reports whether code looks like an uppercase ISO 4217 code.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
