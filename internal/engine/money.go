package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amounts are persisted as decimal(18,2) strings, the same convention the
// rest of the system uses for money columns. An empty string reads as zero
// (unset column); anything else that fails to parse is corruption and
// surfaces as a totals-invariant violation rather than coercing to zero.

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed amount %q", ErrTotalsInvariant, s)
	}
	return d, nil
}

// formatAmount rounds half up to 2 fractional digits.
func formatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
