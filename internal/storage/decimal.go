package storage

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// parseDecimal converts a TEXT column back into a fixed-point decimal.
// Amounts are stored as strings to avoid floating-point drift.
func parseDecimal(s, column string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse %s %q: %w", column, s, err)
	}
	return d, nil
}
