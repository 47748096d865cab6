package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a per-category monthly spending cap. Spent only grows through
// approved-payment debits and is zeroed by an administrative reset; a debit
// that would push Spent past MonthlyLimit is refused before any mutation.
type Budget struct {
	ResetAt      time.Time
	Category     string
	MonthlyLimit decimal.Decimal
	Spent        decimal.Decimal
}

// Remaining returns the headroom left in the budget.
func (b *Budget) Remaining() decimal.Decimal {
	return b.MonthlyLimit.Sub(b.Spent)
}
