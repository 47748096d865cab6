package storage

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrUnknownCategory indicates a budget category that does not exist. When a
// whitelisted vendor references one, that is a configuration-integrity fault
// rather than a normal rejection.
var ErrUnknownCategory = errors.New("unknown budget category")

// InsufficientBudgetError is returned by TryDebit when the debit would push
// spending past the monthly limit. No state is mutated.
type InsufficientBudgetError struct {
	Category  string
	Required  decimal.Decimal
	Remaining decimal.Decimal
	Limit     decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *InsufficientBudgetError) Error() string {
	return fmt.Sprintf("insufficient budget in %s: required %s, remaining %s of %s limit (shortfall %s)",
		e.Category, e.Required, e.Remaining, e.Limit, e.Shortfall)
}

// VelocityLimit identifies which velocity bound was exceeded.
type VelocityLimit string

// Velocity limit kinds.
const (
	VelocityCountLimit  VelocityLimit = "transaction_count"
	VelocityAmountLimit VelocityLimit = "total_amount"
)

// VelocityExceededError is returned by CheckAndRecord when recording the
// transaction would breach a window limit. Nothing is recorded.
type VelocityExceededError struct {
	Address string
	Which   VelocityLimit
	Current string
	Max     string
}

func (e *VelocityExceededError) Error() string {
	return fmt.Sprintf("velocity limit exceeded for %s: %s at %s, max %s",
		e.Address, e.Which, e.Current, e.Max)
}
