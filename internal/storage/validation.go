// Package storage provides the data persistence layer for the sentinel application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mshadianto/mnee-sentinel/internal/address"
	"github.com/mshadianto/mnee-sentinel/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidVendor = errors.New("invalid vendor entry")
	ErrInvalidBudget = errors.New("invalid budget")
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidEntry  = errors.New("invalid audit entry")
	ErrInvalidFilter = errors.New("invalid audit filter")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateAmount ensures a monetary amount is strictly positive.
func validateAmount(amount decimal.Decimal, paramName string) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: %s (%s)", ErrInvalidAmount, paramName, amount)
	}
	return nil
}

// validateVendor validates a vendor entry before persistence.
func validateVendor(vendor *model.VendorEntry) error {
	if vendor == nil {
		return fmt.Errorf("%w: vendor", ErrNilParameter)
	}
	if err := address.Validate(vendor.Address); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVendor, err)
	}
	if strings.TrimSpace(vendor.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidVendor)
	}
	if strings.TrimSpace(vendor.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidVendor)
	}
	if vendor.MaxTxLimit.Sign() <= 0 {
		return fmt.Errorf("%w: transaction limit must be positive", ErrInvalidVendor)
	}
	return nil
}

// validateBudget validates a budget before persistence. Administrative
// writes that violate invariants fail here with no partial state change.
func validateBudget(budget *model.Budget) error {
	if budget == nil {
		return fmt.Errorf("%w: budget", ErrNilParameter)
	}
	if strings.TrimSpace(budget.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidBudget)
	}
	if budget.MonthlyLimit.Sign() < 0 {
		return fmt.Errorf("%w: monthly limit cannot be negative", ErrInvalidBudget)
	}
	if budget.Spent.Sign() < 0 {
		return fmt.Errorf("%w: spent cannot be negative", ErrInvalidBudget)
	}
	return nil
}

// validateAuditEntry validates an audit entry before it is appended.
func validateAuditEntry(entry *model.AuditEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	switch entry.Kind {
	case model.AuditKindDecision, model.AuditKindAdmin, model.AuditKindSettlement:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, entry.Kind)
	}
	if entry.Kind == model.AuditKindDecision {
		switch entry.Outcome {
		case model.OutcomeApproved, model.OutcomeRejected:
		default:
			return fmt.Errorf("%w: unknown outcome %q", ErrInvalidEntry, entry.Outcome)
		}
	}
	if entry.Confidence < 0 || entry.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidEntry)
	}
	return nil
}
