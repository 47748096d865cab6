// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mshadianto/mnee-sentinel/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Vendor registry operations
	GetVendor(ctx context.Context, addr string) (*model.VendorEntry, error)
	SaveVendor(ctx context.Context, vendor *model.VendorEntry) error
	DeactivateVendor(ctx context.Context, addr string) error
	DeleteVendor(ctx context.Context, addr string) error
	ListVendors(ctx context.Context) ([]model.VendorEntry, error)

	// Budget ledger operations
	GetBudget(ctx context.Context, category string) (*model.Budget, error)
	Remaining(ctx context.Context, category string) (decimal.Decimal, error)
	TryDebit(ctx context.Context, category string, amount decimal.Decimal) error
	CreditBudget(ctx context.Context, category string, amount decimal.Decimal) error
	ResetBudget(ctx context.Context, category string) error
	SaveBudget(ctx context.Context, budget *model.Budget) error
	ListBudgets(ctx context.Context) ([]model.Budget, error)

	// Velocity tracker operations
	CheckAndRecord(ctx context.Context, addr string, amount decimal.Decimal, maxCount int, maxAmount decimal.Decimal, windowLength time.Duration) error
	ReleaseRecord(ctx context.Context, addr string, amount decimal.Decimal) error
	GetVelocity(ctx context.Context, addr string) (*model.VelocityWindow, error)

	// Audit trail operations
	AppendAudit(ctx context.Context, entry *model.AuditEntry) (string, error)
	QueryAudit(ctx context.Context, filter model.AuditFilter) ([]*model.AuditEntry, error)
	AppendSettlementRef(ctx context.Context, parentID, ref string) (string, error)
	ApprovalRate(ctx context.Context, since time.Time) (*ApprovalStats, error)
	SpendByCategory(ctx context.Context) ([]CategorySpend, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Interpreter turns a free-text proposal into a structured candidate
// payment plus parse confidence. Implementations wrap interchangeable
// language-model backends; the engine never depends on which one produced
// the candidate.
type Interpreter interface {
	Interpret(ctx context.Context, proposalText string) (model.CandidatePayment, error)
}

// Settler moves value on the ledger for an approved decision and returns a
// settlement reference for the audit trail.
type Settler interface {
	Execute(ctx context.Context, toAddress string, amount decimal.Decimal) (ref string, err error)
}

// ApprovalStats is an aggregate view over the audit trail.
type ApprovalStats struct {
	Approved int
	Rejected int
	Rate     float64
}

// CategorySpend is a spend-by-category projection joining budgets with
// approval counts from the audit trail.
type CategorySpend struct {
	Category  string
	Limit     decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	Approvals int
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
