// Package engine implements the compliance pipeline that turns candidate
// payments into audited approve/reject decisions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mshadianto/mnee-sentinel/internal/address"
	"github.com/mshadianto/mnee-sentinel/internal/common"
	"github.com/mshadianto/mnee-sentinel/internal/model"
	"github.com/mshadianto/mnee-sentinel/internal/service"
	"github.com/mshadianto/mnee-sentinel/internal/storage"
)

// ComplianceEngine runs every candidate through the ordered check pipeline
// and records the outcome in the audit log. Safe for concurrent Evaluate
// calls; budget and velocity mutations are serialized by the storage layer.
type ComplianceEngine struct {
	storage service.Storage
	config  Config
}

// Config holds the policy knobs for the compliance pipeline.
type Config struct {
	ConfidenceThreshold float64
	MaxTxPerWindow      int
	MaxAmountPerWindow  decimal.Decimal
	WindowLength        time.Duration
}

// DefaultConfig returns the default policy configuration.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.70,
		MaxTxPerWindow:      10,
		MaxAmountPerWindow:  decimal.Zero, // no per-window amount cap
		WindowLength:        24 * time.Hour,
	}
}

// New creates a compliance engine with the default configuration.
func New(store service.Storage) *ComplianceEngine {
	return NewWithConfig(store, DefaultConfig())
}

// NewWithConfig creates a compliance engine with custom policy settings.
func NewWithConfig(store service.Storage, config Config) *ComplianceEngine {
	if config.ConfidenceThreshold <= 0 {
		config.ConfidenceThreshold = 0.70
	}
	if config.MaxTxPerWindow <= 0 {
		config.MaxTxPerWindow = 10
	}
	if config.WindowLength <= 0 {
		config.WindowLength = 24 * time.Hour
	}
	return &ComplianceEngine{
		storage: store,
		config:  config,
	}
}

// failReason identifies which check rejected a candidate. It is the single
// input to the risk table.
type failReason int

const (
	passAll failReason = iota
	failLowConfidence
	failMalformedAddress
	failVendorNotFound
	failVendorInactive
	failUnknownCategory
	failVendorLimit
	failInsufficientBudget
	failVelocity
	failAuditUnavailable
)

// riskFor is the single source of truth mapping a failure to its risk level.
func riskFor(reason failReason) model.RiskLevel {
	switch reason {
	case passAll:
		return model.RiskLow
	case failLowConfidence, failMalformedAddress:
		return model.RiskMedium
	case failVendorNotFound, failVendorInactive:
		return model.RiskCritical
	default:
		return model.RiskHigh
	}
}

// Evaluate runs the full pipeline on one candidate. It returns the decision
// and the audit entry recording it. The ordered checks short-circuit on the
// first hard failure; the budget debit and velocity record are the only
// mutations, and both are rolled back if a later stage fails. An audit
// append failure overrides the outcome to REJECTED and is returned as the
// error.
func (e *ComplianceEngine) Evaluate(ctx context.Context, candidate model.CandidatePayment) (*model.Decision, *model.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	slog.Info("evaluating candidate",
		"vendor", candidate.VendorName,
		"amount", candidate.Amount,
		"category", candidate.Category,
		"confidence", candidate.Confidence)

	decision, debited := e.runChecks(ctx, candidate)

	entry := e.auditEntryFor(candidate, decision, debited)
	if _, err := e.storage.AppendAudit(ctx, entry); err != nil {
		// The trail is mandatory: undo any mutation and refuse.
		e.rollback(ctx, debited)
		decision.Outcome = model.OutcomeRejected
		decision.Risk = riskFor(failAuditUnavailable)
		decision.Checks = append(decision.Checks, model.CheckResult{
			Name:   model.CheckAudit,
			Passed: false,
			Detail: common.ErrAuditUnavailable.Error(),
		})
		slog.Error("audit append failed, decision overridden to rejection", "error", err)
		return decision, nil, fmt.Errorf("%w: %v", common.ErrAuditUnavailable, err)
	}

	slog.Info("decision recorded",
		"outcome", decision.Outcome,
		"risk", decision.Risk,
		"audit_id", entry.ID)

	return decision, entry, nil
}

// debitState tracks which mutations Evaluate performed, for rollback.
type debitState struct {
	category string
	amount   decimal.Decimal
	address  string
	debited  bool
	recorded bool
}

func (e *ComplianceEngine) runChecks(ctx context.Context, candidate model.CandidatePayment) (*model.Decision, debitState) {
	var state debitState

	decision := &model.Decision{
		Confidence: candidate.Confidence,
		DecidedAt:  time.Now().UTC(),
	}

	reject := func(reason failReason, check model.CheckResult) (*model.Decision, debitState) {
		check.Passed = false
		decision.Checks = append(decision.Checks, check)
		decision.Outcome = model.OutcomeRejected
		decision.Risk = riskFor(reason)
		return decision, state
	}
	pass := func(name, detail string) {
		decision.Checks = append(decision.Checks, model.CheckResult{Name: name, Passed: true, Detail: detail})
	}

	// Confidence gate runs before anything else.
	if candidate.Confidence < e.config.ConfidenceThreshold {
		return reject(failLowConfidence, model.CheckResult{
			Name:   model.CheckConfidence,
			Detail: fmt.Sprintf("insufficient parsing confidence: %.2f below threshold %.2f", candidate.Confidence, e.config.ConfidenceThreshold),
		})
	}
	pass(model.CheckConfidence, fmt.Sprintf("confidence %.2f meets threshold %.2f", candidate.Confidence, e.config.ConfidenceThreshold))

	if err := address.Validate(candidate.VendorAddress); err != nil {
		return reject(failMalformedAddress, model.CheckResult{
			Name:   model.CheckAddress,
			Detail: fmt.Sprintf("malformed address %q: %v", candidate.VendorAddress, err),
		})
	}
	pass(model.CheckAddress, "well-formed address "+address.Normalize(candidate.VendorAddress))

	vendor, err := e.storage.GetVendor(ctx, candidate.VendorAddress)
	if errors.Is(err, common.ErrNotFound) {
		return reject(failVendorNotFound, model.CheckResult{
			Name:   model.CheckWhitelist,
			Detail: fmt.Sprintf("address %s is not whitelisted", address.Normalize(candidate.VendorAddress)),
		})
	}
	if err != nil {
		return reject(failVendorNotFound, model.CheckResult{
			Name:   model.CheckWhitelist,
			Detail: fmt.Sprintf("vendor lookup failed: %v", err),
		})
	}
	if !vendor.IsActive {
		return reject(failVendorInactive, model.CheckResult{
			Name:   model.CheckWhitelist,
			Detail: fmt.Sprintf("vendor %s is deactivated", vendor.Name),
		})
	}
	pass(model.CheckWhitelist, fmt.Sprintf("vendor %s is whitelisted and active", vendor.Name))
	state.category = vendor.Category
	state.address = vendor.Address

	// The registry's category is authoritative. A differing parsed category
	// is only worth a note in the check detail.
	categoryDetail := fmt.Sprintf("category %s resolved from vendor registry", vendor.Category)
	if candidate.Category != "" && candidate.Category != vendor.Category {
		categoryDetail += fmt.Sprintf(" (proposal said %s)", candidate.Category)
	}
	if _, err := e.storage.GetBudget(ctx, vendor.Category); err != nil {
		if errors.Is(err, storage.ErrUnknownCategory) {
			slog.Error("vendor references a category with no budget",
				"vendor", vendor.Name,
				"category", vendor.Category,
				"configuration_integrity", true)
			return reject(failUnknownCategory, model.CheckResult{
				Name:   model.CheckCategory,
				Detail: fmt.Sprintf("category %s has no budget configured", vendor.Category),
			})
		}
		return reject(failUnknownCategory, model.CheckResult{
			Name:   model.CheckCategory,
			Detail: fmt.Sprintf("budget lookup failed: %v", err),
		})
	}
	pass(model.CheckCategory, categoryDetail)

	if candidate.Amount.GreaterThan(vendor.MaxTxLimit) {
		return reject(failVendorLimit, model.CheckResult{
			Name: model.CheckVendorCap,
			Detail: fmt.Sprintf("amount %s exceeds vendor limit %s by %s",
				candidate.Amount, vendor.MaxTxLimit, candidate.Amount.Sub(vendor.MaxTxLimit)),
		})
	}
	pass(model.CheckVendorCap, fmt.Sprintf("amount %s within vendor limit %s", candidate.Amount, vendor.MaxTxLimit))

	// First mutation: the budget debit.
	if err := e.storage.TryDebit(ctx, vendor.Category, candidate.Amount); err != nil {
		var insufficient *storage.InsufficientBudgetError
		if errors.As(err, &insufficient) {
			return reject(failInsufficientBudget, model.CheckResult{
				Name: model.CheckBudget,
				Detail: fmt.Sprintf("required %s, remaining %s of limit %s, shortfall %s",
					insufficient.Required, insufficient.Remaining, insufficient.Limit, insufficient.Shortfall),
			})
		}
		return reject(failInsufficientBudget, model.CheckResult{
			Name:   model.CheckBudget,
			Detail: fmt.Sprintf("budget debit failed: %v", err),
		})
	}
	state.amount = candidate.Amount
	state.debited = true
	pass(model.CheckBudget, fmt.Sprintf("debited %s from %s budget", candidate.Amount, vendor.Category))

	if err := e.storage.CheckAndRecord(ctx, vendor.Address, candidate.Amount, e.config.MaxTxPerWindow, e.config.MaxAmountPerWindow, e.config.WindowLength); err != nil {
		// Compensate the debit so a velocity rejection leaves the
		// budget exactly where it started. The credit must complete
		// even when the request context was cancelled mid-check.
		if creditErr := e.storage.CreditBudget(context.WithoutCancel(ctx), vendor.Category, candidate.Amount); creditErr != nil {
			slog.Error("compensating credit failed", "category", vendor.Category, "error", creditErr)
		} else {
			state.debited = false
		}

		var exceeded *storage.VelocityExceededError
		if errors.As(err, &exceeded) {
			return reject(failVelocity, model.CheckResult{
				Name: model.CheckVelocity,
				Detail: fmt.Sprintf("velocity %s limit exceeded: %s of max %s in current window",
					exceeded.Which, exceeded.Current, exceeded.Max),
			})
		}
		return reject(failVelocity, model.CheckResult{
			Name:   model.CheckVelocity,
			Detail: fmt.Sprintf("velocity check failed: %v", err),
		})
	}
	state.recorded = true
	pass(model.CheckVelocity, fmt.Sprintf("within velocity limits (max %d tx per window)", e.config.MaxTxPerWindow))

	decision.Outcome = model.OutcomeApproved
	decision.Risk = riskFor(passAll)
	return decision, state
}

// rollback compensates the pipeline's mutations after a post-decision
// failure. Errors are logged, not returned; the caller is already on an
// error path.
func (e *ComplianceEngine) rollback(ctx context.Context, state debitState) {
	// A cancelled request must not strand its mutations.
	ctx = context.WithoutCancel(ctx)
	if state.debited {
		if err := e.storage.CreditBudget(ctx, state.category, state.amount); err != nil {
			slog.Error("rollback credit failed", "category", state.category, "error", err)
		}
	}
	if state.recorded {
		if err := e.storage.ReleaseRecord(ctx, state.address, state.amount); err != nil {
			slog.Error("rollback velocity release failed", "address", state.address, "error", err)
		}
	}
}

func (e *ComplianceEngine) auditEntryFor(candidate model.CandidatePayment, decision *model.Decision, state debitState) *model.AuditEntry {
	// The registry's category is authoritative once the vendor resolved;
	// before that the parsed category is all there is.
	category := state.category
	if category == "" {
		category = candidate.Category
	}
	return &model.AuditEntry{
		Kind:          model.AuditKindDecision,
		ProposalText:  candidate.RawText,
		VendorName:    candidate.VendorName,
		VendorAddress: candidate.VendorAddress,
		Category:      category,
		Amount:        candidate.Amount,
		Outcome:       decision.Outcome,
		Risk:          decision.Risk,
		Reasoning:     decision.Reasoning(),
		Confidence:    candidate.Confidence,
	}
}
