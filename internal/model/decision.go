package model

import (
	"strings"
	"time"
)

// Outcome is the final verdict on a candidate payment.
type Outcome string

// Decision outcomes.
const (
	OutcomeApproved Outcome = "APPROVED"
	OutcomeRejected Outcome = "REJECTED"
)

// RiskLevel is the coarse severity label attached to a decision for triage.
type RiskLevel string

// Risk levels, ordered from least to most severe.
const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Check names, in pipeline order.
const (
	CheckConfidence = "parse_confidence"
	CheckAddress    = "address_format"
	CheckWhitelist  = "vendor_whitelist"
	CheckCategory   = "category_resolution"
	CheckVendorCap  = "vendor_transaction_limit"
	CheckBudget     = "category_budget"
	CheckVelocity   = "transaction_velocity"
	CheckAudit      = "audit_trail"
)

// CheckResult records the outcome of a single compliance check, including
// the quantitative evidence a reviewer needs to verify it.
type CheckResult struct {
	Name   string
	Detail string
	Passed bool
}

// Decision is the immutable result of running a candidate payment through
// the compliance pipeline.
type Decision struct {
	DecidedAt  time.Time
	Outcome    Outcome
	Risk       RiskLevel
	Checks     []CheckResult
	Confidence float64
}

// Approved reports whether the decision allows settlement.
func (d *Decision) Approved() bool {
	return d.Outcome == OutcomeApproved
}

// Reasoning renders the ordered check results as the human-readable audit
// text. The format is stable: one line per check, PASS/FAIL plus detail.
func (d *Decision) Reasoning() string {
	var sb strings.Builder
	for i, c := range d.Checks {
		if i > 0 {
			sb.WriteString("\n")
		}
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
		}
		sb.WriteString(c.Name)
		sb.WriteString(": ")
		sb.WriteString(status)
		if c.Detail != "" {
			sb.WriteString(" - ")
			sb.WriteString(c.Detail)
		}
	}
	return sb.String()
}
