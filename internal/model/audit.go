package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuditKind distinguishes payment decisions from administrative mutations
// and settlement follow-ups in the audit trail.
type AuditKind string

// Audit entry kinds.
const (
	AuditKindDecision   AuditKind = "DECISION"
	AuditKindAdmin      AuditKind = "ADMIN"
	AuditKindSettlement AuditKind = "SETTLEMENT"
)

// AuditEntry is one append-only record in the audit trail. Entries are never
// updated or deleted; settlement references are attached by appending a new
// linked entry whose ParentID points at the original decision.
type AuditEntry struct {
	CreatedAt     time.Time
	ID            string
	ParentID      string
	Kind          AuditKind
	ProposalText  string
	VendorName    string
	VendorAddress string
	Category      string
	Outcome       Outcome
	Risk          RiskLevel
	Reasoning     string
	SettlementRef string
	Amount        decimal.Decimal
	Confidence    float64
}

// AuditFilter selects audit entries for queries. Zero values mean "any".
type AuditFilter struct {
	Since    time.Time
	Until    time.Time
	Outcome  Outcome
	Address  string
	Category string
	Kind     AuditKind
	Limit    int
}
