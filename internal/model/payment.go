// Package model defines the core domain models used throughout the application.
package model

import (
	"github.com/shopspring/decimal"
)

// CandidatePayment is a structured, not-yet-validated description of a
// proposed disbursement. It is produced by a proposal interpreter and
// consumed read-only by the compliance engine.
type CandidatePayment struct {
	VendorName    string
	VendorAddress string
	Category      string // empty until resolved against the vendor registry
	Memo          string
	RawText       string // original proposal text, kept for the audit trail
	Amount        decimal.Decimal
	Confidence    float64 // parse confidence in [0,1]
}
