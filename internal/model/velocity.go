package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// VelocityWindow tracks per-payee transaction velocity inside a fixed time
// window. The window resets when the current time passes
// WindowStart + window length; counts only grow via approved payments.
type VelocityWindow struct {
	WindowStart time.Time
	Address     string
	TotalAmount decimal.Decimal
	TxCount     int
}

// Expired reports whether the window has ended as of now.
func (w *VelocityWindow) Expired(now time.Time, length time.Duration) bool {
	return now.After(w.WindowStart.Add(length))
}
