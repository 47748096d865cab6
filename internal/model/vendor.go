package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// VendorEntry is a whitelisted payee. Only addresses present and active in
// the registry may receive treasury funds. Addresses are stored lowercase;
// lookups normalize the same way.
type VendorEntry struct {
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Address    string
	Name       string
	Category   string
	MaxTxLimit decimal.Decimal
	IsActive   bool
}
