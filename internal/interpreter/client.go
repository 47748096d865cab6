package interpreter

import (
	"context"

	"github.com/shopspring/decimal"
)

// Client defines the interface for extraction backends.
type Client interface {
	Extract(ctx context.Context, proposalText string) (Extraction, error)
}

// Extraction contains the fields a backend pulled out of a proposal.
type Extraction struct {
	VendorName    string
	VendorAddress string
	Category      string
	Memo          string
	Amount        decimal.Decimal
	Confidence    float64
}

// Config contains backend configuration.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}
