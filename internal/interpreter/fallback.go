package interpreter

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// fallbackConfidence is the pinned score for regex-parsed proposals. It sits
// below the engine's default confidence gate, so fallback results reject
// unless the operator lowers the threshold deliberately.
const fallbackConfidence = 0.45

var (
	amountPattern    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*MNEE`)
	addressPattern   = regexp.MustCompile(`(0x[a-fA-F0-9]{40})`)
	ptVendorPattern  = regexp.MustCompile(`(PT\s+[A-Z][a-zA-Z\s&]+?)(?:\s+|,|for|at)`)
	capVendorPattern = regexp.MustCompile(`to\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
)

// categoryKeywords maps budget categories to context words that hint at
// them. Ordered so matching is deterministic; the first hit wins.
var categoryKeywords = []struct {
	name     string
	keywords []string
}{
	{"FX", []string{"forex", "fx", "hedging", "currency"}},
	{"Remittance", []string{"remittance", "transfer", "money transfer"}},
	{"Settlement", []string{"settlement", "bank", "clearing"}},
	{"Software", []string{"software", "cloud", "saas", "tools"}},
	{"Consulting", []string{"consulting", "advisory", "audit"}},
	{"Travel", []string{"travel", "trip", "flight"}},
	{"Office", []string{"office", "supplies", "stationery"}},
	{"Data", []string{"data", "feed", "analytics"}},
	{"Cybersecurity", []string{"security", "cybersecurity", "protection"}},
	{"Legal", []string{"legal", "law", "compliance"}},
}

// Fallback is a regex-based extraction backend used when no AI provider is
// configured or the provider call fails.
type Fallback struct{}

// Extract pulls payment details out of a proposal with pattern matching.
// Confidence is pinned low because the patterns cannot verify intent.
func (Fallback) Extract(_ context.Context, proposalText string) (Extraction, error) {
	extraction := Extraction{
		VendorName: "Unknown Vendor",
		Category:   "Office",
		Amount:     decimal.Zero,
		Confidence: fallbackConfidence,
	}

	if m := amountPattern.FindStringSubmatch(proposalText); m != nil {
		if amount, err := decimal.NewFromString(m[1]); err == nil {
			extraction.Amount = amount
		}
	}

	if m := addressPattern.FindStringSubmatch(proposalText); m != nil {
		extraction.VendorAddress = m[1]
	}

	if m := ptVendorPattern.FindStringSubmatch(proposalText); m != nil {
		extraction.VendorName = strings.TrimSpace(m[1])
	} else if m := capVendorPattern.FindStringSubmatch(proposalText); m != nil {
		extraction.VendorName = strings.TrimSpace(m[1])
	}

	lower := strings.ToLower(proposalText)
matching:
	for _, category := range categoryKeywords {
		for _, keyword := range category.keywords {
			if strings.Contains(lower, keyword) {
				extraction.Category = category.name
				break matching
			}
		}
	}

	return extraction, nil
}
