package interpreter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// parseExtraction reads the fixed VENDOR/ADDRESS/AMOUNT/CATEGORY/CONFIDENCE/MEMO
// line format out of a backend reply. Unknown lines are ignored so minor
// chatter around the answer does not break parsing.
func parseExtraction(content string) (Extraction, error) {
	var (
		extraction Extraction
		sawAmount  bool
	)

	for _, line := range strings.Split(content, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "VENDOR":
			extraction.VendorName = value
		case "ADDRESS":
			extraction.VendorAddress = value
		case "AMOUNT":
			raw := value
			if i := strings.Index(strings.ToUpper(raw), "MNEE"); i >= 0 {
				raw = strings.TrimSpace(raw[:i])
			}
			amount, err := decimal.NewFromString(raw)
			if err != nil {
				return Extraction{}, fmt.Errorf("failed to parse amount %q: %w", value, err)
			}
			extraction.Amount = amount
			sawAmount = true
		case "CATEGORY":
			extraction.Category = value
		case "MEMO":
			extraction.Memo = value
		case "CONFIDENCE":
			confidence, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return Extraction{}, fmt.Errorf("failed to parse confidence %q: %w", value, err)
			}
			extraction.Confidence = clampConfidence(confidence)
		}
	}

	if extraction.VendorName == "" {
		return Extraction{}, fmt.Errorf("no vendor found in response")
	}
	if !sawAmount {
		return Extraction{}, fmt.Errorf("no amount found in response")
	}

	return extraction, nil
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
