package interpreter

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFallbackExtract(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantVendor   string
		wantAddress  string
		wantCategory string
		wantAmount   string
	}{
		{
			name:         "indonesian vendor with cloud keyword",
			input:        "Pay 300 MNEE to PT Cloud Nusantara for software subscription at 0x1234567890abcdef1234567890abcdef12345678",
			wantVendor:   "PT Cloud",
			wantAddress:  "0x1234567890abcdef1234567890abcdef12345678",
			wantCategory: "Software",
			wantAmount:   "300",
		},
		{
			name:         "fx hedging proposal",
			input:        "Transfer 2500.50 MNEE to PT Nusantara FX Services for currency hedging, wallet 0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
			wantVendor:   "PT Nusantara",
			wantAddress:  "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
			wantCategory: "FX",
			wantAmount:   "2500.5",
		},
		{
			name:         "capitalized vendor without PT prefix",
			input:        "Send 50 MNEE to Acme Legal for law services",
			wantVendor:   "Acme Legal",
			wantAddress:  "",
			wantCategory: "Legal",
			wantAmount:   "50",
		},
		{
			name:         "nothing recognizable",
			input:        "hello world",
			wantVendor:   "Unknown Vendor",
			wantAddress:  "",
			wantCategory: "Office",
			wantAmount:   "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Fallback{}.Extract(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if got.VendorName != tt.wantVendor {
				t.Errorf("VendorName = %q, want %q", got.VendorName, tt.wantVendor)
			}
			if got.VendorAddress != tt.wantAddress {
				t.Errorf("VendorAddress = %q, want %q", got.VendorAddress, tt.wantAddress)
			}
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", got.Category, tt.wantCategory)
			}
			if !got.Amount.Equal(decimal.RequireFromString(tt.wantAmount)) {
				t.Errorf("Amount = %s, want %s", got.Amount, tt.wantAmount)
			}
			if got.Confidence != fallbackConfidence {
				t.Errorf("Confidence = %f, want %f", got.Confidence, fallbackConfidence)
			}
		})
	}
}
