package interpreter

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseExtraction(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Extraction
		wantErr bool
	}{
		{
			name: "full response",
			input: `VENDOR: PT Nusantara FX Services
ADDRESS: 0x1234567890abcdef1234567890abcdef12345678
AMOUNT: 2500.50
CATEGORY: FX
CONFIDENCE: 0.95
MEMO: Q3 currency hedging settlement`,
			want: Extraction{
				VendorName:    "PT Nusantara FX Services",
				VendorAddress: "0x1234567890abcdef1234567890abcdef12345678",
				Amount:        decimal.RequireFromString("2500.50"),
				Category:      "FX",
				Confidence:    0.95,
				Memo:          "Q3 currency hedging settlement",
			},
		},
		{
			name: "amount with token suffix",
			input: `VENDOR: PT Cloud Nusantara
ADDRESS: 0x1234567890abcdef1234567890abcdef12345678
AMOUNT: 300 MNEE
CATEGORY: Software
CONFIDENCE: 0.8`,
			want: Extraction{
				VendorName:    "PT Cloud Nusantara",
				VendorAddress: "0x1234567890abcdef1234567890abcdef12345678",
				Amount:        decimal.NewFromInt(300),
				Category:      "Software",
				Confidence:    0.8,
			},
		},
		{
			name: "chatter around the answer",
			input: `Here is the extraction:
VENDOR: PT Mitra Audit
ADDRESS: 0xabcdefabcdefabcdefabcdefabcdefabcdefabcd
AMOUNT: 150
CATEGORY: Consulting
CONFIDENCE: 0.7
Let me know if you need anything else.`,
			want: Extraction{
				VendorName:    "PT Mitra Audit",
				VendorAddress: "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
				Amount:        decimal.NewFromInt(150),
				Category:      "Consulting",
				Confidence:    0.7,
			},
		},
		{
			name: "confidence clamped to one",
			input: `VENDOR: PT Data Prima
ADDRESS: 0x1234567890abcdef1234567890abcdef12345678
AMOUNT: 10
CATEGORY: Data
CONFIDENCE: 1.7`,
			want: Extraction{
				VendorName:    "PT Data Prima",
				VendorAddress: "0x1234567890abcdef1234567890abcdef12345678",
				Amount:        decimal.NewFromInt(10),
				Category:      "Data",
				Confidence:    1.0,
			},
		},
		{
			name:    "missing vendor",
			input:   "AMOUNT: 10\nCONFIDENCE: 0.9",
			wantErr: true,
		},
		{
			name:    "missing amount",
			input:   "VENDOR: PT Contoh\nCONFIDENCE: 0.9",
			wantErr: true,
		},
		{
			name: "garbage amount",
			input: `VENDOR: PT Contoh
AMOUNT: lots
CONFIDENCE: 0.9`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseExtraction(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseExtraction failed: %v", err)
			}
			if got.VendorName != tt.want.VendorName {
				t.Errorf("VendorName = %q, want %q", got.VendorName, tt.want.VendorName)
			}
			if got.VendorAddress != tt.want.VendorAddress {
				t.Errorf("VendorAddress = %q, want %q", got.VendorAddress, tt.want.VendorAddress)
			}
			if !got.Amount.Equal(tt.want.Amount) {
				t.Errorf("Amount = %s, want %s", got.Amount, tt.want.Amount)
			}
			if got.Category != tt.want.Category {
				t.Errorf("Category = %q, want %q", got.Category, tt.want.Category)
			}
			if got.Confidence != tt.want.Confidence {
				t.Errorf("Confidence = %f, want %f", got.Confidence, tt.want.Confidence)
			}
			if got.Memo != tt.want.Memo {
				t.Errorf("Memo = %q, want %q", got.Memo, tt.want.Memo)
			}
		})
	}
}
