package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/mshadianto/mnee-sentinel/internal/model"
)

func TestPrintAuditEntry(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	entry := &model.AuditEntry{
		ID:            "a1b2c3d4",
		Kind:          model.AuditKindDecision,
		CreatedAt:     time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC),
		VendorName:    "PT Cloud Nusantara",
		VendorAddress: "0x00000000000000000000000000000000000000a1",
		Category:      "Software",
		Amount:        decimal.NewFromInt(300),
		Outcome:       model.OutcomeApproved,
		Risk:          model.RiskLow,
		Confidence:    0.92,
		ProposalText:  "Pay 300 MNEE to PT Cloud Nusantara",
		Reasoning:     "parse_confidence: PASS - confidence 0.92 meets threshold 0.70\nwhitelist: PASS - vendor is whitelisted and active",
	}

	printAuditEntry(cmd, entry)

	out := buf.String()
	assert.Contains(t, out, "ID:         a1b2c3d4")
	assert.Contains(t, out, "Kind:       DECISION")
	assert.Contains(t, out, "Vendor:     PT Cloud Nusantara (0x00000000000000000000000000000000000000a1)")
	assert.Contains(t, out, "Outcome:    APPROVED")
	assert.Contains(t, out, "  parse_confidence: PASS")
	assert.NotContains(t, out, "Parent:")
	assert.NotContains(t, out, "Settlement:")
}

func TestPrintAuditEntry_SettlementLink(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	entry := &model.AuditEntry{
		ID:            "e5f6",
		ParentID:      "a1b2c3d4",
		Kind:          model.AuditKindSettlement,
		CreatedAt:     time.Date(2026, 8, 31, 10, 0, 5, 0, time.UTC),
		VendorName:    "PT Cloud Nusantara",
		VendorAddress: "0x00000000000000000000000000000000000000a1",
		Category:      "Software",
		Amount:        decimal.NewFromInt(300),
		Outcome:       model.OutcomeApproved,
		Risk:          model.RiskLow,
		SettlementRef: "sim-20260831-000001",
	}

	printAuditEntry(cmd, entry)

	out := buf.String()
	assert.Contains(t, out, "Parent:     a1b2c3d4")
	assert.Contains(t, out, "Kind:       SETTLEMENT")
	assert.Contains(t, out, "Settlement: sim-20260831-000001")
}
