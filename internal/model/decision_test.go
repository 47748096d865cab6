package model

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDecisionReasoning(t *testing.T) {
	decision := Decision{
		Outcome: OutcomeRejected,
		Risk:    RiskHigh,
		Checks: []CheckResult{
			{Name: CheckConfidence, Passed: true, Detail: "confidence 0.92 meets threshold 0.70"},
			{Name: CheckBudget, Passed: false, Detail: "shortfall 910"},
		},
	}

	reasoning := decision.Reasoning()
	lines := strings.Split(reasoning, "\n")
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}
	if lines[0] != "parse_confidence: PASS - confidence 0.92 meets threshold 0.70" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "category_budget: FAIL - shortfall 910" {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestDecisionApproved(t *testing.T) {
	if !(&Decision{Outcome: OutcomeApproved}).Approved() {
		t.Error("Expected approved decision")
	}
	if (&Decision{Outcome: OutcomeRejected}).Approved() {
		t.Error("Expected rejected decision")
	}
}

func TestVelocityWindowExpired(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	window := VelocityWindow{
		WindowStart: start,
		TotalAmount: decimal.Zero,
	}

	if window.Expired(start.Add(23*time.Hour), 24*time.Hour) {
		t.Error("Window should not be expired inside the period")
	}
	if !window.Expired(start.Add(25*time.Hour), 24*time.Hour) {
		t.Error("Window should be expired after the period")
	}
}

func TestBudgetRemaining(t *testing.T) {
	budget := Budget{
		MonthlyLimit: decimal.NewFromInt(5000),
		Spent:        decimal.NewFromInt(1200),
	}
	if !budget.Remaining().Equal(decimal.NewFromInt(3800)) {
		t.Errorf("Remaining = %s, want 3800", budget.Remaining())
	}
}
