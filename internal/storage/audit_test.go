package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mshadianto/mnee-sentinel/internal/common"
	"github.com/mshadianto/mnee-sentinel/internal/model"
)

func decisionEntry(addr string, outcome model.Outcome, risk model.RiskLevel) *model.AuditEntry {
	return &model.AuditEntry{
		Kind:          model.AuditKindDecision,
		ProposalText:  "Pay vendor 100 MNEE",
		VendorName:    "PT Contoh",
		VendorAddress: addr,
		Category:      "Software",
		Amount:        decimal.NewFromInt(100),
		Outcome:       outcome,
		Risk:          risk,
		Reasoning:     "all checks passed",
		Confidence:    0.92,
	}
}

func TestAppendAudit(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	id, err := store.AppendAudit(ctx, decisionEntry(makeTestAddress(20), model.OutcomeApproved, model.RiskLow))
	if err != nil {
		t.Fatalf("AppendAudit failed: %v", err)
	}
	if id == "" {
		t.Fatal("Expected a non-empty entry ID")
	}

	entry, err := store.GetAuditEntry(ctx, id)
	if err != nil {
		t.Fatalf("GetAuditEntry failed: %v", err)
	}
	if entry.Outcome != model.OutcomeApproved {
		t.Errorf("Outcome = %s, want %s", entry.Outcome, model.OutcomeApproved)
	}
	if !entry.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Amount = %s, want 100", entry.Amount)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
}

func TestAppendAudit_InvalidEntry(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		mutate func(*model.AuditEntry)
		name   string
	}{
		{name: "unknown kind", mutate: func(e *model.AuditEntry) { e.Kind = "BOGUS" }},
		{name: "unknown outcome", mutate: func(e *model.AuditEntry) { e.Outcome = "MAYBE" }},
		{name: "confidence above one", mutate: func(e *model.AuditEntry) { e.Confidence = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := decisionEntry(makeTestAddress(21), model.OutcomeApproved, model.RiskLow)
			tt.mutate(entry)
			if _, err := store.AppendAudit(ctx, entry); !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("Expected ErrInvalidEntry, got %v", err)
			}
		})
	}
}

func TestAudit_AppendOnly(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	id, err := store.AppendAudit(ctx, decisionEntry(makeTestAddress(22), model.OutcomeRejected, model.RiskHigh))
	if err != nil {
		t.Fatalf("AppendAudit failed: %v", err)
	}

	// Schema triggers reject any mutation of existing rows.
	if _, err := store.db.Exec("UPDATE audit_entries SET outcome = 'APPROVED' WHERE id = ?", id); err == nil {
		t.Error("Expected UPDATE on audit_entries to fail")
	} else if !strings.Contains(err.Error(), "immutable") {
		t.Errorf("Unexpected UPDATE error: %v", err)
	}
	if _, err := store.db.Exec("DELETE FROM audit_entries WHERE id = ?", id); err == nil {
		t.Error("Expected DELETE on audit_entries to fail")
	}

	entry, err := store.GetAuditEntry(ctx, id)
	if err != nil {
		t.Fatalf("GetAuditEntry failed: %v", err)
	}
	if entry.Outcome != model.OutcomeRejected {
		t.Errorf("Outcome = %s, want %s", entry.Outcome, model.OutcomeRejected)
	}
}

func TestQueryAudit_InsertionOrderAndFilters(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	first := decisionEntry(makeTestAddress(23), model.OutcomeApproved, model.RiskLow)
	second := decisionEntry(makeTestAddress(24), model.OutcomeRejected, model.RiskHigh)
	second.Category = "Travel"
	third := decisionEntry(makeTestAddress(23), model.OutcomeApproved, model.RiskLow)

	ids := make([]string, 0, 3)
	for _, entry := range []*model.AuditEntry{first, second, third} {
		id, err := store.AppendAudit(ctx, entry)
		if err != nil {
			t.Fatalf("AppendAudit failed: %v", err)
		}
		ids = append(ids, id)
	}

	all, err := store.QueryAudit(ctx, model.AuditFilter{})
	if err != nil {
		t.Fatalf("QueryAudit failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	for i, entry := range all {
		if entry.ID != ids[i] {
			t.Errorf("Entry %d = %s, want %s (insertion order)", i, entry.ID, ids[i])
		}
	}

	tests := []struct {
		name   string
		filter model.AuditFilter
		want   int
	}{
		{name: "by outcome", filter: model.AuditFilter{Outcome: model.OutcomeRejected}, want: 1},
		{name: "by address", filter: model.AuditFilter{Address: makeTestAddress(23)}, want: 2},
		{name: "by category", filter: model.AuditFilter{Category: "Travel"}, want: 1},
		{name: "with limit", filter: model.AuditFilter{Limit: 2}, want: 2},
		{name: "since future", filter: model.AuditFilter{Since: time.Now().Add(time.Hour)}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := store.QueryAudit(ctx, tt.filter)
			if err != nil {
				t.Fatalf("QueryAudit failed: %v", err)
			}
			if len(entries) != tt.want {
				t.Errorf("len = %d, want %d", len(entries), tt.want)
			}
		})
	}
}

func TestAppendSettlementRef(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	parentID, err := store.AppendAudit(ctx, decisionEntry(makeTestAddress(25), model.OutcomeApproved, model.RiskLow))
	if err != nil {
		t.Fatalf("AppendAudit failed: %v", err)
	}

	refID, err := store.AppendSettlementRef(ctx, parentID, "sim-0001")
	if err != nil {
		t.Fatalf("AppendSettlementRef failed: %v", err)
	}

	ref, err := store.GetAuditEntry(ctx, refID)
	if err != nil {
		t.Fatalf("GetAuditEntry failed: %v", err)
	}
	if ref.Kind != model.AuditKindSettlement {
		t.Errorf("Kind = %s, want %s", ref.Kind, model.AuditKindSettlement)
	}
	if ref.ParentID != parentID {
		t.Errorf("ParentID = %s, want %s", ref.ParentID, parentID)
	}
	if ref.SettlementRef != "sim-0001" {
		t.Errorf("SettlementRef = %s, want sim-0001", ref.SettlementRef)
	}

	// The original decision entry is untouched.
	parent, err := store.GetAuditEntry(ctx, parentID)
	if err != nil {
		t.Fatalf("GetAuditEntry failed: %v", err)
	}
	if parent.SettlementRef != "" {
		t.Errorf("Parent SettlementRef = %s, want empty", parent.SettlementRef)
	}
}

func TestAppendSettlementRef_RejectedParent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	parentID, err := store.AppendAudit(ctx, decisionEntry(makeTestAddress(26), model.OutcomeRejected, model.RiskHigh))
	if err != nil {
		t.Fatalf("AppendAudit failed: %v", err)
	}

	if _, err := store.AppendSettlementRef(ctx, parentID, "sim-0002"); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry, got %v", err)
	}
}

func TestAppendSettlementRef_UnknownParent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	if _, err := store.AppendSettlementRef(context.Background(), "no-such-id", "sim-0003"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestApprovalRate(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.AppendAudit(ctx, decisionEntry(makeTestAddress(27), model.OutcomeApproved, model.RiskLow)); err != nil {
			t.Fatalf("AppendAudit failed: %v", err)
		}
	}
	if _, err := store.AppendAudit(ctx, decisionEntry(makeTestAddress(27), model.OutcomeRejected, model.RiskHigh)); err != nil {
		t.Fatalf("AppendAudit failed: %v", err)
	}

	stats, err := store.ApprovalRate(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ApprovalRate failed: %v", err)
	}
	if stats.Approved != 3 || stats.Rejected != 1 {
		t.Errorf("Approved/Rejected = %d/%d, want 3/1", stats.Approved, stats.Rejected)
	}
	if stats.Rate != 0.75 {
		t.Errorf("Rate = %f, want 0.75", stats.Rate)
	}
}

func TestSpendByCategory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	seedBudget(t, store, "Software", "5000")
	if err := store.TryDebit(ctx, "Software", decimal.NewFromInt(1200)); err != nil {
		t.Fatalf("TryDebit failed: %v", err)
	}
	if _, err := store.AppendAudit(ctx, decisionEntry(makeTestAddress(28), model.OutcomeApproved, model.RiskLow)); err != nil {
		t.Fatalf("AppendAudit failed: %v", err)
	}

	spends, err := store.SpendByCategory(ctx)
	if err != nil {
		t.Fatalf("SpendByCategory failed: %v", err)
	}
	if len(spends) != 1 {
		t.Fatalf("len = %d, want 1", len(spends))
	}
	spend := spends[0]
	if spend.Category != "Software" {
		t.Errorf("Category = %s, want Software", spend.Category)
	}
	if !spend.Spent.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("Spent = %s, want 1200", spend.Spent)
	}
	if !spend.Remaining.Equal(decimal.NewFromInt(3800)) {
		t.Errorf("Remaining = %s, want 3800", spend.Remaining)
	}
	if spend.Approvals != 1 {
		t.Errorf("Approvals = %d, want 1", spend.Approvals)
	}
}
