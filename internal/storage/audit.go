package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mshadianto/mnee-sentinel/internal/address"
	"github.com/mshadianto/mnee-sentinel/internal/common"
	"github.com/mshadianto/mnee-sentinel/internal/model"
	"github.com/mshadianto/mnee-sentinel/internal/service"
)

// AppendAudit writes a new audit entry and returns its assigned ID. The
// log is append-only; schema triggers reject any later UPDATE or DELETE.
func (s *SQLiteStorage) AppendAudit(ctx context.Context, entry *model.AuditEntry) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if entry == nil {
		return "", fmt.Errorf("%w: entry", ErrNilParameter)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, err := s.appendAuditTx(ctx, tx, entry)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit audit entry: %w", err)
	}

	return id, nil
}

// appendAuditTx inserts an entry inside an existing transaction so that
// admin mutations and their audit rows commit atomically.
func (s *SQLiteStorage) appendAuditTx(ctx context.Context, q queryable, entry *model.AuditEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.VendorAddress != "" {
		entry.VendorAddress = address.Normalize(entry.VendorAddress)
	}

	if err := validateAuditEntry(entry); err != nil {
		return "", err
	}

	var parent sql.NullString
	if entry.ParentID != "" {
		parent = sql.NullString{String: entry.ParentID, Valid: true}
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_entries (
			id, parent_id, kind, proposal_text, vendor_name, vendor_address,
			category, amount, outcome, risk, reasoning, confidence,
			settlement_ref, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID, parent, string(entry.Kind), entry.ProposalText,
		entry.VendorName, entry.VendorAddress, entry.Category,
		entry.Amount.String(), string(entry.Outcome), string(entry.Risk),
		entry.Reasoning, entry.Confidence, entry.SettlementRef, entry.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to append audit entry: %w", err)
	}

	return entry.ID, nil
}

// AppendSettlementRef records a settlement reference as a new entry linked
// to the originating decision. The original entry is never mutated.
func (s *SQLiteStorage) AppendSettlementRef(ctx context.Context, parentID, ref string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(parentID, "parentID"); err != nil {
		return "", err
	}
	if err := validateString(ref, "ref"); err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	parent, err := s.getAuditTx(ctx, tx, parentID)
	if err != nil {
		return "", err
	}
	if parent.Kind != model.AuditKindDecision || parent.Outcome != model.OutcomeApproved {
		return "", fmt.Errorf("%w: settlement refs attach only to approved decisions", ErrInvalidEntry)
	}

	id, err := s.appendAuditTx(ctx, tx, &model.AuditEntry{
		ParentID:      parent.ID,
		Kind:          model.AuditKindSettlement,
		VendorName:    parent.VendorName,
		VendorAddress: parent.VendorAddress,
		Category:      parent.Category,
		Amount:        parent.Amount,
		Outcome:       parent.Outcome,
		Risk:          parent.Risk,
		Reasoning:     fmt.Sprintf("settlement executed: %s", ref),
		Confidence:    parent.Confidence,
		SettlementRef: ref,
	})
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit settlement ref: %w", err)
	}

	return id, nil
}

// GetAuditEntry retrieves a single entry by ID.
func (s *SQLiteStorage) GetAuditEntry(ctx context.Context, id string) (*model.AuditEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getAuditTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getAuditTx(ctx context.Context, q queryable, id string) (*model.AuditEntry, error) {
	row := q.QueryRowContext(ctx, auditSelect+` WHERE id = ?`, id)
	entry, err := scanAuditEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit entry: %w", err)
	}
	return entry, nil
}

// QueryAudit returns entries matching the filter in insertion order.
func (s *SQLiteStorage) QueryAudit(ctx context.Context, filter model.AuditFilter) ([]*model.AuditEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", ErrInvalidFilter)
	}

	var (
		conds []string
		args  []any
	)
	if filter.Outcome != "" {
		conds = append(conds, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	if filter.Address != "" {
		conds = append(conds, "vendor_address = ?")
		args = append(args, address.Normalize(filter.Address))
	}
	if filter.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		conds = append(conds, "created_at < ?")
		args = append(args, filter.Until.UTC())
	}

	query := auditSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY seq ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*model.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}

	return entries, nil
}

// ApprovalRate summarizes decision outcomes since the given time.
func (s *SQLiteStorage) ApprovalRate(ctx context.Context, since time.Time) (*service.ApprovalStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var stats service.ApprovalStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0)
		FROM audit_entries
		WHERE kind = ? AND created_at >= ?
	`, string(model.OutcomeApproved), string(model.OutcomeRejected),
		string(model.AuditKindDecision), since.UTC()).Scan(&stats.Approved, &stats.Rejected)
	if err != nil {
		return nil, fmt.Errorf("failed to compute approval rate: %w", err)
	}

	if total := stats.Approved + stats.Rejected; total > 0 {
		stats.Rate = float64(stats.Approved) / float64(total)
	}

	return &stats, nil
}

// SpendByCategory reports each budget's limit, spent, remaining, and the
// number of approved decisions recorded against it.
func (s *SQLiteStorage) SpendByCategory(ctx context.Context) ([]service.CategorySpend, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.category, b.monthly_limit, b.current_spent,
			COALESCE((
				SELECT COUNT(*) FROM audit_entries a
				WHERE a.category = b.category AND a.kind = ? AND a.outcome = ?
			), 0)
		FROM budgets b
		ORDER BY b.category
	`, string(model.AuditKindDecision), string(model.OutcomeApproved))
	if err != nil {
		return nil, fmt.Errorf("failed to query category spend: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var spends []service.CategorySpend
	for rows.Next() {
		var (
			spend        service.CategorySpend
			limit, spent string
		)
		if err := rows.Scan(&spend.Category, &limit, &spent, &spend.Approvals); err != nil {
			return nil, fmt.Errorf("failed to scan category spend: %w", err)
		}
		if spend.Limit, err = parseDecimal(limit, "monthly_limit"); err != nil {
			return nil, err
		}
		if spend.Spent, err = parseDecimal(spent, "current_spent"); err != nil {
			return nil, err
		}
		spend.Remaining = spend.Limit.Sub(spend.Spent)
		spends = append(spends, spend)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category spend: %w", err)
	}

	return spends, nil
}

const auditSelect = `
	SELECT id, parent_id, kind, proposal_text, vendor_name, vendor_address,
		category, amount, outcome, risk, reasoning, confidence,
		settlement_ref, created_at
	FROM audit_entries`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuditEntry(row rowScanner) (*model.AuditEntry, error) {
	var (
		entry  model.AuditEntry
		parent sql.NullString
		amount string
	)

	err := row.Scan(
		&entry.ID, &parent, &entry.Kind, &entry.ProposalText,
		&entry.VendorName, &entry.VendorAddress, &entry.Category,
		&amount, &entry.Outcome, &entry.Risk, &entry.Reasoning,
		&entry.Confidence, &entry.SettlementRef, &entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.ParentID = parent.String
	if entry.Amount, err = parseDecimal(amount, "amount"); err != nil {
		return nil, err
	}

	return &entry, nil
}
