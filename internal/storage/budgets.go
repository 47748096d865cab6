package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mshadianto/mnee-sentinel/internal/model"
)

// GetBudget retrieves one budget row, or ErrUnknownCategory.
func (s *SQLiteStorage) GetBudget(ctx context.Context, category string) (*model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(category, "category"); err != nil {
		return nil, err
	}
	return s.getBudgetTx(ctx, s.db, category)
}

func (s *SQLiteStorage) getBudgetTx(ctx context.Context, q queryable, category string) (*model.Budget, error) {
	var (
		budget model.Budget
		limit  string
		spent  string
	)

	err := q.QueryRowContext(ctx, `
		SELECT category, monthly_limit, current_spent, reset_at
		FROM budgets
		WHERE category = ?
	`, category).Scan(&budget.Category, &limit, &spent, &budget.ResetAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}

	if budget.MonthlyLimit, err = parseDecimal(limit, "monthly_limit"); err != nil {
		return nil, err
	}
	if budget.Spent, err = parseDecimal(spent, "current_spent"); err != nil {
		return nil, err
	}

	return &budget, nil
}

// Remaining returns limit minus spent for a category.
func (s *SQLiteStorage) Remaining(ctx context.Context, category string) (decimal.Decimal, error) {
	budget, err := s.GetBudget(ctx, category)
	if err != nil {
		return decimal.Zero, err
	}
	return budget.Remaining(), nil
}

// TryDebit atomically checks spent + amount <= limit and, if it holds,
// increments spent. On refusal it returns *InsufficientBudgetError with the
// exact shortfall and mutates nothing. Concurrent debits against the same
// category serialize through a per-category mutex, so two callers can never
// both consume the same headroom.
func (s *SQLiteStorage) TryDebit(ctx context.Context, category string, amount decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}
	if err := validateAmount(amount, "amount"); err != nil {
		return err
	}

	unlock := s.categoryLocks.acquire(category)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	budget, err := s.getBudgetTx(ctx, tx, category)
	if err != nil {
		return err
	}

	newSpent := budget.Spent.Add(amount)
	if newSpent.GreaterThan(budget.MonthlyLimit) {
		remaining := budget.Remaining()
		return &InsufficientBudgetError{
			Category:  category,
			Required:  amount,
			Remaining: remaining,
			Limit:     budget.MonthlyLimit,
			Shortfall: amount.Sub(remaining),
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE budgets SET current_spent = ? WHERE category = ?
	`, newSpent.String(), category); err != nil {
		return fmt.Errorf("failed to debit budget: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit debit: %w", err)
	}

	return nil
}

// CreditBudget reverses a previous debit (compensating rollback). Spent
// floors at zero rather than going negative.
func (s *SQLiteStorage) CreditBudget(ctx context.Context, category string, amount decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}
	if err := validateAmount(amount, "amount"); err != nil {
		return err
	}

	unlock := s.categoryLocks.acquire(category)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	budget, err := s.getBudgetTx(ctx, tx, category)
	if err != nil {
		return err
	}

	newSpent := budget.Spent.Sub(amount)
	if newSpent.Sign() < 0 {
		newSpent = decimal.Zero
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE budgets SET current_spent = ? WHERE category = ?
	`, newSpent.String(), category); err != nil {
		return fmt.Errorf("failed to credit budget: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credit: %w", err)
	}

	return nil
}

// ResetBudget zeroes spending for a category and stamps the reset time.
// Administrative entry point for the external monthly maintenance cycle;
// holds the same per-category lock as TryDebit so a reset can never
// interleave with an in-flight debit.
func (s *SQLiteStorage) ResetBudget(ctx context.Context, category string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}

	unlock := s.categoryLocks.acquire(category)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `
		UPDATE budgets SET current_spent = '0', reset_at = ? WHERE category = ?
	`, now, category)
	if err != nil {
		return fmt.Errorf("failed to reset budget: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	audit := &model.AuditEntry{
		Kind:      model.AuditKindAdmin,
		Category:  category,
		Reasoning: fmt.Sprintf("budget reset: %s spending zeroed at %s", category, now.Format(time.RFC3339)),
	}
	if _, err := s.appendAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	return nil
}

// SaveBudget creates or updates a budget. Administrative mutation; violating
// invariants (negative limit) fails before any state change.
func (s *SQLiteStorage) SaveBudget(ctx context.Context, budget *model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(budget); err != nil {
		return err
	}

	unlock := s.categoryLocks.acquire(budget.Category)
	defer unlock()

	if budget.ResetAt.IsZero() {
		budget.ResetAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO budgets (category, monthly_limit, current_spent, reset_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET
			monthly_limit = excluded.monthly_limit
	`, budget.Category, budget.MonthlyLimit.String(), budget.Spent.String(), budget.ResetAt)
	if err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}

	audit := &model.AuditEntry{
		Kind:      model.AuditKindAdmin,
		Category:  budget.Category,
		Amount:    budget.MonthlyLimit,
		Reasoning: fmt.Sprintf("budget upserted: %s monthly limit %s", budget.Category, budget.MonthlyLimit),
	}
	if _, err := s.appendAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit budget save: %w", err)
	}

	return nil
}

// ListBudgets retrieves all budgets ordered by category.
func (s *SQLiteStorage) ListBudgets(ctx context.Context) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, monthly_limit, current_spent, reset_at
		FROM budgets
		ORDER BY category
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	for rows.Next() {
		var (
			budget model.Budget
			limit  string
			spent  string
		)
		if err := rows.Scan(&budget.Category, &limit, &spent, &budget.ResetAt); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		if budget.MonthlyLimit, err = parseDecimal(limit, "monthly_limit"); err != nil {
			return nil, err
		}
		if budget.Spent, err = parseDecimal(spent, "current_spent"); err != nil {
			return nil, err
		}
		budgets = append(budgets, budget)
	}

	return budgets, rows.Err()
}
