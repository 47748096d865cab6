package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mshadianto/mnee-sentinel/internal/address"
	"github.com/mshadianto/mnee-sentinel/internal/common"
	"github.com/mshadianto/mnee-sentinel/internal/model"
)

// DefaultVelocityWindow is the fixed anti-fraud window length used when the
// caller passes no explicit length. The window resets on expiry rather than
// sliding.
const DefaultVelocityWindow = 24 * time.Hour

// CheckAndRecord evaluates the velocity limits for a payee and, when they
// hold, records the transaction in the current window. The expiry reset,
// the limit check, and the increment happen under one per-payee lock, so
// the window invariants hold under concurrent submission. On violation
// nothing is recorded and *VelocityExceededError identifies which bound
// was hit. A non-positive windowLength falls back to DefaultVelocityWindow.
func (s *SQLiteStorage) CheckAndRecord(ctx context.Context, addr string, amount decimal.Decimal, maxCount int, maxAmount decimal.Decimal, windowLength time.Duration) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(addr, "addr"); err != nil {
		return err
	}
	if err := validateAmount(amount, "amount"); err != nil {
		return err
	}

	addr = address.Normalize(addr)
	if windowLength <= 0 {
		windowLength = DefaultVelocityWindow
	}

	unlock := s.payeeLocks.acquire(addr)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	window, err := s.getVelocityTx(ctx, tx, addr)
	switch {
	case errors.Is(err, common.ErrNotFound):
		window = &model.VelocityWindow{Address: addr, TotalAmount: decimal.Zero, WindowStart: now}
	case err != nil:
		return err
	case window.Expired(now, windowLength):
		// Stale window: reset before evaluating.
		window = &model.VelocityWindow{Address: addr, TotalAmount: decimal.Zero, WindowStart: now}
	}

	if maxCount > 0 && window.TxCount+1 > maxCount {
		return &VelocityExceededError{
			Address: addr,
			Which:   VelocityCountLimit,
			Current: strconv.Itoa(window.TxCount),
			Max:     strconv.Itoa(maxCount),
		}
	}

	newTotal := window.TotalAmount.Add(amount)
	if maxAmount.Sign() > 0 && newTotal.GreaterThan(maxAmount) {
		return &VelocityExceededError{
			Address: addr,
			Which:   VelocityAmountLimit,
			Current: window.TotalAmount.String(),
			Max:     maxAmount.String(),
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO velocity_windows (address, tx_count, total_amount, window_start)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			tx_count = excluded.tx_count,
			total_amount = excluded.total_amount,
			window_start = excluded.window_start
	`, addr, window.TxCount+1, newTotal.String(), window.WindowStart); err != nil {
		return fmt.Errorf("failed to record velocity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit velocity record: %w", err)
	}

	return nil
}

// ReleaseRecord backs out one recorded transaction (compensating rollback
// for a pipeline stage that failed after the record was made). Count and
// amount floor at zero.
func (s *SQLiteStorage) ReleaseRecord(ctx context.Context, addr string, amount decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(addr, "addr"); err != nil {
		return err
	}
	if err := validateAmount(amount, "amount"); err != nil {
		return err
	}

	addr = address.Normalize(addr)

	unlock := s.payeeLocks.acquire(addr)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	window, err := s.getVelocityTx(ctx, tx, addr)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	count := window.TxCount - 1
	if count < 0 {
		count = 0
	}
	total := window.TotalAmount.Sub(amount)
	if total.Sign() < 0 {
		total = decimal.Zero
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE velocity_windows SET tx_count = ?, total_amount = ? WHERE address = ?
	`, count, total.String(), addr); err != nil {
		return fmt.Errorf("failed to release velocity record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit velocity release: %w", err)
	}

	return nil
}

// GetVelocity retrieves the current window for a payee, or common.ErrNotFound.
func (s *SQLiteStorage) GetVelocity(ctx context.Context, addr string) (*model.VelocityWindow, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(addr, "addr"); err != nil {
		return nil, err
	}
	return s.getVelocityTx(ctx, s.db, address.Normalize(addr))
}

func (s *SQLiteStorage) getVelocityTx(ctx context.Context, q queryable, addr string) (*model.VelocityWindow, error) {
	var (
		window model.VelocityWindow
		total  string
	)

	err := q.QueryRowContext(ctx, `
		SELECT address, tx_count, total_amount, window_start
		FROM velocity_windows
		WHERE address = ?
	`, addr).Scan(&window.Address, &window.TxCount, &total, &window.WindowStart)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get velocity window: %w", err)
	}

	if window.TotalAmount, err = parseDecimal(total, "total_amount"); err != nil {
		return nil, err
	}

	return &window, nil
}
