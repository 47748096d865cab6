package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mshadianto/mnee-sentinel/internal/address"
	"github.com/mshadianto/mnee-sentinel/internal/common"
	"github.com/mshadianto/mnee-sentinel/internal/model"
)

// GetVendor retrieves a vendor entry by wallet address. Addresses are
// normalized to lowercase before lookup. Inactive entries are returned with
// IsActive=false so callers can distinguish "deactivated" from "unknown";
// absent entries yield common.ErrNotFound.
func (s *SQLiteStorage) GetVendor(ctx context.Context, addr string) (*model.VendorEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(addr, "addr"); err != nil {
		return nil, err
	}

	addr = address.Normalize(addr)

	if vendor := s.getCachedVendor(addr); vendor != nil {
		return vendor, nil
	}

	return s.getVendorTx(ctx, s.db, addr)
}

func (s *SQLiteStorage) getVendorTx(ctx context.Context, q queryable, addr string) (*model.VendorEntry, error) {
	var (
		vendor model.VendorEntry
		limit  string
	)

	err := q.QueryRowContext(ctx, `
		SELECT address, name, category, max_tx_limit, is_active, created_at, updated_at
		FROM vendors
		WHERE address = ?
	`, addr).Scan(
		&vendor.Address,
		&vendor.Name,
		&vendor.Category,
		&limit,
		&vendor.IsActive,
		&vendor.CreatedAt,
		&vendor.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}

	vendor.MaxTxLimit, err = parseDecimal(limit, "max_tx_limit")
	if err != nil {
		return nil, err
	}

	s.cacheVendor(&vendor)

	return &vendor, nil
}

// SaveVendor creates or updates a whitelist entry. The vendor's category
// must reference an existing budget. The mutation and its administrative
// audit record commit in one transaction.
func (s *SQLiteStorage) SaveVendor(ctx context.Context, vendor *model.VendorEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateVendor(vendor); err != nil {
		return err
	}

	vendor.Address = address.Normalize(vendor.Address)
	if vendor.UpdatedAt.IsZero() {
		vendor.UpdatedAt = time.Now().UTC()
	}
	if vendor.CreatedAt.IsZero() {
		vendor.CreatedAt = vendor.UpdatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var categoryExists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM budgets WHERE category = ?)
	`, vendor.Category).Scan(&categoryExists)
	if err != nil {
		return fmt.Errorf("failed to check category existence: %w", err)
	}
	if !categoryExists {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, vendor.Category)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vendors (address, name, category, max_tx_limit, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			max_tx_limit = excluded.max_tx_limit,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`, vendor.Address, vendor.Name, vendor.Category, vendor.MaxTxLimit.String(),
		vendor.IsActive, vendor.CreatedAt, vendor.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save vendor: %w", err)
	}

	audit := &model.AuditEntry{
		Kind:          model.AuditKindAdmin,
		VendorName:    vendor.Name,
		VendorAddress: vendor.Address,
		Category:      vendor.Category,
		Amount:        vendor.MaxTxLimit,
		Reasoning:     fmt.Sprintf("vendor upserted: %s (%s), category %s, per-transaction limit %s, active=%t", vendor.Name, vendor.Address, vendor.Category, vendor.MaxTxLimit, vendor.IsActive),
	}
	if _, err := s.appendAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit vendor save: %w", err)
	}

	s.cacheVendor(vendor)

	return nil
}

// DeactivateVendor marks a whitelist entry inactive. Takes effect
// immediately for new evaluations: the cache entry is dropped in the same
// call.
func (s *SQLiteStorage) DeactivateVendor(ctx context.Context, addr string) error {
	return s.setVendorActive(ctx, addr, false)
}

func (s *SQLiteStorage) setVendorActive(ctx context.Context, addr string, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(addr, "addr"); err != nil {
		return err
	}

	addr = address.Normalize(addr)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE vendors SET is_active = ?, updated_at = ? WHERE address = ?
	`, active, time.Now().UTC(), addr)
	if err != nil {
		return fmt.Errorf("failed to update vendor: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrNotFound
	}

	audit := &model.AuditEntry{
		Kind:          model.AuditKindAdmin,
		VendorAddress: addr,
		Reasoning:     fmt.Sprintf("vendor active flag set to %t: %s", active, addr),
	}
	if _, err := s.appendAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit vendor update: %w", err)
	}

	s.dropCachedVendor(addr)

	return nil
}

// DeleteVendor removes a whitelist entry entirely.
func (s *SQLiteStorage) DeleteVendor(ctx context.Context, addr string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(addr, "addr"); err != nil {
		return err
	}

	addr = address.Normalize(addr)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `DELETE FROM vendors WHERE address = ?`, addr)
	if err != nil {
		return fmt.Errorf("failed to delete vendor: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrNotFound
	}

	audit := &model.AuditEntry{
		Kind:          model.AuditKindAdmin,
		VendorAddress: addr,
		Reasoning:     fmt.Sprintf("vendor removed from whitelist: %s", addr),
	}
	if _, err := s.appendAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit vendor delete: %w", err)
	}

	s.dropCachedVendor(addr)

	return nil
}

// ListVendors retrieves all whitelist entries ordered by name.
func (s *SQLiteStorage) ListVendors(ctx context.Context) ([]model.VendorEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT address, name, category, max_tx_limit, is_active, created_at, updated_at
		FROM vendors
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var vendors []model.VendorEntry
	for rows.Next() {
		var (
			vendor model.VendorEntry
			limit  string
		)
		err := rows.Scan(
			&vendor.Address,
			&vendor.Name,
			&vendor.Category,
			&limit,
			&vendor.IsActive,
			&vendor.CreatedAt,
			&vendor.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendor.MaxTxLimit, err = parseDecimal(limit, "max_tx_limit")
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, vendor)
	}

	return vendors, rows.Err()
}

// getCachedVendor retrieves a vendor from the cache.
func (s *SQLiteStorage) getCachedVendor(addr string) *model.VendorEntry {
	s.cacheMutex.RLock()

	if time.Now().After(s.cacheExpiry) {
		// Cache expired; upgrade to write lock and clear it.
		s.cacheMutex.RUnlock()
		s.cacheMutex.Lock()
		defer s.cacheMutex.Unlock()

		// Double-check after acquiring write lock
		if time.Now().After(s.cacheExpiry) {
			s.vendorCache = make(map[string]*model.VendorEntry)
		}
		return nil
	}

	vendor := s.vendorCache[addr]
	s.cacheMutex.RUnlock()
	return vendor
}

// cacheVendor adds a vendor to the cache.
func (s *SQLiteStorage) cacheVendor(vendor *model.VendorEntry) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	if len(s.vendorCache) == 0 {
		// Set cache expiry on first entry
		s.cacheExpiry = time.Now().Add(s.vendorCacheTTL)
	}
	s.vendorCache[vendor.Address] = vendor
}

// dropCachedVendor removes one entry so administrative changes are honored
// immediately rather than after cache expiry.
func (s *SQLiteStorage) dropCachedVendor(addr string) {
	s.cacheMutex.Lock()
	delete(s.vendorCache, addr)
	s.cacheMutex.Unlock()
}
