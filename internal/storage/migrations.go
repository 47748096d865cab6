package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: vendors, budgets, velocity",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				// Monetary amounts are stored as TEXT and parsed as
				// fixed-point decimals; REAL would lose precision.
				`CREATE TABLE IF NOT EXISTS vendors (
					address TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					category TEXT NOT NULL,
					max_tx_limit TEXT NOT NULL,
					is_active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_vendors_category ON vendors(category)`,
				`CREATE INDEX idx_vendors_active ON vendors(is_active)`,

				`CREATE TABLE IF NOT EXISTS budgets (
					category TEXT PRIMARY KEY,
					monthly_limit TEXT NOT NULL,
					current_spent TEXT NOT NULL DEFAULT '0',
					reset_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS velocity_windows (
					address TEXT PRIMARY KEY,
					tx_count INTEGER NOT NULL DEFAULT 0,
					total_amount TEXT NOT NULL DEFAULT '0',
					window_start DATETIME NOT NULL
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Append-only audit trail",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS audit_entries (
					seq INTEGER PRIMARY KEY AUTOINCREMENT,
					id TEXT UNIQUE NOT NULL,
					parent_id TEXT,
					kind TEXT NOT NULL,
					proposal_text TEXT,
					vendor_name TEXT,
					vendor_address TEXT,
					category TEXT,
					amount TEXT,
					outcome TEXT,
					risk TEXT,
					reasoning TEXT,
					confidence REAL DEFAULT 0,
					settlement_ref TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_audit_outcome ON audit_entries(outcome)`,
				`CREATE INDEX idx_audit_address ON audit_entries(vendor_address)`,
				`CREATE INDEX idx_audit_category ON audit_entries(category)`,
				`CREATE INDEX idx_audit_created ON audit_entries(created_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Guard audit rows against update and delete",
		Up: func(tx *sql.Tx) error {
			// The storage layer never issues UPDATE or DELETE on
			// audit_entries; these triggers enforce the same invariant
			// against any other writer sharing the file.
			queries := []string{
				`CREATE TRIGGER audit_entries_no_update
				BEFORE UPDATE ON audit_entries
				BEGIN
					SELECT RAISE(ABORT, 'audit entries are immutable');
				END`,
				`CREATE TRIGGER audit_entries_no_delete
				BEFORE DELETE ON audit_entries
				BEGIN
					SELECT RAISE(ABORT, 'audit entries are append-only');
				END`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
