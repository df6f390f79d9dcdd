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

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					hash TEXT UNIQUE NOT NULL,
					raw_body TEXT NOT NULL DEFAULT '',
					sender TEXT NOT NULL DEFAULT '',
					source TEXT NOT NULL,
					date DATETIME NOT NULL,
					amount TEXT NOT NULL,
					direction TEXT NOT NULL,
					merchant TEXT NOT NULL,
					reference TEXT NOT NULL DEFAULT '',
					bank TEXT NOT NULL DEFAULT '',
					card_last4 TEXT NOT NULL DEFAULT '',
					confidence REAL NOT NULL DEFAULT 0,
					is_subscription INTEGER NOT NULL DEFAULT 0,
					category_id INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_merchant ON transactions(merchant)`,

				`CREATE TABLE IF NOT EXISTS merchant_mappings (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					raw_name TEXT UNIQUE NOT NULL,
					display_name TEXT NOT NULL,
					category_id INTEGER NOT NULL DEFAULT 0,
					confidence REAL NOT NULL,
					usage_count INTEGER NOT NULL DEFAULT 0,
					source TEXT NOT NULL,
					last_updated DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Add recurring rules",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS recurring_rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					merchant_pattern TEXT NOT NULL,
					frequency TEXT NOT NULL CHECK (frequency IN ('WEEKLY', 'MONTHLY', 'YEARLY')),
					expected_amount REAL NOT NULL,
					next_expected DATETIME NOT NULL,
					last_occurrence DATETIME,
					is_active INTEGER NOT NULL DEFAULT 1,
					category_id INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					deactivated_at DATETIME
				)`,
				`CREATE INDEX idx_recurring_rules_pattern ON recurring_rules(merchant_pattern)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Add pattern suggestions",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS pattern_suggestions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					merchant_pattern TEXT NOT NULL,
					display_name TEXT NOT NULL,
					average_amount REAL NOT NULL,
					frequency TEXT NOT NULL CHECK (frequency IN ('WEEKLY', 'MONTHLY', 'YEARLY')),
					day_of_period INTEGER NOT NULL,
					occurrences INTEGER NOT NULL CHECK (occurrences >= 2),
					confidence REAL NOT NULL,
					next_date DATETIME NOT NULL,
					category_id INTEGER NOT NULL DEFAULT 0,
					status TEXT NOT NULL DEFAULT 'PENDING',
					rule_id INTEGER REFERENCES recurring_rules(id),
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				// One open suggestion per merchant, so overlapping detection runs cannot duplicate it.
				`CREATE UNIQUE INDEX idx_pattern_suggestions_open
					ON pattern_suggestions(merchant_pattern) WHERE status IN ('PENDING', 'DISMISSED')`,
				`CREATE INDEX idx_pattern_suggestions_status ON pattern_suggestions(status)`,
			})
		},
	},
}

// SchemaVersion returns the schema version currently recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
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

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
