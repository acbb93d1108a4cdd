package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/roundlot/ticker-scout/internal/rules"
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
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS mappings (
					id TEXT PRIMARY KEY,
					transaction_id TEXT NOT NULL,
					user_id TEXT NOT NULL,
					merchant_name TEXT NOT NULL,
					canonical_company_name TEXT NOT NULL DEFAULT '',
					ticker TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL DEFAULT '',
					confidence REAL NOT NULL DEFAULT 0,
					status TEXT NOT NULL,
					source_type TEXT NOT NULL DEFAULT 'none',
					ai_requested INTEGER NOT NULL DEFAULT 0,
					round_up_cents INTEGER NOT NULL DEFAULT 0,
					reviewed_by TEXT NOT NULL DEFAULT '',
					review_note TEXT NOT NULL DEFAULT '',
					reviewed_at DATETIME,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				// One active (non-rejected) mapping per transaction/user pair.
				`CREATE UNIQUE INDEX idx_mappings_active
					ON mappings(transaction_id, user_id)
					WHERE status != 'rejected'`,
				`CREATE INDEX idx_mappings_status ON mappings(status)`,
				`CREATE INDEX idx_mappings_merchant ON mappings(merchant_name)`,

				`CREATE TABLE IF NOT EXISTS exchanges (
					id TEXT PRIMARY KEY,
					mapping_id TEXT NOT NULL,
					merchant_name TEXT NOT NULL,
					category TEXT NOT NULL DEFAULT '',
					request_payload TEXT NOT NULL DEFAULT '',
					raw_response TEXT NOT NULL DEFAULT '',
					parsed_ticker TEXT NOT NULL DEFAULT '',
					parsed_confidence REAL NOT NULL DEFAULT 0,
					parsed_status TEXT NOT NULL DEFAULT '',
					reasoning TEXT NOT NULL DEFAULT '',
					model_version TEXT NOT NULL DEFAULT '',
					processing_time_ms INTEGER NOT NULL DEFAULT 0,
					is_error INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (mapping_id) REFERENCES mappings(id)
				)`,
				`CREATE INDEX idx_exchanges_mapping ON exchanges(mapping_id)`,
				`CREATE INDEX idx_exchanges_merchant ON exchanges(merchant_name)`,

				`CREATE TABLE IF NOT EXISTS rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					pattern TEXT NOT NULL,
					match_type TEXT NOT NULL,
					ticker TEXT NOT NULL,
					canonical_name TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL,
					base_confidence REAL NOT NULL,
					priority INTEGER NOT NULL DEFAULT 100,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
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
		Description: "Add moderator feedback columns to exchanges",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE exchanges ADD COLUMN feedback_was_correct INTEGER`,
				`ALTER TABLE exchanges ADD COLUMN feedback_corrected_ticker TEXT NOT NULL DEFAULT ''`,
				`ALTER TABLE exchanges ADD COLUMN feedback_note TEXT NOT NULL DEFAULT ''`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Seed default merchant rules",
		Up: func(tx *sql.Tx) error {
			var count int
			if err := tx.QueryRow(`SELECT COUNT(*) FROM rules`).Scan(&count); err != nil {
				return fmt.Errorf("failed to count rules: %w", err)
			}
			if count > 0 {
				return nil
			}

			stmt, err := tx.Prepare(`
				INSERT INTO rules (pattern, match_type, ticker, canonical_name, category, base_confidence, priority)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`)
			if err != nil {
				return fmt.Errorf("failed to prepare rule insert: %w", err)
			}
			defer func() { _ = stmt.Close() }()

			for _, rule := range rules.DefaultRules() {
				if _, err := stmt.Exec(
					rule.Pattern,
					string(rule.MatchType),
					rule.Ticker,
					rule.CanonicalName,
					rule.Category,
					rule.BaseConfidence,
					rule.Priority,
				); err != nil {
					return fmt.Errorf("failed to seed rule %q: %w", rule.Pattern, err)
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

		tx, txErr := s.beginTx(ctx)
		if txErr != nil {
			return txErr
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

// SchemaVersion reports the current schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
