package storage

import (
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Alert rules table
			CREATE TABLE IF NOT EXISTS alert_rules (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				metric_name TEXT NOT NULL,
				operator TEXT NOT NULL,
				threshold REAL NOT NULL,
				level TEXT NOT NULL,
				device_filter TEXT NOT NULL DEFAULT '',
				consecutive_count INTEGER NOT NULL DEFAULT 1,
				cooldown_ns INTEGER NOT NULL DEFAULT 0,
				template_id INTEGER NOT NULL DEFAULT 0,
				enabled INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Alert templates table
			CREATE TABLE IF NOT EXISTS alert_templates (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				title_template TEXT NOT NULL DEFAULT '',
				message_template TEXT NOT NULL DEFAULT '',
				enabled INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Alert receivers table
			CREATE TABLE IF NOT EXISTS alert_receivers (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				type TEXT NOT NULL,
				contact TEXT NOT NULL,
				level_filter TEXT NOT NULL DEFAULT '',
				enabled INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_alert_rules_enabled ON alert_rules(enabled);
			CREATE INDEX IF NOT EXISTS idx_alert_receivers_enabled ON alert_receivers(enabled);
		`,
	},
	{
		Version: 2,
		Name:    "engine_state",
		Up: `
			-- Checkpointed per-(rule, device) evaluation state
			CREATE TABLE IF NOT EXISTS engine_state (
				rule_id INTEGER NOT NULL,
				device_id TEXT NOT NULL,
				violation_count INTEGER NOT NULL DEFAULT 0,
				last_alert_at INTEGER NOT NULL DEFAULT 0,
				updated_at DATETIME NOT NULL,
				PRIMARY KEY (rule_id, device_id)
			);
		`,
	},
}

// Migrate applies all pending migrations.
func (s *SQLiteStorage) Migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
