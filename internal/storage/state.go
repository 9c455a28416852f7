package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/gridwatch/alertflow/internal/state"
)

// SaveState replaces the persisted evaluation state with the given snapshot.
// The swap runs in one transaction so a crash mid-checkpoint never leaves a
// mixed old/new state behind.
func (s *SQLiteStorage) SaveState(ctx context.Context, states map[state.Key]state.RuleState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin state checkpoint: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM engine_state"); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear engine state: %w", err)
	}

	now := time.Now()
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO engine_state (rule_id, device_id, violation_count, last_alert_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare state insert: %w", err)
	}
	defer stmt.Close()

	for key, st := range states {
		if _, err := stmt.ExecContext(ctx, key.RuleID, key.DeviceID,
			st.ViolationCount, st.LastAlertAt, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert state for %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit state checkpoint: %w", err)
	}
	return nil
}

// LoadState reads the persisted evaluation state.
func (s *SQLiteStorage) LoadState(ctx context.Context) (map[state.Key]state.RuleState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, device_id, violation_count, last_alert_at FROM engine_state`)
	if err != nil {
		return nil, fmt.Errorf("query engine state: %w", err)
	}
	defer rows.Close()

	states := make(map[state.Key]state.RuleState)
	for rows.Next() {
		var (
			key state.Key
			st  state.RuleState
		)
		if err := rows.Scan(&key.RuleID, &key.DeviceID, &st.ViolationCount, &st.LastAlertAt); err != nil {
			return nil, fmt.Errorf("scan engine state: %w", err)
		}
		states[key] = st
	}
	return states, rows.Err()
}
