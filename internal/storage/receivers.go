package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gridwatch/alertflow/internal/models"
)

const receiverColumns = `id, name, type, contact, level_filter, enabled,
	created_at, updated_at`

// CreateReceiver inserts a receiver and assigns its id.
func (s *SQLiteStorage) CreateReceiver(ctx context.Context, rcv *models.AlertReceiver) error {
	now := time.Now()
	rcv.CreatedAt = now
	rcv.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_receivers (name, type, contact, level_filter,
			enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rcv.Name, string(rcv.Type), rcv.Contact, rcv.LevelFilter,
		boolToInt(rcv.Enabled), rcv.CreatedAt, rcv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert receiver: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("receiver id: %w", err)
	}
	rcv.ID = id
	return nil
}

// ListReceivers returns all receivers ordered by id.
func (s *SQLiteStorage) ListReceivers(ctx context.Context) ([]*models.AlertReceiver, error) {
	return s.queryReceivers(ctx, "SELECT "+receiverColumns+" FROM alert_receivers ORDER BY id")
}

// ListEnabledReceivers returns the enabled receivers ordered by id.
func (s *SQLiteStorage) ListEnabledReceivers(ctx context.Context) ([]*models.AlertReceiver, error) {
	return s.queryReceivers(ctx, "SELECT "+receiverColumns+" FROM alert_receivers WHERE enabled = 1 ORDER BY id")
}

func (s *SQLiteStorage) queryReceivers(ctx context.Context, query string, args ...any) ([]*models.AlertReceiver, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query receivers: %w", err)
	}
	defer rows.Close()

	var receivers []*models.AlertReceiver
	for rows.Next() {
		rcv, err := scanReceiver(rows)
		if err != nil {
			return nil, err
		}
		receivers = append(receivers, rcv)
	}
	return receivers, rows.Err()
}

func scanReceiver(rows *sql.Rows) (*models.AlertReceiver, error) {
	var (
		rcv     models.AlertReceiver
		rcvType string
		enabled int
	)
	err := rows.Scan(&rcv.ID, &rcv.Name, &rcvType, &rcv.Contact,
		&rcv.LevelFilter, &enabled, &rcv.CreatedAt, &rcv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan receiver: %w", err)
	}
	rcv.Type = models.ReceiverType(rcvType)
	rcv.Enabled = enabled != 0
	return &rcv, nil
}
