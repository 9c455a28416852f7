package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gridwatch/alertflow/internal/models"
)

const templateColumns = `id, name, title_template, message_template, enabled,
	created_at, updated_at`

// CreateTemplate inserts a template and assigns its id.
func (s *SQLiteStorage) CreateTemplate(ctx context.Context, tpl *models.AlertTemplate) error {
	now := time.Now()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_templates (name, title_template, message_template,
			enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tpl.Name, tpl.TitleTemplate, tpl.MessageTemplate,
		boolToInt(tpl.Enabled), tpl.CreatedAt, tpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("template id: %w", err)
	}
	tpl.ID = id
	return nil
}

// ListTemplates returns all templates ordered by id.
func (s *SQLiteStorage) ListTemplates(ctx context.Context) ([]*models.AlertTemplate, error) {
	return s.queryTemplates(ctx, "SELECT "+templateColumns+" FROM alert_templates ORDER BY id")
}

// ListEnabledTemplates returns the enabled templates ordered by id.
func (s *SQLiteStorage) ListEnabledTemplates(ctx context.Context) ([]*models.AlertTemplate, error) {
	return s.queryTemplates(ctx, "SELECT "+templateColumns+" FROM alert_templates WHERE enabled = 1 ORDER BY id")
}

func (s *SQLiteStorage) queryTemplates(ctx context.Context, query string, args ...any) ([]*models.AlertTemplate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.AlertTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

func scanTemplate(rows *sql.Rows) (*models.AlertTemplate, error) {
	var (
		tpl     models.AlertTemplate
		enabled int
	)
	err := rows.Scan(&tpl.ID, &tpl.Name, &tpl.TitleTemplate, &tpl.MessageTemplate,
		&enabled, &tpl.CreatedAt, &tpl.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}
	tpl.Enabled = enabled != 0
	return &tpl, nil
}
