package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gridwatch/alertflow/internal/models"
)

const ruleColumns = `id, name, metric_name, operator, threshold, level,
	device_filter, consecutive_count, cooldown_ns, template_id, enabled,
	created_at, updated_at`

// CreateRule inserts a rule and assigns its id.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *models.AlertRule) error {
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_rules (name, metric_name, operator, threshold, level,
			device_filter, consecutive_count, cooldown_ns, template_id, enabled,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.Name, rule.MetricName, rule.Operator, rule.Threshold, string(rule.Level),
		rule.DeviceFilter, rule.ConsecutiveCount, rule.Cooldown.Nanoseconds(),
		rule.TemplateID, boolToInt(rule.Enabled), rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("rule id: %w", err)
	}
	rule.ID = id
	return nil
}

// UpdateRule updates an existing rule.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *models.AlertRule) error {
	rule.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE alert_rules SET name = ?, metric_name = ?, operator = ?,
			threshold = ?, level = ?, device_filter = ?, consecutive_count = ?,
			cooldown_ns = ?, template_id = ?, enabled = ?, updated_at = ?
		WHERE id = ?`,
		rule.Name, rule.MetricName, rule.Operator, rule.Threshold, string(rule.Level),
		rule.DeviceFilter, rule.ConsecutiveCount, rule.Cooldown.Nanoseconds(),
		rule.TemplateID, boolToInt(rule.Enabled), rule.UpdatedAt, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("rule not found: %d", rule.ID)
	}
	return nil
}

// DeleteRule removes a rule by id.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM alert_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("rule not found: %d", id)
	}
	return nil
}

// ListRules returns all rules ordered by id.
func (s *SQLiteStorage) ListRules(ctx context.Context) ([]*models.AlertRule, error) {
	return s.queryRules(ctx, "SELECT "+ruleColumns+" FROM alert_rules ORDER BY id")
}

// ListEnabledRules returns the enabled rules ordered by id.
func (s *SQLiteStorage) ListEnabledRules(ctx context.Context) ([]*models.AlertRule, error) {
	return s.queryRules(ctx, "SELECT "+ruleColumns+" FROM alert_rules WHERE enabled = 1 ORDER BY id")
}

func (s *SQLiteStorage) queryRules(ctx context.Context, query string, args ...any) ([]*models.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.AlertRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanRule(rows *sql.Rows) (*models.AlertRule, error) {
	var (
		rule       models.AlertRule
		level      string
		cooldownNS int64
		enabled    int
	)
	err := rows.Scan(&rule.ID, &rule.Name, &rule.MetricName, &rule.Operator,
		&rule.Threshold, &level, &rule.DeviceFilter, &rule.ConsecutiveCount,
		&cooldownNS, &rule.TemplateID, &enabled, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan rule: %w", err)
	}
	rule.Level = models.ParseSeverity(level)
	rule.Cooldown = time.Duration(cooldownNS)
	rule.Enabled = enabled != 0
	return &rule, nil
}
