package storage

import (
	"context"

	"github.com/gridwatch/alertflow/internal/models"
)

// ConfigSource adapts SQLiteStorage to the snapshot provider's Source
// interface: one load returns the three enabled collections together.
type ConfigSource struct {
	storage *SQLiteStorage
}

// NewConfigSource creates a snapshot source backed by the given storage.
func NewConfigSource(storage *SQLiteStorage) *ConfigSource {
	return &ConfigSource{storage: storage}
}

// Load reads the enabled rules, templates, and receivers.
func (c *ConfigSource) Load(ctx context.Context) ([]*models.AlertRule, []*models.AlertTemplate, []*models.AlertReceiver, error) {
	rules, err := c.storage.ListEnabledRules(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	templates, err := c.storage.ListEnabledTemplates(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	receivers, err := c.storage.ListEnabledReceivers(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return rules, templates, receivers, nil
}
