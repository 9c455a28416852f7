package snapshot

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gridwatch/alertflow/internal/logging"
	"github.com/gridwatch/alertflow/internal/metrics"
	"github.com/gridwatch/alertflow/internal/models"
)

// DefaultRefreshInterval is used when no interval is configured.
const DefaultRefreshInterval = 60 * time.Second

// Source supplies the raw configuration collections for a snapshot. A source
// may block (database read, file read); it must not be called from the
// evaluation path.
type Source interface {
	Load(ctx context.Context) ([]*models.AlertRule, []*models.AlertTemplate, []*models.AlertReceiver, error)
}

// Provider holds the current snapshot behind an atomic pointer and refreshes
// it from a Source on a fixed interval. Readers always observe either the
// previous or the new snapshot, never a partial one.
type Provider struct {
	source   Source
	interval time.Duration
	current  atomic.Pointer[Snapshot]

	// force wakes the refresh loop outside its tick.
	force chan struct{}
}

// NewProvider creates a provider and performs the initial load. The initial
// load is fatal on failure so the engine never starts without configuration.
func NewProvider(ctx context.Context, source Source, interval time.Duration) (*Provider, error) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	p := &Provider{
		source:   source,
		interval: interval,
		force:    make(chan struct{}, 1),
	}
	if err := p.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("initial config load: %w", err)
	}
	return p, nil
}

// Current returns the current snapshot. Never nil after NewProvider succeeds.
func (p *Provider) Current() *Snapshot {
	return p.current.Load()
}

// Refresh loads a fresh snapshot from the source and atomically publishes it.
// On failure the previous snapshot stays in place.
func (p *Provider) Refresh(ctx context.Context) error {
	rules, templates, receivers, err := p.source.Load(ctx)
	if err != nil {
		metrics.SnapshotRefreshFailures.Inc()
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.WithComponent("snapshot")

	// Invalid rules are dropped rather than failing the whole refresh; a
	// single bad regex must not take the rule set down.
	valid := rules[:0]
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			log.Warn().Int64("rule_id", r.ID).Err(err).Msg("dropping invalid rule")
			continue
		}
		valid = append(valid, r)
	}

	snap := New(valid, templates, receivers)
	p.current.Store(snap)

	metrics.SnapshotRefreshes.Inc()
	metrics.SnapshotRules.Set(float64(len(snap.Rules())))
	metrics.SnapshotReceivers.Set(float64(len(snap.Receivers())))

	log.Debug().
		Int("rules", len(snap.Rules())).
		Int("templates", len(snap.Templates())).
		Int("receivers", len(snap.Receivers())).
		Msg("snapshot refreshed")
	return nil
}

// ForceRefresh asks the running refresh loop to refresh immediately. It is a
// no-op if a forced refresh is already pending.
func (p *Provider) ForceRefresh() {
	select {
	case p.force <- struct{}{}:
	default:
	}
}

// Run refreshes the snapshot on the configured interval until ctx is
// cancelled. Refresh failures keep the last good snapshot and are never fatal.
func (p *Provider) Run(ctx context.Context) error {
	log := logging.WithComponent("snapshot")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-p.force:
		}
		if err := p.Refresh(ctx); err != nil {
			log.Error().Err(err).Msg("snapshot refresh failed, keeping previous snapshot")
		}
	}
}
