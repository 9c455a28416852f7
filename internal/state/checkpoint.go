package state

import (
	"context"
	"time"

	"github.com/gridwatch/alertflow/internal/logging"
	"github.com/gridwatch/alertflow/internal/metrics"
)

// CheckpointStore persists state snapshots across restarts. The SQLite
// storage layer implements it; a nil CheckpointStore means memory-only
// operation with loss-tolerant restarts.
type CheckpointStore interface {
	SaveState(ctx context.Context, states map[Key]RuleState) error
	LoadState(ctx context.Context) (map[Key]RuleState, error)
}

// Checkpointer periodically persists a Store's snapshot to a CheckpointStore.
type Checkpointer struct {
	store      Store
	checkpoint CheckpointStore
	interval   time.Duration
}

// NewCheckpointer creates a checkpointer. interval <= 0 defaults to 30s.
func NewCheckpointer(store Store, checkpoint CheckpointStore, interval time.Duration) *Checkpointer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Checkpointer{
		store:      store,
		checkpoint: checkpoint,
		interval:   interval,
	}
}

// Restore loads the last checkpoint into the store. Called once before the
// engine starts consuming; an unreadable checkpoint is returned as an error
// so startup can fail fast.
func (c *Checkpointer) Restore(ctx context.Context) error {
	states, err := c.checkpoint.LoadState(ctx)
	if err != nil {
		return err
	}
	c.store.Restore(states)
	log := logging.WithComponent("checkpoint")
	log.Info().
		Int("keys", len(states)).
		Msg("evaluation state restored")
	return nil
}

// Run checkpoints on the configured interval until ctx is cancelled, then
// takes a final checkpoint so a graceful shutdown loses nothing.
func (c *Checkpointer) Run(ctx context.Context) error {
	log := logging.WithComponent("checkpoint")
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final checkpoint with a fresh context; ctx is already done.
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := c.Save(flushCtx); err != nil {
				log.Error().Err(err).Msg("final state checkpoint failed")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := c.Save(ctx); err != nil {
				// Degrades to memory-only; counting restarts from zero on
				// a crash, which is tolerated.
				log.Warn().Err(err).Msg("state checkpoint failed")
			}
		}
	}
}

// Save persists the current state snapshot.
func (c *Checkpointer) Save(ctx context.Context) error {
	if err := c.checkpoint.SaveState(ctx, c.store.Snapshot()); err != nil {
		metrics.StateCheckpointFailures.Inc()
		return err
	}
	metrics.StateCheckpoints.Inc()
	return nil
}
