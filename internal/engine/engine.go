// Package engine implements the stateful alert evaluation engine: a keyed
// stream processor that tracks consecutive threshold violations per
// (rule, device) pair and emits deduplicated alert events.
package engine

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/gridwatch/alertflow/internal/logging"
	"github.com/gridwatch/alertflow/internal/metrics"
	"github.com/gridwatch/alertflow/internal/models"
	"github.com/gridwatch/alertflow/internal/snapshot"
	"github.com/gridwatch/alertflow/internal/state"
)

// SnapshotProvider supplies the current configuration snapshot.
type SnapshotProvider interface {
	Current() *snapshot.Snapshot
}

// Engine evaluates processed records against the current rule snapshot.
//
// Concurrency model: per-key state transitions are sequential because the
// ingest layer delivers all records for one device to a single consumer loop
// in arrival order. Across devices, evaluation may run concurrently; the only
// shared state is the immutable snapshot and the keyed state store.
type Engine struct {
	snapshots SnapshotProvider
	store     state.Store
	assembler *Assembler
	log       zerolog.Logger

	stats EngineStats
}

// EngineStats tracks engine counters using atomics for lock-free reads.
type EngineStats struct {
	RecordsEvaluated atomic.Int64
	RuleErrors       atomic.Int64
	AlertsEmitted    atomic.Int64
	AlertsSuppressed atomic.Int64
}

// New creates an engine.
func New(snapshots SnapshotProvider, store state.Store) *Engine {
	return &Engine{
		snapshots: snapshots,
		store:     store,
		assembler: NewAssembler(snapshots),
		log:       logging.WithComponent("engine"),
	}
}

// Evaluate runs one record through every applicable rule and returns the
// emitted alert events, zero or more. It never blocks on I/O.
func (e *Engine) Evaluate(record *models.ProcessedRecord) []*models.AlertEvent {
	return e.EvaluateAt(record, time.Now())
}

// EvaluateAt evaluates a record at a specific time. Tests use it to drive
// cooldown transitions deterministically.
func (e *Engine) EvaluateAt(record *models.ProcessedRecord, now time.Time) []*models.AlertEvent {
	if record == nil || record.DeviceID == "" {
		return nil
	}

	snap := e.snapshots.Current()
	if snap == nil {
		return nil
	}

	e.stats.RecordsEvaluated.Add(1)
	metrics.RecordsEvaluated.Inc()

	var events []*models.AlertEvent
	for _, rule := range snap.Rules() {
		event := e.evaluateRule(snap, rule, record, now)
		if event != nil {
			events = append(events, event)
		}
	}
	return events
}

// evaluateRule advances one (rule, device) state machine for one record.
// A failure here is isolated: it is logged and the remaining rules for the
// record still run.
func (e *Engine) evaluateRule(snap *snapshot.Snapshot, rule *models.AlertRule, record *models.ProcessedRecord, now time.Time) (event *models.AlertEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.stats.RuleErrors.Add(1)
			metrics.RuleEvaluationErrors.Inc()
			e.log.Error().
				Int64("rule_id", rule.ID).
				Str("device_id", record.DeviceID).
				Interface("panic", r).
				Msg("rule evaluation panicked, skipping rule for this record")
			event = nil
		}
	}()

	if !rule.MatchesDevice(record.DeviceID) {
		return nil
	}

	value, ok := record.FieldFloat(rule.MetricName)
	if !ok {
		// Metric absent or non-numeric in this record.
		return nil
	}

	key := state.Key{RuleID: rule.ID, DeviceID: record.DeviceID}
	st := e.store.Get(key)

	if !rule.EvaluateCondition(value) {
		// Any non-violation clears the run at any stage.
		if st.ViolationCount != 0 {
			st.ViolationCount = 0
			e.store.Put(key, st)
		}
		return nil
	}

	st.ViolationCount++

	if st.ViolationCount < rule.ConsecutiveCount {
		// Counting phase.
		e.store.Put(key, st)
		return nil
	}

	nowMillis := now.UnixMilli()
	if st.LastAlertAt != 0 && nowMillis-st.LastAlertAt < rule.Cooldown.Milliseconds() {
		// Inside cooldown: suppress but keep the count so the rule stays
		// armed and re-alerts as soon as the cooldown expires.
		e.stats.AlertsSuppressed.Add(1)
		metrics.AlertsSuppressed.Inc()
		e.store.Put(key, st)
		e.log.Debug().
			Int64("rule_id", rule.ID).
			Str("device_id", record.DeviceID).
			Msg("alert suppressed by cooldown")
		return nil
	}

	event = e.assembler.assembleAt(snap, rule, record, value, now)

	// Emission and state commit happen together: stamp the alert time and
	// start a fresh run of consecutive violations.
	st.LastAlertAt = nowMillis
	st.ViolationCount = 0
	e.store.Put(key, st)

	e.stats.AlertsEmitted.Add(1)
	metrics.AlertsEmitted.WithLabelValues(string(rule.Level)).Inc()
	e.log.Info().
		Int64("rule_id", rule.ID).
		Str("rule", rule.Name).
		Str("device_id", record.DeviceID).
		Float64("value", value).
		Float64("threshold", rule.Threshold).
		Msg("alert triggered")

	return event
}

// StatsSnapshot is a point-in-time copy of engine counters.
type StatsSnapshot struct {
	RecordsEvaluated int64 `json:"records_evaluated"`
	RuleErrors       int64 `json:"rule_errors"`
	AlertsEmitted    int64 `json:"alerts_emitted"`
	AlertsSuppressed int64 `json:"alerts_suppressed"`
}

// Stats returns a snapshot of engine counters.
func (e *Engine) Stats() StatsSnapshot {
	return StatsSnapshot{
		RecordsEvaluated: e.stats.RecordsEvaluated.Load(),
		RuleErrors:       e.stats.RuleErrors.Load(),
		AlertsEmitted:    e.stats.AlertsEmitted.Load(),
		AlertsSuppressed: e.stats.AlertsSuppressed.Load(),
	}
}
