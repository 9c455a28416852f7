// Package state tracks per-(rule, device) evaluation state for the alert
// engine: consecutive violation counts and last-alert timestamps.
package state

import "fmt"

// Key identifies one independent evaluation state machine instance.
type Key struct {
	RuleID   int64
	DeviceID string
}

// String renders the key in its stable persisted form.
func (k Key) String() string {
	return fmt.Sprintf("%d|%s", k.RuleID, k.DeviceID)
}

// RuleState is the durable evaluation state for one key.
type RuleState struct {
	// ViolationCount is the current run of uninterrupted violations.
	ViolationCount int `json:"violation_count"`

	// LastAlertAt is the unix-millisecond timestamp of the last emitted
	// alert for this key. Zero means no alert has ever been emitted.
	LastAlertAt int64 `json:"last_alert_at,omitempty"`
}

// Store is the narrow keyed-state abstraction the engine evaluates against.
// The engine is the only writer; implementations need to be safe for
// concurrent access across different keys.
type Store interface {
	// Get returns the state for a key, or a zero state if none exists yet.
	Get(key Key) RuleState

	// Put stores the state for a key.
	Put(key Key, st RuleState)

	// Snapshot returns a copy of all non-zero state for checkpointing.
	Snapshot() map[Key]RuleState

	// Restore replaces the store contents with a checkpoint.
	Restore(states map[Key]RuleState)
}
