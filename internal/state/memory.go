package state

import (
	"sync"

	"github.com/gridwatch/alertflow/internal/metrics"
)

// MemoryStore is the default in-memory Store. State is bounded by the finite
// device x rule cardinality and is never deleted; losing it on restart only
// restarts violation counting from zero.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[Key]RuleState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[Key]RuleState),
	}
}

// Get returns the state for a key, or a zero state if none exists yet.
func (s *MemoryStore) Get(key Key) RuleState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[key]
}

// Put stores the state for a key.
func (s *MemoryStore) Put(key Key, st RuleState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[key] = st
	metrics.StateKeys.Set(float64(len(s.states)))
}

// Snapshot returns a copy of all non-zero state.
func (s *MemoryStore) Snapshot() map[Key]RuleState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[Key]RuleState, len(s.states))
	for k, st := range s.states {
		if st.ViolationCount == 0 && st.LastAlertAt == 0 {
			continue
		}
		out[k] = st
	}
	return out
}

// Restore replaces the store contents with a checkpoint.
func (s *MemoryStore) Restore(states map[Key]RuleState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states = make(map[Key]RuleState, len(states))
	for k, st := range states {
		s.states[k] = st
	}
	metrics.StateKeys.Set(float64(len(s.states)))
}
