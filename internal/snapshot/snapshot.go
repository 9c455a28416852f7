// Package snapshot provides an atomically-swapped, read-only view of the
// current alert configuration (rules, templates, receivers).
package snapshot

import (
	"time"

	"github.com/gridwatch/alertflow/internal/models"
)

// Snapshot is an immutable view of the enabled alert configuration. It is
// never mutated after construction, so it is safe for unsynchronized
// concurrent reads.
type Snapshot struct {
	rules     []*models.AlertRule
	templates map[int64]*models.AlertTemplate
	receivers []*models.AlertReceiver
	loadedAt  time.Time
}

// New builds a snapshot from raw configuration collections. Disabled entries
// are filtered out. Rules are expected to be validated by the caller; the
// provider drops and logs invalid rules before building a snapshot.
func New(rules []*models.AlertRule, templates []*models.AlertTemplate, receivers []*models.AlertReceiver) *Snapshot {
	s := &Snapshot{
		templates: make(map[int64]*models.AlertTemplate, len(templates)),
		loadedAt:  time.Now(),
	}
	for _, r := range rules {
		if r != nil && r.Enabled {
			s.rules = append(s.rules, r)
		}
	}
	for _, tpl := range templates {
		if tpl != nil && tpl.Enabled {
			s.templates[tpl.ID] = tpl
		}
	}
	for _, rcv := range receivers {
		if rcv != nil && rcv.Enabled {
			s.receivers = append(s.receivers, rcv)
		}
	}
	return s
}

// Rules returns the enabled rules in their stable load order. Callers must
// not mutate the returned slice.
func (s *Snapshot) Rules() []*models.AlertRule {
	return s.rules
}

// TemplateByID returns the enabled template with the given id, or nil.
func (s *Snapshot) TemplateByID(id int64) *models.AlertTemplate {
	return s.templates[id]
}

// ReceiversForLevel returns the enabled receivers whose level filter accepts
// the given severity.
func (s *Snapshot) ReceiversForLevel(level models.Severity) []*models.AlertReceiver {
	var out []*models.AlertReceiver
	for _, r := range s.receivers {
		if r.MatchesLevel(level) {
			out = append(out, r)
		}
	}
	return out
}

// Receivers returns all enabled receivers.
func (s *Snapshot) Receivers() []*models.AlertReceiver {
	return s.receivers
}

// Templates returns all enabled templates.
func (s *Snapshot) Templates() []*models.AlertTemplate {
	out := make([]*models.AlertTemplate, 0, len(s.templates))
	for _, tpl := range s.templates {
		out = append(out, tpl)
	}
	return out
}

// LoadedAt returns when this snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}
