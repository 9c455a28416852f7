package models

import (
	"strings"
	"time"
)

// ReceiverType identifies the delivery channel for a receiver.
type ReceiverType string

const (
	ReceiverEmail   ReceiverType = "EMAIL"
	ReceiverSMS     ReceiverType = "SMS"
	ReceiverWebhook ReceiverType = "WEBHOOK"
)

// AlertReceiver is a notification destination with an optional severity filter.
type AlertReceiver struct {
	ID   int64        `json:"id" yaml:"id"`
	Name string       `json:"name" yaml:"name"`
	Type ReceiverType `json:"type" yaml:"type"`

	// Contact is the address for the channel: an email address, a phone
	// number, or a webhook URL.
	Contact string `json:"contact" yaml:"contact"`

	// LevelFilter is a comma-separated list of severities this receiver
	// accepts (e.g. "ERROR,CRITICAL"). Empty accepts every level.
	LevelFilter string `json:"level_filter,omitempty" yaml:"level_filter,omitempty"`

	Enabled bool `json:"enabled" yaml:"enabled"`

	CreatedAt time.Time `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// MatchesLevel reports whether this receiver accepts alerts of the given
// severity. The filter match is case-insensitive; an empty filter matches all.
func (r *AlertReceiver) MatchesLevel(level Severity) bool {
	filter := strings.TrimSpace(r.LevelFilter)
	if filter == "" {
		return true
	}
	for _, part := range strings.Split(filter, ",") {
		if strings.EqualFold(strings.TrimSpace(part), string(level)) {
			return true
		}
	}
	return false
}
