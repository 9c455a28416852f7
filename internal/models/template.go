package models

import "time"

// AlertTemplate holds title and message templates for rendered alerts.
// Templates reference variables with ${name} placeholders.
type AlertTemplate struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`

	// TitleTemplate supports ${deviceId}, ${metricName}, ${value},
	// ${threshold}, ${level}.
	TitleTemplate string `json:"title_template" yaml:"title_template"`

	// MessageTemplate additionally supports ${deviceIp} and ${timestamp}.
	MessageTemplate string `json:"message_template" yaml:"message_template"`

	Enabled bool `json:"enabled" yaml:"enabled"`

	CreatedAt time.Time `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"-"`
}
