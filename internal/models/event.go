package models

import "time"

// Alert event status values. Emission always uses StatusTriggered; later
// transitions (SENT, FAILED) belong to downstream delivery.
const (
	StatusTriggered = "TRIGGERED"
)

// AlertEvent is a fully rendered alert produced by the evaluation engine.
// The flat JSON form is the wire record published to the alerts topic; the
// resolved receivers travel with the event for fan-out but are excluded from
// the persisted record.
type AlertEvent struct {
	EventID      string    `json:"eventId"`
	RuleID       int64     `json:"ruleId"`
	RuleName     string    `json:"ruleName"`
	DeviceID     string    `json:"deviceId"`
	DeviceIP     string    `json:"deviceIp,omitempty"`
	MetricName   string    `json:"metricName"`
	CurrentValue float64   `json:"currentValue"`
	Threshold    float64   `json:"threshold"`
	Level        Severity  `json:"level"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	TriggeredAt  time.Time `json:"triggeredAt"`
	Status       string    `json:"status"`

	Receivers []*AlertReceiver `json:"-"`
}
