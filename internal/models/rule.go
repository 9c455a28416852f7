// Package models contains the core data structures for AlertFlow.
package models

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// Severity represents alert severity level.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// ParseSeverity converts a string to Severity. Unknown values map to WARNING.
func ParseSeverity(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO":
		return SeverityInfo
	case "WARNING":
		return SeverityWarning
	case "ERROR":
		return SeverityError
	case "CRITICAL":
		return SeverityCritical
	default:
		return SeverityWarning
	}
}

// Condition operators supported by alert rules.
const (
	OpGreater      = ">"
	OpLess         = "<"
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
	OpEqual        = "=="
	OpNotEqual     = "!="
)

// conditionTolerance is the tolerance used for == and != comparisons on
// float64 metric values.
const conditionTolerance = 1e-4

// AlertRule represents a threshold rule evaluated against device metrics.
type AlertRule struct {
	ID int64 `json:"id" yaml:"id"`

	// Name is a human-readable rule name, included in emitted events.
	Name string `json:"name" yaml:"name"`

	// MetricName is the processed-record field to monitor.
	MetricName string `json:"metric_name" yaml:"metric_name"`

	// Operator is one of >, <, >=, <=, ==, !=.
	Operator string `json:"operator" yaml:"operator"`

	// Threshold is the value the metric is compared against.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// Level is the severity assigned to alerts from this rule.
	Level Severity `json:"level" yaml:"level"`

	// DeviceFilter is a regex a device id must fully match for the rule to
	// apply. Empty matches all devices.
	DeviceFilter string `json:"device_filter,omitempty" yaml:"device_filter,omitempty"`

	// ConsecutiveCount is the number of uninterrupted violations required
	// before an alert fires. Minimum 1.
	ConsecutiveCount int `json:"consecutive_count" yaml:"consecutive_count"`

	// Cooldown is the minimum time between two alerts for the same
	// rule + device pair.
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`

	// TemplateID references the template used to render the alert.
	// Zero means no template; the assembler falls back to a default format.
	TemplateID int64 `json:"template_id,omitempty" yaml:"template_id,omitempty"`

	Enabled bool `json:"enabled" yaml:"enabled"`

	CreatedAt time.Time `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"-"`

	// compiledFilter is the compiled device filter (internal use).
	compiledFilter *regexp.Regexp
}

// Validate validates the rule and compiles its device filter.
func (r *AlertRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if r.MetricName == "" {
		return fmt.Errorf("metric name is required for rule %q", r.Name)
	}
	switch r.Operator {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpEqual, OpNotEqual:
	default:
		return fmt.Errorf("invalid operator %q for rule %q", r.Operator, r.Name)
	}
	if r.ConsecutiveCount < 1 {
		return fmt.Errorf("consecutive count must be >= 1 for rule %q", r.Name)
	}
	if r.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative for rule %q", r.Name)
	}
	if r.DeviceFilter != "" {
		re, err := compileDeviceFilter(r.DeviceFilter)
		if err != nil {
			return fmt.Errorf("invalid device filter for rule %q: %w", r.Name, err)
		}
		r.compiledFilter = re
	}
	return nil
}

// compileDeviceFilter compiles a device filter anchored at both ends, so the
// filter must match the whole id. Anchoring the pattern itself matters:
// leftmost-first matching would otherwise stop at a short alternative (for
// "PLC|PLC-.*" the match against "PLC-001" is just "PLC") and a span check
// against the id length would wrongly reject it.
func compileDeviceFilter(filter string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + filter + ")$")
}

// MatchesDevice reports whether the rule applies to the given device id.
// An empty filter matches every device; the filter must match the whole id.
func (r *AlertRule) MatchesDevice(deviceID string) bool {
	if strings.TrimSpace(r.DeviceFilter) == "" {
		return true
	}
	re := r.compiledFilter
	if re == nil {
		// Unvalidated rule: compile locally without caching, since the rule
		// may be shared across evaluation goroutines.
		var err error
		re, err = compileDeviceFilter(r.DeviceFilter)
		if err != nil {
			return false
		}
	}
	return re.MatchString(deviceID)
}

// EvaluateCondition applies the rule's operator to (value, threshold).
// Equality and inequality use a 1e-4 tolerance. An unknown operator
// evaluates to false rather than failing.
func (r *AlertRule) EvaluateCondition(value float64) bool {
	switch r.Operator {
	case OpGreater:
		return value > r.Threshold
	case OpLess:
		return value < r.Threshold
	case OpGreaterEqual:
		return value >= r.Threshold
	case OpLessEqual:
		return value <= r.Threshold
	case OpEqual:
		return math.Abs(value-r.Threshold) < conditionTolerance
	case OpNotEqual:
		return math.Abs(value-r.Threshold) >= conditionTolerance
	default:
		return false
	}
}
