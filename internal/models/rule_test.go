package models

import (
	"testing"
	"time"
)

func validRule() AlertRule {
	return AlertRule{
		ID:               1,
		Name:             "high-temperature",
		MetricName:       "temperature",
		Operator:         OpGreater,
		Threshold:        80,
		Level:            SeverityError,
		ConsecutiveCount: 3,
		Cooldown:         5 * time.Minute,
		Enabled:          true,
	}
}

func TestRuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AlertRule)
		wantErr bool
	}{
		{name: "valid", mutate: func(r *AlertRule) {}},
		{name: "empty name", mutate: func(r *AlertRule) { r.Name = "" }, wantErr: true},
		{name: "empty metric", mutate: func(r *AlertRule) { r.MetricName = "" }, wantErr: true},
		{name: "unknown operator", mutate: func(r *AlertRule) { r.Operator = "~=" }, wantErr: true},
		{name: "zero consecutive count", mutate: func(r *AlertRule) { r.ConsecutiveCount = 0 }, wantErr: true},
		{name: "negative cooldown", mutate: func(r *AlertRule) { r.Cooldown = -time.Second }, wantErr: true},
		{name: "bad device filter", mutate: func(r *AlertRule) { r.DeviceFilter = "[invalid(" }, wantErr: true},
		{name: "device filter", mutate: func(r *AlertRule) { r.DeviceFilter = "PLC-.*" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validRule()
			tt.mutate(&rule)
			err := rule.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEvaluateCondition(t *testing.T) {
	tests := []struct {
		name      string
		operator  string
		threshold float64
		value     float64
		want      bool
	}{
		{"greater true", OpGreater, 5.0, 10.0, true},
		{"greater false", OpGreater, 5.0, 5.0, false},
		{"less true", OpLess, 5.0, 4.0, true},
		{"greater equal boundary", OpGreaterEqual, 5.0, 5.0, true},
		{"less equal boundary", OpLessEqual, 5.0, 5.0, true},
		{"equal within tolerance", OpEqual, 5.00005, 5.0, true},
		{"equal outside tolerance", OpEqual, 5.001, 5.0, false},
		{"not equal within tolerance", OpNotEqual, 5.00005, 5.0, false},
		{"not equal outside tolerance", OpNotEqual, 5.001, 5.0, true},
		{"unknown operator", "~=", 5.0, 10.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := AlertRule{Operator: tt.operator, Threshold: tt.threshold}
			if got := rule.EvaluateCondition(tt.value); got != tt.want {
				t.Errorf("EvaluateCondition(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestMatchesDevice(t *testing.T) {
	tests := []struct {
		name     string
		filter   string
		deviceID string
		want     bool
	}{
		{"empty filter matches all", "", "anything", true},
		{"whitespace filter matches all", "  ", "anything", true},
		{"prefix pattern match", "PLC-.*", "PLC-001", true},
		{"prefix pattern reject", "PLC-.*", "SENSOR-001", false},
		{"full match required", "PLC-0", "PLC-001", false},
		{"exact match", "PLC-001", "PLC-001", true},
		{"invalid regex rejects", "[invalid(", "PLC-001", false},
		// Alternation where the first branch matches a prefix of the id:
		// leftmost-first matching stops at "PLC", but the filter as a whole
		// matches the full id and must accept it.
		{"alternation with short first branch", "PLC|PLC-.*", "PLC-001", true},
		{"alternation exact branch", "PLC|PLC-.*", "PLC", true},
		{"alternation reject", "PLC|PLC-.*", "SENSOR-001", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := AlertRule{DeviceFilter: tt.filter}
			if got := rule.MatchesDevice(tt.deviceID); got != tt.want {
				t.Errorf("MatchesDevice(%q) with filter %q = %v, want %v",
					tt.deviceID, tt.filter, got, tt.want)
			}

			// Same outcome through the compiled filter a validated rule uses.
			validated := AlertRule{
				Name:             "f",
				MetricName:       "m",
				Operator:         OpGreater,
				ConsecutiveCount: 1,
			}
			validated.DeviceFilter = tt.filter
			if err := validated.Validate(); err != nil {
				return
			}
			if got := validated.MatchesDevice(tt.deviceID); got != tt.want {
				t.Errorf("validated MatchesDevice(%q) with filter %q = %v, want %v",
					tt.deviceID, tt.filter, got, tt.want)
			}
		})
	}
}

func TestReceiverMatchesLevel(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		level  Severity
		want   bool
	}{
		{"empty filter matches all", "", SeverityInfo, true},
		{"listed level", "ERROR,CRITICAL", SeverityCritical, true},
		{"case insensitive", "error,critical", SeverityCritical, true},
		{"unlisted level", "ERROR,CRITICAL", SeverityInfo, false},
		{"spaces around entries", " ERROR , CRITICAL ", SeverityError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := AlertReceiver{LevelFilter: tt.filter}
			if got := r.MatchesLevel(tt.level); got != tt.want {
				t.Errorf("MatchesLevel(%q) with filter %q = %v, want %v",
					tt.level, tt.filter, got, tt.want)
			}
		})
	}
}

func TestFieldFloat(t *testing.T) {
	rec := ProcessedRecord{
		DeviceID: "PLC-001",
		Fields: map[string]any{
			"temperature": 85.5,
			"count":       int64(3),
			"stringy":     "42.5",
			"status":      "running",
			"flag":        true,
			"nothing":     nil,
		},
	}

	tests := []struct {
		name  string
		field string
		want  float64
		ok    bool
	}{
		{"float field", "temperature", 85.5, true},
		{"int field", "count", 3, true},
		{"numeric string", "stringy", 42.5, true},
		{"non-numeric string", "status", 0, false},
		{"bool field", "flag", 0, false},
		{"nil value", "nothing", 0, false},
		{"absent field", "missing", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := rec.FieldFloat(tt.field)
			if ok != tt.ok || got != tt.want {
				t.Errorf("FieldFloat(%q) = (%v, %v), want (%v, %v)",
					tt.field, got, ok, tt.want, tt.ok)
			}
		})
	}
}
