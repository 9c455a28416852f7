package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gridwatch/alertflow/internal/models"
)

const sampleConfig = `
rules:
  - id: 1
    name: high-temperature
    metric_name: temperature
    operator: ">"
    threshold: 80
    level: ERROR
    device_filter: "PLC-.*"
    consecutive_count: 3
    cooldown: 5m
    template_id: 1
  - id: 2
    name: disabled-rule
    metric_name: humidity
    operator: ">="
    threshold: 90
    level: WARNING
    enabled: false

templates:
  - id: 1
    name: default
    title_template: "[${level}] ${metricName} on ${deviceId}"
    message_template: "${deviceId}: ${value} > ${threshold}"
    enabled: true

receivers:
  - id: 1
    name: oncall
    type: EMAIL
    contact: oncall@example.com
    level_filter: "ERROR,CRITICAL"
    enabled: true
`

func TestParseConfig(t *testing.T) {
	rules, templates, receivers, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}

	if len(rules) != 2 {
		t.Fatalf("parsed %d rules, want 2", len(rules))
	}
	r := rules[0]
	if r.Cooldown != 5*time.Minute {
		t.Errorf("Cooldown = %v, want 5m", r.Cooldown)
	}
	if r.Level != models.SeverityError {
		t.Errorf("Level = %v", r.Level)
	}
	if !r.Enabled {
		t.Error("rule without enabled key should default to enabled")
	}
	if rules[1].Enabled {
		t.Error("explicitly disabled rule parsed as enabled")
	}
	if rules[1].ConsecutiveCount != 1 {
		t.Errorf("ConsecutiveCount default = %d, want 1", rules[1].ConsecutiveCount)
	}

	if len(templates) != 1 || templates[0].ID != 1 {
		t.Errorf("templates = %v", templates)
	}
	if len(receivers) != 1 || receivers[0].Type != models.ReceiverEmail {
		t.Errorf("receivers = %v", receivers)
	}
}

func TestParseConfigEnabledDefaults(t *testing.T) {
	data := `
templates:
  - id: 1
    name: t
    title_template: "x"
receivers:
  - id: 1
    name: r
    type: WEBHOOK
    contact: https://example.com/hook
  - id: 2
    name: off
    type: EMAIL
    contact: a@example.com
    enabled: false
`
	_, templates, receivers, err := ParseConfig([]byte(data))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if !templates[0].Enabled {
		t.Error("template without enabled key should default to enabled")
	}
	if !receivers[0].Enabled || receivers[1].Enabled {
		t.Errorf("receiver enabled defaults wrong: %v, %v", receivers[0].Enabled, receivers[1].Enabled)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "rules: ["},
		{"bad cooldown", "rules:\n  - name: r\n    cooldown: soon"},
		{"template without id", "templates:\n  - name: t\n    enabled: true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, _, err := ParseConfig([]byte(tt.data)); err == nil {
				t.Error("ParseConfig() = nil error")
			}
		})
	}
}

func TestFileSourceLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatal(err)
	}

	rules, _, _, err := NewFileSource(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(rules) != 2 {
		t.Errorf("loaded %d rules, want 2", len(rules))
	}

	if _, _, _, err := NewFileSource(filepath.Join(t.TempDir(), "missing.yaml")).Load(context.Background()); err == nil {
		t.Error("Load() on missing file = nil error")
	}
}
