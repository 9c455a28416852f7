package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gridwatch/alertflow/internal/models"
	"github.com/gridwatch/alertflow/internal/state"
)

func testStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s := NewSQLiteStorage(filepath.Join(t.TempDir(), "alertflow.db"))
	if err := s.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := testStorage(t)
	if err := s.Migrate(); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestRuleRoundTrip(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	rule := &models.AlertRule{
		Name:             "high-temperature",
		MetricName:       "temperature",
		Operator:         models.OpGreater,
		Threshold:        80,
		Level:            models.SeverityError,
		DeviceFilter:     "PLC-.*",
		ConsecutiveCount: 3,
		Cooldown:         5 * time.Minute,
		TemplateID:       2,
		Enabled:          true,
	}
	if err := s.CreateRule(ctx, rule); err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}
	if rule.ID == 0 {
		t.Fatal("CreateRule did not assign an id")
	}

	rules, err := s.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules() error = %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("ListRules() len = %d, want 1", len(rules))
	}

	got := rules[0]
	if got.Name != rule.Name || got.MetricName != rule.MetricName ||
		got.Operator != rule.Operator || got.Threshold != rule.Threshold ||
		got.Level != rule.Level || got.DeviceFilter != rule.DeviceFilter ||
		got.ConsecutiveCount != rule.ConsecutiveCount ||
		got.Cooldown != rule.Cooldown || got.TemplateID != rule.TemplateID ||
		!got.Enabled {
		t.Errorf("round-tripped rule = %+v, want %+v", got, rule)
	}
}

func TestListEnabledRulesFiltersDisabled(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	enabled := &models.AlertRule{Name: "on", MetricName: "m", Operator: ">",
		ConsecutiveCount: 1, Level: models.SeverityInfo, Enabled: true}
	disabled := &models.AlertRule{Name: "off", MetricName: "m", Operator: ">",
		ConsecutiveCount: 1, Level: models.SeverityInfo, Enabled: false}

	for _, r := range []*models.AlertRule{enabled, disabled} {
		if err := s.CreateRule(ctx, r); err != nil {
			t.Fatalf("CreateRule(%s) error = %v", r.Name, err)
		}
	}

	rules, err := s.ListEnabledRules(ctx)
	if err != nil {
		t.Fatalf("ListEnabledRules() error = %v", err)
	}
	if len(rules) != 1 || rules[0].Name != "on" {
		t.Errorf("ListEnabledRules() = %v", rules)
	}
}

func TestUpdateAndDeleteRule(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	rule := &models.AlertRule{Name: "r", MetricName: "m", Operator: ">",
		ConsecutiveCount: 1, Level: models.SeverityInfo, Enabled: true}
	if err := s.CreateRule(ctx, rule); err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}

	rule.Threshold = 42
	if err := s.UpdateRule(ctx, rule); err != nil {
		t.Fatalf("UpdateRule() error = %v", err)
	}
	rules, _ := s.ListRules(ctx)
	if rules[0].Threshold != 42 {
		t.Errorf("threshold after update = %v", rules[0].Threshold)
	}

	if err := s.DeleteRule(ctx, rule.ID); err != nil {
		t.Fatalf("DeleteRule() error = %v", err)
	}
	if err := s.DeleteRule(ctx, rule.ID); err == nil {
		t.Error("deleting a missing rule did not error")
	}
}

func TestTemplateAndReceiverRoundTrip(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	tpl := &models.AlertTemplate{
		Name:            "default",
		TitleTemplate:   "[${level}] ${metricName}",
		MessageTemplate: "${deviceId}: ${value}",
		Enabled:         true,
	}
	if err := s.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("CreateTemplate() error = %v", err)
	}

	rcv := &models.AlertReceiver{
		Name:        "oncall",
		Type:        models.ReceiverEmail,
		Contact:     "oncall@example.com",
		LevelFilter: "ERROR,CRITICAL",
		Enabled:     true,
	}
	if err := s.CreateReceiver(ctx, rcv); err != nil {
		t.Fatalf("CreateReceiver() error = %v", err)
	}

	templates, err := s.ListEnabledTemplates(ctx)
	if err != nil || len(templates) != 1 {
		t.Fatalf("ListEnabledTemplates() = %v, %v", templates, err)
	}
	if templates[0].TitleTemplate != tpl.TitleTemplate {
		t.Errorf("TitleTemplate = %q", templates[0].TitleTemplate)
	}

	receivers, err := s.ListEnabledReceivers(ctx)
	if err != nil || len(receivers) != 1 {
		t.Fatalf("ListEnabledReceivers() = %v, %v", receivers, err)
	}
	if receivers[0].Type != models.ReceiverEmail || receivers[0].LevelFilter != "ERROR,CRITICAL" {
		t.Errorf("receiver = %+v", receivers[0])
	}
}

func TestConfigSourceLoad(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	if err := s.CreateRule(ctx, &models.AlertRule{Name: "r", MetricName: "m",
		Operator: ">", ConsecutiveCount: 1, Level: models.SeverityInfo, Enabled: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateReceiver(ctx, &models.AlertReceiver{Name: "n",
		Type: models.ReceiverWebhook, Contact: "https://example.com", Enabled: true}); err != nil {
		t.Fatal(err)
	}

	rules, templates, receivers, err := NewConfigSource(s).Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(rules) != 1 || len(templates) != 0 || len(receivers) != 1 {
		t.Errorf("Load() = %d rules, %d templates, %d receivers",
			len(rules), len(templates), len(receivers))
	}
}

func TestStateCheckpointRoundTrip(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	states := map[state.Key]state.RuleState{
		{RuleID: 1, DeviceID: "PLC-001"}: {ViolationCount: 2, LastAlertAt: 1700000000000},
		{RuleID: 2, DeviceID: "PLC-002"}: {ViolationCount: 0, LastAlertAt: 1700000100000},
	}
	if err := s.SaveState(ctx, states); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}

	got, err := s.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LoadState() len = %d, want 2", len(got))
	}
	if st := got[state.Key{RuleID: 1, DeviceID: "PLC-001"}]; st.ViolationCount != 2 || st.LastAlertAt != 1700000000000 {
		t.Errorf("state = %+v", st)
	}

	// A later checkpoint fully replaces the previous one.
	if err := s.SaveState(ctx, map[state.Key]state.RuleState{
		{RuleID: 3, DeviceID: "d"}: {ViolationCount: 1},
	}); err != nil {
		t.Fatalf("second SaveState() error = %v", err)
	}
	got, err = s.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("LoadState() after replace len = %d, want 1", len(got))
	}
}
