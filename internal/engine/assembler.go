package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gridwatch/alertflow/internal/models"
	"github.com/gridwatch/alertflow/internal/snapshot"
	"github.com/gridwatch/alertflow/internal/template"
)

// Assembler renders alert titles and messages and attaches matched receivers
// to produce the final alert event. It is pure given its inputs except for
// event id and trigger time generation.
type Assembler struct {
	snapshots SnapshotProvider
}

// NewAssembler creates an assembler reading templates and receivers from the
// given provider.
func NewAssembler(snapshots SnapshotProvider) *Assembler {
	return &Assembler{snapshots: snapshots}
}

// Assemble builds the alert event for a qualifying violation.
func (a *Assembler) Assemble(rule *models.AlertRule, record *models.ProcessedRecord, value float64) *models.AlertEvent {
	return a.assembleAt(a.snapshots.Current(), rule, record, value, time.Now())
}

func (a *Assembler) assembleAt(snap *snapshot.Snapshot, rule *models.AlertRule, record *models.ProcessedRecord, value float64, now time.Time) *models.AlertEvent {
	vars := template.NewVariables(rule, record, value)

	title, message := a.render(snap, rule, record, value, vars)

	return &models.AlertEvent{
		EventID:      uuid.NewString(),
		RuleID:       rule.ID,
		RuleName:     rule.Name,
		DeviceID:     record.DeviceID,
		DeviceIP:     record.DeviceIP,
		MetricName:   rule.MetricName,
		CurrentValue: value,
		Threshold:    rule.Threshold,
		Level:        rule.Level,
		Title:        title,
		Message:      message,
		TriggeredAt:  now,
		Status:       models.StatusTriggered,
		Receivers:    snap.ReceiversForLevel(rule.Level),
	}
}

// render produces the title and message, falling back to a fixed format when
// the rule's template is absent or disabled.
func (a *Assembler) render(snap *snapshot.Snapshot, rule *models.AlertRule, record *models.ProcessedRecord, value float64, vars template.Variables) (string, string) {
	tpl := snap.TemplateByID(rule.TemplateID)
	if tpl == nil {
		title := fmt.Sprintf("Alert: %s", rule.Name)
		message := fmt.Sprintf("Device %s metric %s = %.2f %s threshold %.2f",
			record.DeviceID, rule.MetricName, value, rule.Operator, rule.Threshold)
		return title, message
	}
	return template.Render(tpl.TitleTemplate, vars), template.Render(tpl.MessageTemplate, vars)
}
