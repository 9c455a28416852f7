package template

import (
	"fmt"
	"time"

	"github.com/gridwatch/alertflow/internal/models"
)

// Variables is the closed set of values available to alert templates.
// A closed struct instead of an open map keeps the supported placeholder
// names enumerable and checked at the call site.
type Variables struct {
	DeviceID   string
	DeviceIP   string
	MetricName string
	Value      string
	Threshold  string
	Level      string
	Timestamp  string
}

// NewVariables builds the template variables for one alert: numeric values
// are formatted to two decimals and the timestamp to RFC 3339.
func NewVariables(rule *models.AlertRule, record *models.ProcessedRecord, value float64) Variables {
	ts := record.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return Variables{
		DeviceID:   record.DeviceID,
		DeviceIP:   record.DeviceIP,
		MetricName: rule.MetricName,
		Value:      fmt.Sprintf("%.2f", value),
		Threshold:  fmt.Sprintf("%.2f", rule.Threshold),
		Level:      string(rule.Level),
		Timestamp:  ts.UTC().Format(time.RFC3339),
	}
}

// lookup exposes the variables under their placeholder names. Names not in
// this table render as empty strings.
func (v Variables) lookup() map[string]string {
	return map[string]string{
		"deviceId":   v.DeviceID,
		"deviceIp":   v.DeviceIP,
		"metricName": v.MetricName,
		"value":      v.Value,
		"threshold":  v.Threshold,
		"level":      v.Level,
		"timestamp":  v.Timestamp,
	}
}
