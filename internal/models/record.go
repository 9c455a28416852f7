package models

import (
	"strconv"
	"time"
)

// ProcessedRecord is one processed telemetry sample for a device, as consumed
// from the ingest topic. Fields maps metric names to values; values may be
// numbers, numeric strings, or opaque payloads that no rule can evaluate.
type ProcessedRecord struct {
	DeviceID  string         `json:"device_id"`
	DeviceIP  string         `json:"device_ip,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Quality   string         `json:"quality,omitempty"`
	Fields    map[string]any `json:"fields"`
}

// FieldFloat returns the named field coerced to float64. The second return
// is false when the field is absent or not numeric-coercible.
func (r *ProcessedRecord) FieldFloat(name string) (float64, bool) {
	v, ok := r.Fields[name]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		return 0, false
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
