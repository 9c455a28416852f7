package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/gridwatch/alertflow/internal/models"
)

// fakeWriter records writes and can fail a number of leading attempts.
type fakeWriter struct {
	written  []kafka.Message
	failures int
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("broker unavailable")
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testProducer(w writer) *Producer {
	cfg := Config{Brokers: []string{"localhost:9092"}, Topic: "alerts"}
	cfg.Validate()
	return newProducer(cfg, w)
}

func TestPublishWritesFlatEventJSON(t *testing.T) {
	w := &fakeWriter{}
	p := testProducer(w)

	event := &models.AlertEvent{
		EventID:      "ev-1",
		RuleID:       1,
		RuleName:     "high-temperature",
		DeviceID:     "PLC-001",
		MetricName:   "temperature",
		CurrentValue: 95,
		Threshold:    80,
		Level:        models.SeverityError,
		Status:       models.StatusTriggered,
		Receivers:    []*models.AlertReceiver{{ID: 1, Contact: "x@example.com"}},
	}

	if err := p.Publish(context.Background(), []*models.AlertEvent{event}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(w.written) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(w.written))
	}

	msg := w.written[0]
	if string(msg.Key) != "PLC-001" {
		t.Errorf("message key = %q, want device id", msg.Key)
	}

	var wire map[string]any
	if err := json.Unmarshal(msg.Value, &wire); err != nil {
		t.Fatalf("unmarshal wire record: %v", err)
	}
	if wire["eventId"] != "ev-1" || wire["status"] != "TRIGGERED" || wire["level"] != "ERROR" {
		t.Errorf("wire record = %v", wire)
	}
	// Receivers travel in-process only, not on the wire.
	if _, ok := wire["receivers"]; ok {
		t.Error("wire record contains receivers")
	}
}

func TestPublishRetriesTransientFailures(t *testing.T) {
	w := &fakeWriter{failures: 2}
	p := testProducer(w)

	err := p.Publish(context.Background(), []*models.AlertEvent{{EventID: "e", DeviceID: "d"}})
	if err != nil {
		t.Fatalf("Publish() error = %v, want success after retries", err)
	}
	if len(w.written) != 1 {
		t.Errorf("wrote %d messages, want 1", len(w.written))
	}
}

func TestPublishGivesUpAfterMaxRetries(t *testing.T) {
	w := &fakeWriter{failures: 10}
	p := testProducer(w)

	if err := p.Publish(context.Background(), []*models.AlertEvent{{EventID: "e", DeviceID: "d"}}); err == nil {
		t.Fatal("Publish() = nil error, want failure")
	}
}

func TestPublishAfterClose(t *testing.T) {
	w := &fakeWriter{}
	p := testProducer(w)

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !w.closed {
		t.Error("Close() did not close the writer")
	}
	if err := p.Publish(context.Background(), []*models.AlertEvent{{EventID: "e"}}); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("Publish() after close = %v, want ErrProducerClosed", err)
	}
	// Double close is a no-op.
	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestPublishEmptyBatch(t *testing.T) {
	w := &fakeWriter{}
	p := testProducer(w)
	if err := p.Publish(context.Background(), nil); err != nil {
		t.Errorf("Publish(nil) error = %v", err)
	}
	if len(w.written) != 0 {
		t.Error("empty batch produced writes")
	}
}
