package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gridwatch/alertflow/internal/models"
)

// fakeNotifier records sends for one channel type.
type fakeNotifier struct {
	channel models.ReceiverType
	sent    []*models.AlertReceiver
	err     error
}

func (f *fakeNotifier) Type() models.ReceiverType { return f.channel }

func (f *fakeNotifier) Send(_ context.Context, _ *models.AlertEvent, receiver *models.AlertReceiver) error {
	f.sent = append(f.sent, receiver)
	return f.err
}

func (f *fakeNotifier) Close() error { return nil }

func testEvent(receivers ...*models.AlertReceiver) *models.AlertEvent {
	return &models.AlertEvent{
		EventID:      "ev-1",
		RuleName:     "high-temperature",
		DeviceID:     "PLC-001",
		MetricName:   "temperature",
		CurrentValue: 95,
		Threshold:    80,
		Level:        models.SeverityError,
		Title:        "Alert: high-temperature",
		Message:      "temperature above threshold",
		TriggeredAt:  time.Now(),
		Status:       models.StatusTriggered,
		Receivers:    receivers,
	}
}

func TestDispatchRoutesByReceiverType(t *testing.T) {
	email := &fakeNotifier{channel: models.ReceiverEmail}
	webhook := &fakeNotifier{channel: models.ReceiverWebhook}

	d := NewDispatcher(0, 0)
	d.Register(email)
	d.Register(webhook)

	event := testEvent(
		&models.AlertReceiver{ID: 1, Type: models.ReceiverEmail, Contact: "a@example.com"},
		&models.AlertReceiver{ID: 2, Type: models.ReceiverWebhook, Contact: "https://example.com/hook"},
		&models.AlertReceiver{ID: 3, Type: models.ReceiverSMS, Contact: "+15550100"}, // no SMS notifier
	)
	d.Dispatch(context.Background(), event)

	if len(email.sent) != 1 || email.sent[0].ID != 1 {
		t.Errorf("email notifier got %v", email.sent)
	}
	if len(webhook.sent) != 1 || webhook.sent[0].ID != 2 {
		t.Errorf("webhook notifier got %v", webhook.sent)
	}
}

func TestDispatchRateLimiting(t *testing.T) {
	email := &fakeNotifier{channel: models.ReceiverEmail}
	d := NewDispatcher(1, 2) // burst of 2
	d.Register(email)

	rcv := &models.AlertReceiver{ID: 1, Type: models.ReceiverEmail, Contact: "a@example.com"}
	for i := 0; i < 5; i++ {
		d.Dispatch(context.Background(), testEvent(rcv))
	}
	if len(email.sent) > 3 {
		t.Errorf("rate limiter allowed %d sends, want at most burst", len(email.sent))
	}
	if len(email.sent) == 0 {
		t.Error("rate limiter blocked every send")
	}
}

func TestWebhookNotifierSend(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier()
	rcv := &models.AlertReceiver{Type: models.ReceiverWebhook, Contact: srv.URL}
	if err := n.Send(context.Background(), testEvent(rcv), rcv); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got["eventId"] != "ev-1" || got["status"] != "TRIGGERED" {
		t.Errorf("posted payload = %v", got)
	}
}

func TestWebhookNotifierSendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier()
	rcv := &models.AlertReceiver{Type: models.ReceiverWebhook, Contact: srv.URL}
	if err := n.Send(context.Background(), testEvent(rcv), rcv); err == nil {
		t.Error("Send() = nil error on 502 response")
	}
}

func TestSMSNotifierSend(t *testing.T) {
	var payload smsPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n, err := NewSMSNotifier(SMSConfig{GatewayURL: srv.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("NewSMSNotifier() error = %v", err)
	}
	rcv := &models.AlertReceiver{Type: models.ReceiverSMS, Contact: "+15550100"}
	if err := n.Send(context.Background(), testEvent(rcv), rcv); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if payload.To != "+15550100" {
		t.Errorf("payload.To = %q", payload.To)
	}
	if !strings.Contains(payload.Message, "[ERROR]") {
		t.Errorf("payload.Message = %q", payload.Message)
	}
	if auth != "Bearer secret" {
		t.Errorf("Authorization = %q", auth)
	}
}

func TestEmailMessageFormat(t *testing.T) {
	event := testEvent()
	msg := string(buildEmailMessage("alerts@example.com", "oncall@example.com", event))

	for _, want := range []string{
		"From: alerts@example.com\r\n",
		"To: oncall@example.com\r\n",
		"Subject: [ERROR] Alert: high-temperature\r\n",
		"temperature above threshold",
		"Device:    PLC-001",
		"Value:     95.00 (threshold 80.00)",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestEmailConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EmailConfig
		wantErr bool
	}{
		{"valid", EmailConfig{Host: "smtp.example.com", Port: 587, From: "a@example.com"}, false},
		{"no host", EmailConfig{Port: 587, From: "a@example.com"}, true},
		{"no port", EmailConfig{Host: "h", From: "a@example.com"}, true},
		{"no from", EmailConfig{Host: "h", Port: 587}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
