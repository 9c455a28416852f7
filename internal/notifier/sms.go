package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gridwatch/alertflow/internal/models"
)

// SMSConfig holds the SMS gateway configuration. Messages are posted to an
// HTTP gateway; the receiver's contact is the destination phone number.
type SMSConfig struct {
	GatewayURL string // gateway endpoint
	APIKey     string // bearer token for the gateway (optional)
}

// Validate validates the SMS configuration.
func (c *SMSConfig) Validate() error {
	if c.GatewayURL == "" {
		return fmt.Errorf("gateway URL is required")
	}
	return nil
}

// SMSNotifier sends alerts through an HTTP SMS gateway.
type SMSNotifier struct {
	config     SMSConfig
	httpClient *http.Client
}

// NewSMSNotifier creates an SMS notifier.
func NewSMSNotifier(config SMSConfig) (*SMSNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sms config: %w", err)
	}
	return &SMSNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// Type returns SMS.
func (s *SMSNotifier) Type() models.ReceiverType {
	return models.ReceiverSMS
}

// smsPayload is the gateway request body.
type smsPayload struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// Send posts a short text form of the alert to the gateway.
func (s *SMSNotifier) Send(ctx context.Context, event *models.AlertEvent, receiver *models.AlertReceiver) error {
	payload := smsPayload{
		To:      receiver.Contact,
		Message: fmt.Sprintf("[%s] %s: %s", event.Level, event.Title, event.Message),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to sms gateway: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// Close is a no-op for the SMS notifier.
func (s *SMSNotifier) Close() error {
	return nil
}
