package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/gridwatch/alertflow/internal/models"
)

// EmailConfig holds SMTP configuration. The recipient address comes from the
// receiver's contact, not from static configuration.
type EmailConfig struct {
	Host     string // SMTP server host
	Port     int    // SMTP server port (465 for implicit TLS, 587 for STARTTLS)
	Username string // SMTP username (optional)
	Password string // SMTP password (optional)
	From     string // From address
}

// Validate validates the email configuration.
func (c *EmailConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("SMTP port is required")
	}
	if c.From == "" {
		return fmt.Errorf("from address is required")
	}
	return nil
}

// EmailNotifier sends alerts via SMTP.
type EmailNotifier struct {
	config EmailConfig
}

// NewEmailNotifier creates an email notifier.
func NewEmailNotifier(config EmailConfig) (*EmailNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid email config: %w", err)
	}
	return &EmailNotifier{config: config}, nil
}

// Type returns EMAIL.
func (e *EmailNotifier) Type() models.ReceiverType {
	return models.ReceiverEmail
}

// Send delivers the alert to the receiver's email address.
func (e *EmailNotifier) Send(ctx context.Context, event *models.AlertEvent, receiver *models.AlertReceiver) error {
	msg := buildEmailMessage(e.config.From, receiver.Contact, event)
	return e.sendMail(ctx, receiver.Contact, msg)
}

// Close is a no-op for the email notifier.
func (e *EmailNotifier) Close() error {
	return nil
}

// buildEmailMessage builds a plain-text email for an alert event.
func buildEmailMessage(from, to string, event *models.AlertEvent) []byte {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: [%s] %s\r\n", event.Level, event.Title))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(event.Message)
	msg.WriteString("\r\n\r\n")
	msg.WriteString(fmt.Sprintf("Device:    %s\r\n", event.DeviceID))
	msg.WriteString(fmt.Sprintf("Metric:    %s\r\n", event.MetricName))
	msg.WriteString(fmt.Sprintf("Value:     %.2f (threshold %.2f)\r\n", event.CurrentValue, event.Threshold))
	msg.WriteString(fmt.Sprintf("Triggered: %s\r\n", event.TriggeredAt.UTC().Format("2006-01-02 15:04:05 MST")))
	msg.WriteString(fmt.Sprintf("Event:     %s\r\n", event.EventID))

	return []byte(msg.String())
}

// sendMail delivers the message over SMTP, using implicit TLS on port 465
// and STARTTLS otherwise.
func (e *EmailNotifier) sendMail(ctx context.Context, to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	tlsConfig := &tls.Config{ServerName: e.config.Host}

	var (
		client *smtp.Client
		err    error
	)
	if e.config.Port == 465 {
		client, err = e.connectImplicitTLS(addr, tlsConfig)
	} else {
		client, err = e.connectSTARTTLS(ctx, addr, tlsConfig)
	}
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer client.Close()

	if e.config.Username != "" && e.config.Password != "" {
		auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication: %w", err)
		}
	}

	if err := client.Mail(e.config.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("add recipient %s: %w", to, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	return client.Quit()
}

func (e *EmailNotifier) connectImplicitTLS(addr string, tlsConfig *tls.Config) (*smtp.Client, error) {
	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return nil, err
	}
	return smtp.NewClient(conn, e.config.Host)
}

func (e *EmailNotifier) connectSTARTTLS(ctx context.Context, addr string, tlsConfig *tls.Config) (*smtp.Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	client, err := smtp.NewClient(conn, e.config.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, err
		}
	}
	return client, nil
}
