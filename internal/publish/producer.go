// Package publish writes alert events to the alerts Kafka topic.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/gridwatch/alertflow/internal/logging"
	"github.com/gridwatch/alertflow/internal/metrics"
	"github.com/gridwatch/alertflow/internal/models"
)

// ErrProducerClosed is returned when publishing after Close.
var ErrProducerClosed = errors.New("producer is closed")

// writer is the subset of kafka.Writer the producer uses.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds producer settings.
type Config struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	MaxRetries   int
}

// Validate checks the producer configuration and applies defaults.
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("at least one broker is required")
	}
	if c.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	return nil
}

// Producer publishes alert events keyed by device id, so all alerts for one
// device land on one partition in emission order.
type Producer struct {
	cfg    Config
	writer writer
	log    zerolog.Logger
	closed chan struct{}
}

// NewProducer creates a Kafka producer for alert events.
func NewProducer(cfg Config) (*Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid producer config: %w", err)
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // partition by key
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return newProducer(cfg, w), nil
}

func newProducer(cfg Config, w writer) *Producer {
	return &Producer{
		cfg:    cfg,
		writer: w,
		log:    logging.WithComponent("publish"),
		closed: make(chan struct{}),
	}
}

// Publish writes a batch of alert events, retrying transient failures with
// linear backoff.
func (p *Producer) Publish(ctx context.Context, events []*models.AlertEvent) error {
	select {
	case <-p.closed:
		return ErrProducerClosed
	default:
	}
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		value, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", ev.EventID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ev.DeviceID),
			Value: value,
		})
	}

	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
		if lastErr = p.writer.WriteMessages(ctx, msgs...); lastErr == nil {
			metrics.EventsPublished.Add(float64(len(msgs)))
			metrics.PublishBatchSize.Observe(float64(len(msgs)))
			return nil
		}
		p.log.Warn().Err(lastErr).Int("attempt", attempt+1).Msg("publish attempt failed")
	}

	metrics.PublishFailures.Inc()
	return fmt.Errorf("publish %d events after %d attempts: %w",
		len(msgs), p.cfg.MaxRetries, lastErr)
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	select {
	case <-p.closed:
		return nil
	default:
		close(p.closed)
	}
	return p.writer.Close()
}
