// Package ingest consumes processed telemetry records from Kafka and feeds
// them to the evaluation engine.
//
// Ordering per device is a precondition, not something this package
// enforces: producers key messages by device id, so a single partition and a
// single consumer loop see a given device's records in arrival order. Offsets
// are committed only after evaluation returns, giving at-least-once
// delivery; the engine's cooldown deduplication absorbs redelivery.
package ingest

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

// Evaluator is the engine-side contract the consumer drives.
type Evaluator interface {
	Evaluate(record *models.ProcessedRecord) []*models.AlertEvent
}

// EmitFunc receives the alert events produced for one record. An error stops
// the offset commit so the record is redelivered.
type EmitFunc func(ctx context.Context, events []*models.AlertEvent) error

// reader is the subset of kafka.Reader the consumer uses.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds consumer settings.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Validate checks the consumer configuration.
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("at least one broker is required")
	}
	if c.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if c.GroupID == "" {
		return fmt.Errorf("group id is required")
	}
	return nil
}

// fetchRetryDelay paces retries after fetch errors so a down broker does not
// turn the consume loop into a hot error loop.
const fetchRetryDelay = time.Second

// Consumer reads processed records and runs them through the engine.
type Consumer struct {
	reader     reader
	evaluator  Evaluator
	emit       EmitFunc
	retryDelay time.Duration
	log        zerolog.Logger
}

// NewConsumer creates a consumer for the given topic.
func NewConsumer(cfg Config, evaluator Evaluator, emit EmitFunc) (*Consumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid consumer config: %w", err)
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // synchronous commits
		StartOffset:    kafka.FirstOffset,
		MaxWait:        500 * time.Millisecond,
	})
	return newConsumer(r, evaluator, emit), nil
}

func newConsumer(r reader, evaluator Evaluator, emit EmitFunc) *Consumer {
	return &Consumer{
		reader:     r,
		evaluator:  evaluator,
		emit:       emit,
		retryDelay: fetchRetryDelay,
		log:        logging.WithComponent("ingest"),
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			c.log.Error().Err(err).Msg("fetch failed")
			metrics.IngestRecords.WithLabelValues("failed").Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
			continue
		}

		if err := c.handle(ctx, msg); err != nil {
			// Leave the offset uncommitted so the record is redelivered.
			c.log.Error().Err(err).
				Str("topic", msg.Topic).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("record handling failed, will be redelivered")
			metrics.IngestRecords.WithLabelValues("failed").Inc()
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			c.log.Error().Err(err).Msg("offset commit failed")
		}
	}
}

// handle decodes and evaluates one message. Malformed records are skipped
// (and committed by the caller) rather than blocking the stream.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	var record models.ProcessedRecord
	if err := json.Unmarshal(msg.Value, &record); err != nil {
		c.log.Warn().Err(err).
			Int64("offset", msg.Offset).
			Msg("skipping malformed record")
		metrics.IngestRecords.WithLabelValues("malformed").Inc()
		return nil
	}
	if record.DeviceID == "" {
		c.log.Warn().Int64("offset", msg.Offset).Msg("skipping record without device id")
		metrics.IngestRecords.WithLabelValues("malformed").Inc()
		return nil
	}

	events := c.evaluator.Evaluate(&record)
	metrics.IngestRecords.WithLabelValues("ok").Inc()

	if len(events) == 0 || c.emit == nil {
		return nil
	}
	return c.emit(ctx, events)
}
