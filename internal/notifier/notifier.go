// Package notifier delivers alert events to their resolved receivers:
// email, SMS gateway, and webhook channels.
package notifier

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/gridwatch/alertflow/internal/logging"
	"github.com/gridwatch/alertflow/internal/metrics"
	"github.com/gridwatch/alertflow/internal/models"
)

// Notifier is the interface for one delivery channel.
type Notifier interface {
	// Type returns the receiver type this notifier serves.
	Type() models.ReceiverType
	// Send delivers one alert event to one receiver.
	Send(ctx context.Context, event *models.AlertEvent, receiver *models.AlertReceiver) error
	// Close releases any resources.
	Close() error
}

// Dispatcher fans an alert event out to its receivers. Delivery failures are
// logged and counted, never propagated to the evaluation path.
type Dispatcher struct {
	mu        sync.RWMutex
	notifiers map[models.ReceiverType]Notifier
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// NewDispatcher creates a dispatcher. ratePerSecond caps deliveries across
// all channels; zero or negative disables rate limiting.
func NewDispatcher(ratePerSecond float64, burst int) *Dispatcher {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		if burst <= 0 {
			burst = int(ratePerSecond)
			if burst < 1 {
				burst = 1
			}
		}
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}
	return &Dispatcher{
		notifiers: make(map[models.ReceiverType]Notifier),
		limiter:   limiter,
		log:       logging.WithComponent("notifier"),
	}
}

// Register adds a notifier for its channel type.
func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers[n.Type()] = n
}

// Dispatch delivers the event to every attached receiver with a registered
// channel. Receivers without a matching notifier are skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, event *models.AlertEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, receiver := range event.Receivers {
		n, ok := d.notifiers[receiver.Type]
		if !ok {
			continue
		}

		if d.limiter != nil && !d.limiter.Allow() {
			metrics.NotificationsRateLimited.Inc()
			d.log.Warn().
				Str("event_id", event.EventID).
				Str("receiver", receiver.Name).
				Msg("notification dropped by rate limiter")
			continue
		}

		channel := string(receiver.Type)
		if err := n.Send(ctx, event, receiver); err != nil {
			metrics.NotificationsSent.WithLabelValues(channel, "error").Inc()
			d.log.Error().Err(err).
				Str("event_id", event.EventID).
				Str("receiver", receiver.Name).
				Str("channel", channel).
				Msg("notification delivery failed")
			continue
		}
		metrics.NotificationsSent.WithLabelValues(channel, "ok").Inc()
	}
}

// Close closes all registered notifiers.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for _, n := range d.notifiers {
		if err := n.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
