package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studiokit/community-api/internal/email"
	"github.com/studiokit/community-api/internal/model"
	"github.com/studiokit/community-api/pkg/logger"
	"github.com/studiokit/community-api/pkg/messaging"
	"github.com/studiokit/community-api/pkg/metrics"
)

const (
	maxAttempts = 3
	retryDelay  = 5 * time.Second
)

// Directory resolves delivery addresses for users; backed by the external
// identity system.
type Directory interface {
	EmailAddress(ctx context.Context, userID uuid.UUID) (string, error)
}

// PushSender abstracts the push provider; the dispatcher has no knowledge of
// provider APIs.
type PushSender interface {
	Send(ctx context.Context, userID uuid.UUID, title, body string) error
}

// Dispatcher consumes delivery jobs from the broker and sends them through
// the channel providers. Retries live here, never in the routing engine.
type Dispatcher struct {
	broker    messaging.Broker
	topic     string
	emailSvc  email.Service
	push      PushSender
	directory Directory
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewDispatcher(broker messaging.Broker, topic string, emailSvc email.Service, push PushSender, directory Directory, log *logger.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		broker:    broker,
		topic:     topic,
		emailSvc:  emailSvc,
		push:      push,
		directory: directory,
		logger:    log,
		metrics:   m,
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	msgs, err := d.broker.Subscribe(ctx, d.topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", d.topic, err)
	}

	d.logger.Info("delivery dispatcher started", "topic", d.topic)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("delivery dispatcher shutting down")
			return nil
		case raw, ok := <-msgs:
			if !ok {
				return nil
			}
			var job model.DeliveryJob
			if err := json.Unmarshal(raw, &job); err != nil {
				d.logger.Error(err, "dropping malformed delivery job")
				continue
			}
			d.deliver(ctx, &job)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, job *model.DeliveryJob) {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = d.send(ctx, job); err == nil {
			d.metrics.DeliveriesSent.WithLabelValues(string(job.Channel)).Inc()
			return
		}
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay * time.Duration(attempt)):
			}
		}
	}

	d.metrics.DeliveriesFailed.WithLabelValues(string(job.Channel)).Inc()
	d.logger.Error(err, "delivery failed after retries",
		"user_id", job.UserID.String(),
		"channel", string(job.Channel),
	)
}

func (d *Dispatcher) send(ctx context.Context, job *model.DeliveryJob) error {
	switch job.Channel {
	case model.ChannelEmail:
		to, err := d.directory.EmailAddress(ctx, job.UserID)
		if err != nil {
			return fmt.Errorf("failed to resolve email address: %w", err)
		}
		return d.emailSvc.SendNotification(ctx, to, job.Title, job.Body)
	case model.ChannelPush:
		return d.push.Send(ctx, job.UserID, job.Title, job.Body)
	case model.ChannelInApp, model.ChannelSound:
		// Forwarded to the user's live session topic; connected clients pick
		// it up, disconnected ones rely on the in-app notification record.
		return d.broker.Publish(ctx, fmt.Sprintf("user.%s.inbox", job.UserID), job)
	default:
		return fmt.Errorf("unsupported channel: %s", job.Channel)
	}
}
