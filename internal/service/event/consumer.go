package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/studiokit/community-api/internal/model"
	"github.com/studiokit/community-api/internal/service/notification"
	"github.com/studiokit/community-api/internal/service/thread"
	"github.com/studiokit/community-api/pkg/logger"
	"github.com/studiokit/community-api/pkg/messaging"
)

// EventsTopic carries external scheduling events into the core.
const EventsTopic = "community.events"

const (
	TypeClassScheduled = "class_scheduled"
	TypeClassReminder  = "class_reminder"
)

// SchedulingEvent is the envelope published by the external scheduler. The
// roster is resolved by the publisher; this consumer only consumes user ids.
type SchedulingEvent struct {
	Type           string      `json:"type"`
	OrganizationID uuid.UUID   `json:"organization_id"`
	ClassID        uuid.UUID   `json:"class_id"`
	ThreadID       *uuid.UUID  `json:"thread_id,omitempty"`
	Title          string      `json:"title"`
	Body           string      `json:"body,omitempty"`
	InstructorID   uuid.UUID   `json:"instructor_id"`
	Roster         []uuid.UUID `json:"roster"`
}

// Consumer turns scheduling events into threads and reminder notifications.
type Consumer struct {
	threads  *thread.Service
	notifier *notification.Service
	broker   messaging.Broker
	logger   *logger.Logger
}

func NewConsumer(threads *thread.Service, notifier *notification.Service, broker messaging.Broker, log *logger.Logger) *Consumer {
	return &Consumer{
		threads:  threads,
		notifier: notifier,
		broker:   broker,
		logger:   log,
	}
}

// Start subscribes to the events topic and handles events until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.broker.Subscribe(ctx, EventsTopic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", EventsTopic, err)
	}

	go func() {
		for raw := range msgs {
			var evt SchedulingEvent
			if err := json.Unmarshal(raw, &evt); err != nil {
				c.logger.Error(err, "dropping malformed scheduling event")
				continue
			}
			if err := c.handle(ctx, &evt); err != nil {
				c.logger.Error(err, "failed to handle scheduling event",
					"type", evt.Type,
					"class_id", evt.ClassID.String(),
				)
			}
		}
	}()
	return nil
}

func (c *Consumer) handle(ctx context.Context, evt *SchedulingEvent) error {
	switch evt.Type {
	case TypeClassScheduled:
		return c.handleClassScheduled(ctx, evt)
	case TypeClassReminder:
		return c.handleClassReminder(ctx, evt)
	default:
		c.logger.Debug("ignoring unknown scheduling event", "type", evt.Type)
		return nil
	}
}

// handleClassScheduled auto-creates the roster thread for a newly scheduled
// class and joins every roster member.
func (c *Consumer) handleClassScheduled(ctx context.Context, evt *SchedulingEvent) error {
	classID := evt.ClassID
	t, err := c.threads.CreateThread(ctx, evt.OrganizationID, model.ThreadKindClass, evt.Title, model.VisibilityRoster, evt.InstructorID, &classID)
	if err != nil {
		return fmt.Errorf("failed to auto-create class thread: %w", err)
	}

	for _, userID := range evt.Roster {
		if userID == evt.InstructorID {
			continue
		}
		if _, err := c.threads.AddMember(ctx, t.ID, userID, model.RoleMember); err != nil {
			c.logger.Error(err, "failed to add roster member",
				"thread_id", t.ID.String(),
				"user_id", userID.String(),
			)
		}
	}
	return nil
}

// handleClassReminder routes a reminder through the engine for every member
// of the class thread.
func (c *Consumer) handleClassReminder(ctx context.Context, evt *SchedulingEvent) error {
	if evt.ThreadID == nil {
		return fmt.Errorf("class reminder without thread id")
	}
	members, err := c.threads.ListMembers(ctx, *evt.ThreadID)
	if err != nil {
		return fmt.Errorf("failed to list members for reminder: %w", err)
	}

	event := &model.NotificationEvent{
		Category: model.CategoryClassReminders,
		Title:    evt.Title,
		Body:     evt.Body,
		Source:   model.SourceRef{ThreadID: evt.ThreadID},
	}
	c.notifier.FanOut(members, event)
	return nil
}
