package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationCategory string

const (
	CategoryNewMessages          NotificationCategory = "new_messages"
	CategoryClassReminders       NotificationCategory = "class_reminders"
	CategoryCommunityUpdates     NotificationCategory = "community_updates"
	CategoryInstructorResponses  NotificationCategory = "instructor_responses"
	CategoryEngagementMilestones NotificationCategory = "engagement_milestones"
	CategorySystemAlerts         NotificationCategory = "system_alerts"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSound Channel = "sound"
)

// AllChannels in fan-out evaluation order.
var AllChannels = []Channel{ChannelInApp, ChannelEmail, ChannelPush, ChannelSound}

// DefaultPriority maps a category to its base priority; an explicit priority
// on the triggering event overrides it.
func DefaultPriority(cat NotificationCategory) Priority {
	switch cat {
	case CategorySystemAlerts:
		return PriorityUrgent
	case CategoryEngagementMilestones:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// Notification is the in-app delivery record, one per member per triggering
// event. It is created even when every external channel was suppressed, so
// the member still sees the item on next open.
type Notification struct {
	ID        uuid.UUID            `db:"id" json:"id"`
	UserID    uuid.UUID            `db:"user_id" json:"user_id"`
	Category  NotificationCategory `db:"category" json:"category"`
	Priority  Priority             `db:"priority" json:"priority"`
	Title     string               `db:"title" json:"title"`
	Body      string               `db:"body" json:"body"`
	ThreadID  *uuid.UUID           `db:"thread_id" json:"thread_id,omitempty"`
	MessageID *uuid.UUID           `db:"message_id" json:"message_id,omitempty"`
	Read      bool                 `db:"read" json:"read"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}

// SourceRef identifies what triggered a notification.
type SourceRef struct {
	ThreadID  *uuid.UUID `json:"thread_id,omitempty"`
	MessageID *uuid.UUID `json:"message_id,omitempty"`
}

// NotificationEvent is a triggering event fed to the routing engine; one
// evaluation runs per (event, affected member) pair.
type NotificationEvent struct {
	Category NotificationCategory
	Priority Priority // empty means use the category default
	Title    string
	Body     string
	Source   SourceRef
	SenderID uuid.UUID
}

// DeliveryJob is what the engine hands to the external dispatcher for every
// channel that survives the gates. The engine never retries; the dispatcher does.
type DeliveryJob struct {
	UserID    uuid.UUID `json:"user_id"`
	Channel   Channel   `json:"channel"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	SourceRef SourceRef `json:"source_ref"`
}

// NotificationPage is one page of a user's in-app notification list,
// newest first.
type NotificationPage struct {
	Notifications []*Notification `json:"notifications"`
	NextCursor    string          `json:"next_cursor,omitempty"`
}
