package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeOfDay is minutes since local midnight, serialized as "HH:MM".
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return NewTimeOfDay(hour, minute), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return int64(t), nil
}

func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*t = TimeOfDay(v)
		return nil
	case nil:
		*t = 0
		return nil
	default:
		return fmt.Errorf("unsupported time of day type %T", src)
	}
}

// NotificationPreference is per user and process-wide for that user; thread
// level mute/enable lives on ThreadMember instead.
type NotificationPreference struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Timezone  string    `db:"timezone" json:"timezone"`

	InApp bool `db:"in_app" json:"in_app"`
	Email bool `db:"email" json:"email"`
	Push  bool `db:"push" json:"push"`
	Sound bool `db:"sound" json:"sound"`

	NewMessages          bool `db:"new_messages" json:"new_messages"`
	ClassReminders       bool `db:"class_reminders" json:"class_reminders"`
	CommunityUpdates     bool `db:"community_updates" json:"community_updates"`
	InstructorResponses  bool `db:"instructor_responses" json:"instructor_responses"`
	EngagementMilestones bool `db:"engagement_milestones" json:"engagement_milestones"`
	SystemAlerts         bool `db:"system_alerts" json:"system_alerts"`

	QuietHoursEnabled bool      `db:"quiet_hours_enabled" json:"quiet_hours_enabled"`
	QuietHoursStart   TimeOfDay `db:"quiet_hours_start" json:"quiet_hours_start"`
	QuietHoursEnd     TimeOfDay `db:"quiet_hours_end" json:"quiet_hours_end"`

	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultPreferences is what applies when a user never saved preferences:
// everything on except the sound channel, quiet hours off, UTC.
func DefaultPreferences(userID uuid.UUID) *NotificationPreference {
	return &NotificationPreference{
		UserID:               userID,
		Timezone:             "UTC",
		InApp:                true,
		Email:                true,
		Push:                 true,
		Sound:                false,
		NewMessages:          true,
		ClassReminders:       true,
		CommunityUpdates:     true,
		InstructorResponses:  true,
		EngagementMilestones: true,
		SystemAlerts:         true,
	}
}

// ChannelEnabled reports the channel toggle for the given delivery channel.
func (p *NotificationPreference) ChannelEnabled(ch Channel) bool {
	switch ch {
	case ChannelInApp:
		return p.InApp
	case ChannelEmail:
		return p.Email
	case ChannelPush:
		return p.Push
	case ChannelSound:
		return p.Sound
	}
	return false
}

// CategoryEnabled reports the category toggle for the given category.
func (p *NotificationPreference) CategoryEnabled(cat NotificationCategory) bool {
	switch cat {
	case CategoryNewMessages:
		return p.NewMessages
	case CategoryClassReminders:
		return p.ClassReminders
	case CategoryCommunityUpdates:
		return p.CommunityUpdates
	case CategoryInstructorResponses:
		return p.InstructorResponses
	case CategoryEngagementMilestones:
		return p.EngagementMilestones
	case CategorySystemAlerts:
		return p.SystemAlerts
	}
	return false
}

// Location resolves the user's timezone, falling back to UTC when the stored
// name does not load.
func (p *NotificationPreference) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type SavePreferencesRequest struct {
	Timezone             string `json:"timezone" binding:"required" validate:"required,timezone"`
	InApp                bool   `json:"in_app"`
	Email                bool   `json:"email"`
	Push                 bool   `json:"push"`
	Sound                bool   `json:"sound"`
	NewMessages          bool   `json:"new_messages"`
	ClassReminders       bool   `json:"class_reminders"`
	CommunityUpdates     bool   `json:"community_updates"`
	InstructorResponses  bool   `json:"instructor_responses"`
	EngagementMilestones bool   `json:"engagement_milestones"`
	SystemAlerts         bool   `json:"system_alerts"`
	QuietHoursEnabled    bool   `json:"quiet_hours_enabled"`
	QuietHoursStart      string `json:"quiet_hours_start" validate:"omitempty,datetime=15:04"`
	QuietHoursEnd        string `json:"quiet_hours_end" validate:"omitempty,datetime=15:04"`
}
