package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studiokit/community-api/internal/model"
	apperrors "github.com/studiokit/community-api/pkg/errors"
)

func (r *preferenceRepository) Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	query := `
		SELECT user_id, timezone, in_app, email, push, sound,
			   new_messages, class_reminders, community_updates,
			   instructor_responses, engagement_milestones, system_alerts,
			   quiet_hours_enabled, quiet_hours_start, quiet_hours_end, updated_at
		FROM notification_preferences
		WHERE user_id = $1
	`
	var pref model.NotificationPreference
	err := r.db.GetContext(ctx, &pref, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("notification preferences", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return &pref, nil
}

func (r *preferenceRepository) Save(ctx context.Context, pref *model.NotificationPreference) error {
	query := `
		INSERT INTO notification_preferences (
			user_id, timezone, in_app, email, push, sound,
			new_messages, class_reminders, community_updates,
			instructor_responses, engagement_milestones, system_alerts,
			quiet_hours_enabled, quiet_hours_start, quiet_hours_end, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (user_id) DO UPDATE SET
			timezone = EXCLUDED.timezone,
			in_app = EXCLUDED.in_app,
			email = EXCLUDED.email,
			push = EXCLUDED.push,
			sound = EXCLUDED.sound,
			new_messages = EXCLUDED.new_messages,
			class_reminders = EXCLUDED.class_reminders,
			community_updates = EXCLUDED.community_updates,
			instructor_responses = EXCLUDED.instructor_responses,
			engagement_milestones = EXCLUDED.engagement_milestones,
			system_alerts = EXCLUDED.system_alerts,
			quiet_hours_enabled = EXCLUDED.quiet_hours_enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			updated_at = EXCLUDED.updated_at
	`
	pref.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		pref.UserID,
		pref.Timezone,
		pref.InApp,
		pref.Email,
		pref.Push,
		pref.Sound,
		pref.NewMessages,
		pref.ClassReminders,
		pref.CommunityUpdates,
		pref.InstructorResponses,
		pref.EngagementMilestones,
		pref.SystemAlerts,
		pref.QuietHoursEnabled,
		pref.QuietHoursStart,
		pref.QuietHoursEnd,
		pref.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
