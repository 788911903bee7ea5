package notification

import (
	"time"

	"github.com/studiokit/community-api/internal/model"
)

// inQuietWindow reports whether the instant falls inside the half-open local
// window [start, end). Windows may wrap midnight: 22:00-07:00 covers 23:30
// and 06:30 but not 12:00. An empty window (start == end) never matches.
func inQuietWindow(at time.Time, start, end model.TimeOfDay) bool {
	if start == end {
		return false
	}
	minute := model.NewTimeOfDay(at.Hour(), at.Minute())
	if start < end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

// suppressedChannels resolves step 4 of the evaluation: the set of channels
// quiet hours removes for this member right now. Urgent priority keeps the
// in-app channel alive so the item is waiting on next open.
func suppressedChannels(pref *model.NotificationPreference, priority model.Priority, now time.Time) map[model.Channel]bool {
	if !pref.QuietHoursEnabled {
		return nil
	}
	local := now.In(pref.Location())
	if !inQuietWindow(local, pref.QuietHoursStart, pref.QuietHoursEnd) {
		return nil
	}

	suppressed := map[model.Channel]bool{
		model.ChannelPush:  true,
		model.ChannelEmail: true,
		model.ChannelSound: true,
	}
	if priority != model.PriorityUrgent {
		suppressed[model.ChannelInApp] = true
	}
	return suppressed
}
