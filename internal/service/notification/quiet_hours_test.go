package notification

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/studiokit/community-api/internal/model"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 6, 10, hour, minute, 0, 0, time.UTC)
}

func TestInQuietWindowWrapsMidnight(t *testing.T) {
	start := model.NewTimeOfDay(22, 0)
	end := model.NewTimeOfDay(7, 0)

	assert.True(t, inQuietWindow(at(23, 30), start, end))
	assert.True(t, inQuietWindow(at(6, 30), start, end))
	assert.True(t, inQuietWindow(at(22, 0), start, end), "start is inclusive")
	assert.False(t, inQuietWindow(at(7, 0), start, end), "end is exclusive")
	assert.False(t, inQuietWindow(at(12, 0), start, end))
}

func TestInQuietWindowSameDay(t *testing.T) {
	start := model.NewTimeOfDay(13, 0)
	end := model.NewTimeOfDay(15, 0)

	assert.True(t, inQuietWindow(at(13, 0), start, end))
	assert.True(t, inQuietWindow(at(14, 59), start, end))
	assert.False(t, inQuietWindow(at(15, 0), start, end))
	assert.False(t, inQuietWindow(at(12, 59), start, end))
}

func TestInQuietWindowEmpty(t *testing.T) {
	tod := model.NewTimeOfDay(9, 0)
	assert.False(t, inQuietWindow(at(9, 0), tod, tod))
}

func TestSuppressedChannelsRespectsTimezone(t *testing.T) {
	pref := model.DefaultPreferences(uuid.New())
	pref.Timezone = "America/New_York"
	pref.QuietHoursEnabled = true
	pref.QuietHoursStart = model.NewTimeOfDay(22, 0)
	pref.QuietHoursEnd = model.NewTimeOfDay(7, 0)

	// 03:30 UTC in June is 23:30 in New York, inside the window.
	now := time.Date(2025, 6, 10, 3, 30, 0, 0, time.UTC)
	suppressed := suppressedChannels(pref, model.PriorityMedium, now)
	assert.True(t, suppressed[model.ChannelPush])
	assert.True(t, suppressed[model.ChannelEmail])
	assert.True(t, suppressed[model.ChannelSound])
	assert.True(t, suppressed[model.ChannelInApp])

	// 16:00 UTC is noon in New York, outside the window.
	now = time.Date(2025, 6, 10, 16, 0, 0, 0, time.UTC)
	assert.Nil(t, suppressedChannels(pref, model.PriorityMedium, now))
}

func TestSuppressedChannelsUrgentKeepsInApp(t *testing.T) {
	pref := model.DefaultPreferences(uuid.New())
	pref.QuietHoursEnabled = true
	pref.QuietHoursStart = model.NewTimeOfDay(22, 0)
	pref.QuietHoursEnd = model.NewTimeOfDay(7, 0)

	now := time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC)
	suppressed := suppressedChannels(pref, model.PriorityUrgent, now)
	assert.False(t, suppressed[model.ChannelInApp])
	assert.True(t, suppressed[model.ChannelPush])
	assert.True(t, suppressed[model.ChannelEmail])
	assert.True(t, suppressed[model.ChannelSound])
}

func TestSuppressedChannelsDisabled(t *testing.T) {
	pref := model.DefaultPreferences(uuid.New())
	now := time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC)
	assert.Nil(t, suppressedChannels(pref, model.PriorityMedium, now))
}
