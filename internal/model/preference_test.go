package model

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("22:00")
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(22, 0), tod)
	assert.Equal(t, "22:00", tod.String())

	tod, err = ParseTimeOfDay("07:30")
	require.NoError(t, err)
	assert.Equal(t, 7, tod.Hour())
	assert.Equal(t, 30, tod.Minute())

	for _, bad := range []string{"", "noon", "24:00", "12:60", "-1:00"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, "expected %q to be rejected", bad)
	}
}

func TestTimeOfDayJSON(t *testing.T) {
	data, err := json.Marshal(NewTimeOfDay(6, 5))
	require.NoError(t, err)
	assert.Equal(t, `"06:05"`, string(data))

	var tod TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`"23:45"`), &tod))
	assert.Equal(t, NewTimeOfDay(23, 45), tod)

	assert.Error(t, json.Unmarshal([]byte(`"25:00"`), &tod))
}

func TestDefaultPreferences(t *testing.T) {
	userID := uuid.New()
	pref := DefaultPreferences(userID)

	assert.Equal(t, userID, pref.UserID)
	assert.Equal(t, "UTC", pref.Timezone)
	assert.False(t, pref.QuietHoursEnabled)

	assert.True(t, pref.ChannelEnabled(ChannelInApp))
	assert.True(t, pref.ChannelEnabled(ChannelEmail))
	assert.True(t, pref.ChannelEnabled(ChannelPush))
	assert.False(t, pref.ChannelEnabled(ChannelSound))

	for _, cat := range []NotificationCategory{
		CategoryNewMessages,
		CategoryClassReminders,
		CategoryCommunityUpdates,
		CategoryInstructorResponses,
		CategoryEngagementMilestones,
		CategorySystemAlerts,
	} {
		assert.True(t, pref.CategoryEnabled(cat), "%s should default on", cat)
	}
}

func TestPreferenceLocationFallback(t *testing.T) {
	pref := DefaultPreferences(uuid.New())
	pref.Timezone = "Not/AZone"
	assert.Equal(t, "UTC", pref.Location().String())

	pref.Timezone = "America/New_York"
	assert.Equal(t, "America/New_York", pref.Location().String())
}

func TestDefaultPriority(t *testing.T) {
	assert.Equal(t, PriorityUrgent, DefaultPriority(CategorySystemAlerts))
	assert.Equal(t, PriorityLow, DefaultPriority(CategoryEngagementMilestones))
	assert.Equal(t, PriorityMedium, DefaultPriority(CategoryNewMessages))
	assert.Equal(t, PriorityMedium, DefaultPriority(CategoryClassReminders))
}
