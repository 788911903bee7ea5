package notification

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiokit/community-api/internal/model"
	"github.com/studiokit/community-api/internal/repository/repositorytest"
	apperrors "github.com/studiokit/community-api/pkg/errors"
	"github.com/studiokit/community-api/pkg/logger"
	"github.com/studiokit/community-api/pkg/metrics"
)

type captureBroker struct {
	mu   sync.Mutex
	jobs []model.DeliveryJob
	fail bool
}

func (b *captureBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	if b.fail {
		return errors.New("broker unavailable")
	}
	job, ok := message.(*model.DeliveryJob)
	if !ok {
		return errors.New("unexpected message type")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobs = append(b.jobs, *job)
	return nil
}

func (b *captureBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *captureBroker) Close() error { return nil }

func (b *captureBroker) channels() map[model.Channel]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[model.Channel]int)
	for _, j := range b.jobs {
		out[j.Channel]++
	}
	return out
}

type engineFixture struct {
	svc           *Service
	notifications *repositorytest.NotificationStore
	prefs         *repositorytest.PreferenceStore
	broker        *captureBroker
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	notifications := repositorytest.NewNotificationStore()
	prefs := repositorytest.NewPreferenceStore()
	broker := &captureBroker{}
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "test", "engine")

	svc := NewService(notifications, prefs, broker, log, m)
	svc.now = func() time.Time {
		return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	}
	return &engineFixture{svc: svc, notifications: notifications, prefs: prefs, broker: broker}
}

func member(userID uuid.UUID) *model.ThreadMember {
	return &model.ThreadMember{
		ThreadID:             uuid.New(),
		UserID:               userID,
		Role:                 model.RoleMember,
		JoinedAt:             time.Now(),
		NotificationsEnabled: true,
	}
}

func newMessageEvent() *model.NotificationEvent {
	threadID := uuid.New()
	messageID := uuid.New()
	return &model.NotificationEvent{
		Category: model.CategoryNewMessages,
		Title:    "Morning Flow",
		Body:     "See you on the mat",
		Source:   model.SourceRef{ThreadID: &threadID, MessageID: &messageID},
		SenderID: uuid.New(),
	}
}

func TestEvaluateCreatesRecordAndEnqueues(t *testing.T) {
	f := newEngineFixture(t)
	userID := uuid.New()

	n, err := f.svc.Evaluate(context.Background(), member(userID), newMessageEvent())
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, userID, n.UserID)
	assert.Equal(t, model.CategoryNewMessages, n.Category)
	assert.Equal(t, model.PriorityMedium, n.Priority)
	assert.False(t, n.Read)

	stored, err := f.notifications.Get(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.Title, stored.Title)

	// Default preferences: sound is off, the other three channels deliver.
	channels := f.broker.channels()
	assert.Equal(t, 1, channels[model.ChannelInApp])
	assert.Equal(t, 1, channels[model.ChannelEmail])
	assert.Equal(t, 1, channels[model.ChannelPush])
	assert.Zero(t, channels[model.ChannelSound])
}

func TestEvaluateCategoryGate(t *testing.T) {
	f := newEngineFixture(t)
	userID := uuid.New()

	pref := model.DefaultPreferences(userID)
	pref.NewMessages = false
	require.NoError(t, f.prefs.Save(context.Background(), pref))

	n, err := f.svc.Evaluate(context.Background(), member(userID), newMessageEvent())
	require.NoError(t, err)
	assert.Nil(t, n, "disabled category produces no record")
	assert.Empty(t, f.broker.channels())
}

func TestEvaluateMembershipGate(t *testing.T) {
	f := newEngineFixture(t)

	muted := member(uuid.New())
	muted.Muted = true
	n, err := f.svc.Evaluate(context.Background(), muted, newMessageEvent())
	require.NoError(t, err)
	assert.Nil(t, n)

	disabled := member(uuid.New())
	disabled.NotificationsEnabled = false
	n, err = f.svc.Evaluate(context.Background(), disabled, newMessageEvent())
	require.NoError(t, err)
	assert.Nil(t, n)

	assert.Empty(t, f.broker.channels())
}

func TestEvaluatePriorityAssignment(t *testing.T) {
	f := newEngineFixture(t)

	event := newMessageEvent()
	event.Category = model.CategorySystemAlerts
	n, err := f.svc.Evaluate(context.Background(), member(uuid.New()), event)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, model.PriorityUrgent, n.Priority)

	event = newMessageEvent()
	event.Priority = model.PriorityHigh
	n, err = f.svc.Evaluate(context.Background(), member(uuid.New()), event)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, model.PriorityHigh, n.Priority, "event priority overrides the category default")
}

func TestEvaluateQuietHoursSuppressesAllChannels(t *testing.T) {
	f := newEngineFixture(t)
	userID := uuid.New()

	pref := model.DefaultPreferences(userID)
	pref.QuietHoursEnabled = true
	pref.QuietHoursStart = model.NewTimeOfDay(22, 0)
	pref.QuietHoursEnd = model.NewTimeOfDay(7, 0)
	require.NoError(t, f.prefs.Save(context.Background(), pref))

	f.svc.now = func() time.Time {
		return time.Date(2025, 6, 10, 23, 30, 0, 0, time.UTC)
	}

	n, err := f.svc.Evaluate(context.Background(), member(userID), newMessageEvent())
	require.NoError(t, err)
	require.NotNil(t, n, "the record is created even with every channel suppressed")
	assert.Empty(t, f.broker.channels())
}

func TestEvaluateQuietHoursUrgentKeepsInApp(t *testing.T) {
	f := newEngineFixture(t)
	userID := uuid.New()

	pref := model.DefaultPreferences(userID)
	pref.QuietHoursEnabled = true
	pref.QuietHoursStart = model.NewTimeOfDay(22, 0)
	pref.QuietHoursEnd = model.NewTimeOfDay(7, 0)
	require.NoError(t, f.prefs.Save(context.Background(), pref))

	f.svc.now = func() time.Time {
		return time.Date(2025, 6, 10, 23, 30, 0, 0, time.UTC)
	}

	event := newMessageEvent()
	event.Category = model.CategorySystemAlerts

	n, err := f.svc.Evaluate(context.Background(), member(userID), event)
	require.NoError(t, err)
	require.NotNil(t, n)

	channels := f.broker.channels()
	assert.Equal(t, 1, channels[model.ChannelInApp])
	assert.Zero(t, channels[model.ChannelEmail])
	assert.Zero(t, channels[model.ChannelPush])
}

func TestEvaluateBrokerFailureStillCreatesRecord(t *testing.T) {
	f := newEngineFixture(t)
	f.broker.fail = true

	n, err := f.svc.Evaluate(context.Background(), member(uuid.New()), newMessageEvent())
	require.NoError(t, err, "a dead dispatcher intake must not fail the evaluation")
	require.NotNil(t, n)

	_, err = f.notifications.Get(context.Background(), n.ID)
	assert.NoError(t, err)
}

func TestFanOutSkipsSender(t *testing.T) {
	f := newEngineFixture(t)
	event := newMessageEvent()

	sender := member(event.SenderID)
	other1 := member(uuid.New())
	other2 := member(uuid.New())

	f.svc.FanOut([]*model.ThreadMember{sender, other1, other2}, event)

	page, err := f.svc.ListNotifications(context.Background(), event.SenderID, "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Notifications, "the sender never gets notified about their own message")

	for _, m := range []*model.ThreadMember{other1, other2} {
		page, err := f.svc.ListNotifications(context.Background(), m.UserID, "", 10)
		require.NoError(t, err)
		assert.Len(t, page.Notifications, 1)
	}
}

func TestPreferencesDefaultsWhenUnsaved(t *testing.T) {
	f := newEngineFixture(t)
	userID := uuid.New()

	pref, err := f.svc.Preferences(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "UTC", pref.Timezone)
	assert.True(t, pref.NewMessages)
	assert.False(t, pref.Sound)
}

func TestSavePreferencesRejectsUnknownTimezone(t *testing.T) {
	f := newEngineFixture(t)

	pref := model.DefaultPreferences(uuid.New())
	pref.Timezone = "Mars/Olympus_Mons"
	err := f.svc.SavePreferences(context.Background(), pref)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
}

func TestSavePreferencesInvalidatesCache(t *testing.T) {
	f := newEngineFixture(t)
	userID := uuid.New()

	// Prime the cache with the defaults.
	_, err := f.svc.Preferences(context.Background(), userID)
	require.NoError(t, err)

	pref := model.DefaultPreferences(userID)
	pref.Push = false
	require.NoError(t, f.svc.SavePreferences(context.Background(), pref))

	got, err := f.svc.Preferences(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, got.Push)
}

func TestListNotificationsPaging(t *testing.T) {
	f := newEngineFixture(t)
	userID := uuid.New()
	base := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		n := &model.Notification{
			ID:        uuid.New(),
			UserID:    userID,
			Category:  model.CategoryNewMessages,
			Priority:  model.PriorityMedium,
			Title:     "hello",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.notifications.Create(context.Background(), n))
	}

	page1, err := f.svc.ListNotifications(context.Background(), userID, "", 3)
	require.NoError(t, err)
	require.Len(t, page1.Notifications, 3)
	require.NotEmpty(t, page1.NextCursor)
	assert.True(t, page1.Notifications[0].CreatedAt.After(page1.Notifications[2].CreatedAt),
		"newest first")

	page2, err := f.svc.ListNotifications(context.Background(), userID, page1.NextCursor, 3)
	require.NoError(t, err)
	assert.Len(t, page2.Notifications, 2)
	assert.Empty(t, page2.NextCursor)
}

func TestMarkNotificationReadWrongUser(t *testing.T) {
	f := newEngineFixture(t)
	owner := uuid.New()

	n := &model.Notification{
		ID:        uuid.New(),
		UserID:    owner,
		Category:  model.CategoryNewMessages,
		Priority:  model.PriorityMedium,
		CreatedAt: time.Now(),
	}
	require.NoError(t, f.notifications.Create(context.Background(), n))

	err := f.svc.MarkNotificationRead(context.Background(), n.ID, uuid.New())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))

	require.NoError(t, f.svc.MarkNotificationRead(context.Background(), n.ID, owner))
	stored, err := f.notifications.Get(context.Background(), n.ID)
	require.NoError(t, err)
	assert.True(t, stored.Read)
}
