package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiokit/community-api/internal/model"
	"github.com/studiokit/community-api/pkg/logger"
	"github.com/studiokit/community-api/pkg/metrics"
)

type fakeEmail struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (f *fakeEmail) SendNotification(ctx context.Context, to, subject, content string) error {
	if f.fail {
		return errors.New("smtp down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return nil
}

type fakeDirectory struct {
	emails map[uuid.UUID]string
}

func (f *fakeDirectory) EmailAddress(ctx context.Context, userID uuid.UUID) (string, error) {
	addr, ok := f.emails[userID]
	if !ok {
		return "", fmt.Errorf("unknown user %s", userID)
	}
	return addr, nil
}

type fakePush struct {
	mu   sync.Mutex
	sent []uuid.UUID
}

func (f *fakePush) Send(ctx context.Context, userID uuid.UUID, title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, userID)
	return nil
}

type fakeBroker struct {
	mu        sync.Mutex
	msgs      chan []byte
	published map[string]int
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{msgs: make(chan []byte, 16), published: make(map[string]int)}
}

func (b *fakeBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel]++
	return nil
}

func (b *fakeBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return b.msgs, nil
}

func (b *fakeBroker) Close() error { return nil }

func newTestDispatcher(t *testing.T, emailSvc *fakeEmail, directory *fakeDirectory, push *fakePush, broker *fakeBroker) *Dispatcher {
	t.Helper()
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	return NewDispatcher(
		broker,
		"notifications.delivery",
		emailSvc,
		push,
		directory,
		log,
		metrics.NewMetricsWith(prometheus.NewRegistry(), "test", "dispatcher"),
	)
}

func TestSendEmailResolvesAddress(t *testing.T) {
	userID := uuid.New()
	emailSvc := &fakeEmail{}
	directory := &fakeDirectory{emails: map[uuid.UUID]string{userID: "yogi@example.com"}}
	d := newTestDispatcher(t, emailSvc, directory, &fakePush{}, newFakeBroker())

	job := &model.DeliveryJob{UserID: userID, Channel: model.ChannelEmail, Title: "hi"}
	require.NoError(t, d.send(context.Background(), job))
	assert.Equal(t, []string{"yogi@example.com"}, emailSvc.sent)
}

func TestSendEmailUnknownUser(t *testing.T) {
	d := newTestDispatcher(t, &fakeEmail{}, &fakeDirectory{emails: map[uuid.UUID]string{}}, &fakePush{}, newFakeBroker())

	job := &model.DeliveryJob{UserID: uuid.New(), Channel: model.ChannelEmail}
	assert.Error(t, d.send(context.Background(), job))
}

func TestSendPush(t *testing.T) {
	userID := uuid.New()
	push := &fakePush{}
	d := newTestDispatcher(t, &fakeEmail{}, &fakeDirectory{}, push, newFakeBroker())

	job := &model.DeliveryJob{UserID: userID, Channel: model.ChannelPush, Title: "hi"}
	require.NoError(t, d.send(context.Background(), job))
	assert.Equal(t, []uuid.UUID{userID}, push.sent)
}

func TestSendInAppRepublishesToInbox(t *testing.T) {
	userID := uuid.New()
	broker := newFakeBroker()
	d := newTestDispatcher(t, &fakeEmail{}, &fakeDirectory{}, &fakePush{}, broker)

	for _, ch := range []model.Channel{model.ChannelInApp, model.ChannelSound} {
		job := &model.DeliveryJob{UserID: userID, Channel: ch}
		require.NoError(t, d.send(context.Background(), job))
	}

	broker.mu.Lock()
	defer broker.mu.Unlock()
	for topic, count := range broker.published {
		assert.True(t, strings.HasPrefix(topic, "user."), "topic %s", topic)
		assert.True(t, strings.HasSuffix(topic, ".inbox"), "topic %s", topic)
		assert.Equal(t, 2, count)
	}
	assert.Len(t, broker.published, 1)
}

func TestSendUnsupportedChannel(t *testing.T) {
	d := newTestDispatcher(t, &fakeEmail{}, &fakeDirectory{}, &fakePush{}, newFakeBroker())
	job := &model.DeliveryJob{UserID: uuid.New(), Channel: model.Channel("fax")}
	assert.Error(t, d.send(context.Background(), job))
}

func TestDeliverGivesUpWhenContextEnds(t *testing.T) {
	emailSvc := &fakeEmail{fail: true}
	userID := uuid.New()
	directory := &fakeDirectory{emails: map[uuid.UUID]string{userID: "yogi@example.com"}}
	d := newTestDispatcher(t, emailSvc, directory, &fakePush{}, newFakeBroker())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		d.deliver(ctx, &model.DeliveryJob{UserID: userID, Channel: model.ChannelEmail})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliver did not stop after context cancellation")
	}
}
