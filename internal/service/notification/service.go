package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/studiokit/community-api/internal/model"
	"github.com/studiokit/community-api/internal/repository"
	apperrors "github.com/studiokit/community-api/pkg/errors"
	"github.com/studiokit/community-api/pkg/logger"
	"github.com/studiokit/community-api/pkg/messaging"
	"github.com/studiokit/community-api/pkg/metrics"
)

const (
	// DeliveryTopic is where delivery jobs are handed to the external dispatcher.
	DeliveryTopic = "notifications.delivery"

	DefaultPageSize = 50

	prefCacheTTL   = 30 * time.Second
	publishTimeout = 2 * time.Second
	maxFanOut      = 32
)

type Service struct {
	notifications repository.NotificationRepository
	prefs         repository.PreferenceRepository
	broker        messaging.Broker
	logger        *logger.Logger
	metrics       *metrics.Metrics
	prefCache     *gocache.Cache

	now func() time.Time
}

func NewService(notifications repository.NotificationRepository, prefs repository.PreferenceRepository, broker messaging.Broker, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		notifications: notifications,
		prefs:         prefs,
		broker:        broker,
		logger:        log,
		metrics:       m,
		prefCache:     gocache.New(prefCacheTTL, 2*prefCacheTTL),
		now:           time.Now,
	}
}

// FanOut evaluates one triggering event against every affected member, one
// goroutine per member. It runs on a background context so it keeps going
// after the originating request returns or is canceled; failures are
// isolated per member.
func (s *Service) FanOut(members []*model.ThreadMember, event *model.NotificationEvent) {
	start := time.Now()
	defer func() {
		s.metrics.FanOutDuration.Observe(time.Since(start).Seconds())
	}()

	ctx := context.Background()
	sem := make(chan struct{}, maxFanOut)

	var wg sync.WaitGroup
	for _, member := range members {
		if member.UserID == event.SenderID {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(m *model.ThreadMember) {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := s.Evaluate(ctx, m, event); err != nil {
				s.logger.Error(err, "notification evaluation failed",
					"user_id", m.UserID.String(),
					"category", string(event.Category),
				)
			}
		}(member)
	}
	wg.Wait()
}

// Evaluate runs the per-member decision procedure and returns the created
// Notification record, or nil when a gate aborted the evaluation. It holds
// no state beyond that record.
func (s *Service) Evaluate(ctx context.Context, member *model.ThreadMember, event *model.NotificationEvent) (*model.Notification, error) {
	pref, err := s.Preferences(ctx, member.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	// Step 1: category gate. A disabled category produces nothing at all.
	if !pref.CategoryEnabled(event.Category) {
		return nil, nil
	}

	// Step 2: membership gate.
	if member.Muted || !member.NotificationsEnabled {
		return nil, nil
	}

	// Step 3: priority assignment.
	priority := event.Priority
	if priority == "" {
		priority = model.DefaultPriority(event.Category)
	}

	// Step 4: quiet-hours evaluation.
	suppressed := suppressedChannels(pref, priority, s.now())

	// Step 5: channel fan-out, fire and forget per channel.
	for _, ch := range model.AllChannels {
		if !pref.ChannelEnabled(ch) || suppressed[ch] {
			continue
		}
		s.enqueue(member.UserID, ch, event)
	}

	// Step 6: the record exists whenever gates 1-2 passed, even with every
	// channel suppressed.
	n := &model.Notification{
		ID:        uuid.New(),
		UserID:    member.UserID,
		Category:  event.Category,
		Priority:  priority,
		Title:     event.Title,
		Body:      event.Body,
		ThreadID:  event.Source.ThreadID,
		MessageID: event.Source.MessageID,
		CreatedAt: s.now(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification record: %w", err)
	}

	s.metrics.NotificationsCreated.WithLabelValues(string(event.Category)).Inc()
	return n, nil
}

// enqueue hands one delivery job to the dispatcher. A full or unreachable
// intake drops the job: the record in step 6 still reaches the member in-app,
// and retries belong to the dispatcher, not this engine.
func (s *Service) enqueue(userID uuid.UUID, ch model.Channel, event *model.NotificationEvent) {
	job := &model.DeliveryJob{
		UserID:    userID,
		Channel:   ch,
		Title:     event.Title,
		Body:      event.Body,
		SourceRef: event.Source,
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.broker.Publish(ctx, DeliveryTopic, job); err != nil {
		s.metrics.DeliveryEnqueueFailed.WithLabelValues(string(ch)).Inc()
		s.logger.Error(apperrors.DispatchEnqueueFailed(err), "dropping delivery job",
			"user_id", userID.String(),
			"channel", string(ch),
		)
		return
	}
	s.metrics.DeliveryJobsEnqueued.WithLabelValues(string(ch)).Inc()
}

// Preferences returns the user's stored preferences, or the defaults when
// none were ever saved. Lookups are cached briefly so a fan-out over a large
// roster does not hammer the store.
func (s *Service) Preferences(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	if cached, ok := s.prefCache.Get(userID.String()); ok {
		return cached.(*model.NotificationPreference), nil
	}

	pref, err := s.prefs.Get(ctx, userID)
	if apperrors.HasCode(err, apperrors.ErrNotFound) {
		pref = model.DefaultPreferences(userID)
	} else if err != nil {
		return nil, err
	}

	s.prefCache.Set(userID.String(), pref, gocache.DefaultExpiration)
	return pref, nil
}

// SavePreferences upserts the user's preference row and drops the cache entry.
func (s *Service) SavePreferences(ctx context.Context, pref *model.NotificationPreference) error {
	if _, err := time.LoadLocation(pref.Timezone); err != nil {
		return apperrors.BadRequest("unknown timezone", err)
	}
	if err := s.prefs.Save(ctx, pref); err != nil {
		return err
	}
	s.prefCache.Delete(pref.UserID.String())
	return nil
}

// ListNotifications pages the user's in-app notification list, newest first.
func (s *Service) ListNotifications(ctx context.Context, userID uuid.UUID, cursorToken string, limit int) (*model.NotificationPage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	cursor, err := repository.DecodeCursor(cursorToken)
	if err != nil {
		return nil, apperrors.BadRequest("invalid cursor", err)
	}

	notifications, err := s.notifications.ListForUser(ctx, userID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	page := &model.NotificationPage{Notifications: notifications}
	if len(notifications) == limit {
		last := notifications[len(notifications)-1]
		page.NextCursor = repository.Cursor{At: last.CreatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.notifications.MarkRead(ctx, id, userID)
}
