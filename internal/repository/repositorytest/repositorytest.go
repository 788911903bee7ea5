// Package repositorytest provides in-memory repository implementations for
// service tests. They reproduce the store's ordering and monotonicity
// guarantees so service tests exercise the same contract the SQL layer keeps.
package repositorytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studiokit/community-api/internal/model"
	"github.com/studiokit/community-api/internal/repository"
	apperrors "github.com/studiokit/community-api/pkg/errors"
)

type memberKey struct {
	threadID uuid.UUID
	userID   uuid.UUID
}

// ThreadStore is an in-memory repository.ThreadRepository.
type ThreadStore struct {
	mu      sync.Mutex
	threads map[uuid.UUID]*model.Thread
	members map[memberKey]*model.ThreadMember
}

func NewThreadStore() *ThreadStore {
	return &ThreadStore{
		threads: make(map[uuid.UUID]*model.Thread),
		members: make(map[memberKey]*model.ThreadMember),
	}
}

var _ repository.ThreadRepository = (*ThreadStore)(nil)

func (s *ThreadStore) Create(ctx context.Context, thread *model.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *thread
	s.threads[thread.ID] = &cp
	return nil
}

func (s *ThreadStore) Get(ctx context.Context, id uuid.UUID) (*model.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, apperrors.NotFound("thread", nil)
	}
	cp := *t
	return &cp, nil
}

func (s *ThreadStore) Update(ctx context.Context, thread *model.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[thread.ID]; !ok {
		return apperrors.NotFound("thread", nil)
	}
	cp := *thread
	s.threads[thread.ID] = &cp
	return nil
}

func (s *ThreadStore) SetLastMessageAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return apperrors.NotFound("thread", nil)
	}
	if t.LastMessageAt == nil || t.LastMessageAt.Before(at) {
		t.LastMessageAt = &at
	}
	return nil
}

func (s *ThreadStore) ListForUser(ctx context.Context, userID, organizationID uuid.UUID, cursor repository.Cursor, limit int) ([]*model.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	activity := func(t *model.Thread) time.Time {
		if t.LastMessageAt != nil {
			return *t.LastMessageAt
		}
		return t.CreatedAt
	}

	var out []*model.Thread
	for key, m := range s.members {
		if m.UserID != userID {
			continue
		}
		t, ok := s.threads[key.threadID]
		if !ok || t.OrganizationID != organizationID {
			continue
		}
		if !cursor.IsZero() {
			at := activity(t)
			if at.After(cursor.At) {
				continue
			}
			if at.Equal(cursor.At) && t.ID.String() >= cursor.ID.String() {
				continue
			}
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := activity(out[i]), activity(out[j])
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ThreadStore) AddMember(ctx context.Context, member *model.ThreadMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{member.ThreadID, member.UserID}
	if _, ok := s.members[key]; ok {
		return apperrors.DuplicateMember(member.UserID.String())
	}
	cp := *member
	s.members[key] = &cp
	return nil
}

func (s *ThreadStore) GetMember(ctx context.Context, threadID, userID uuid.UUID) (*model.ThreadMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberKey{threadID, userID}]
	if !ok {
		return nil, apperrors.NotFound("member", nil)
	}
	cp := *m
	return &cp, nil
}

func (s *ThreadStore) UpdateMember(ctx context.Context, member *model.ThreadMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{member.ThreadID, member.UserID}
	if _, ok := s.members[key]; !ok {
		return apperrors.NotFound("member", nil)
	}
	cp := *member
	s.members[key] = &cp
	return nil
}

func (s *ThreadStore) RemoveMember(ctx context.Context, threadID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, memberKey{threadID, userID})
	return nil
}

func (s *ThreadStore) ListMembers(ctx context.Context, threadID uuid.UUID) ([]*model.ThreadMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.ThreadMember
	for key, m := range s.members {
		if key.threadID == threadID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (s *ThreadStore) CountOwners(ctx context.Context, threadID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for key, m := range s.members {
		if key.threadID == threadID && m.Role == model.RoleOwner {
			count++
		}
	}
	return count, nil
}

func (s *ThreadStore) AdvanceLastRead(ctx context.Context, threadID, userID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberKey{threadID, userID}]
	if !ok {
		return nil
	}
	if m.LastReadAt == nil || m.LastReadAt.Before(at) {
		m.LastReadAt = &at
	}
	return nil
}

// MessageStore is an in-memory repository.MessageRepository.
type MessageStore struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*model.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{messages: make(map[uuid.UUID]*model.Message)}
}

var _ repository.MessageRepository = (*MessageStore)(nil)

func (s *MessageStore) Create(ctx context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *msg
	s.messages[msg.ID] = &cp
	return nil
}

func (s *MessageStore) Get(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, apperrors.NotFound("message", nil)
	}
	cp := *m
	return &cp, nil
}

func (s *MessageStore) Update(ctx context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[msg.ID]; !ok {
		return apperrors.NotFound("message", nil)
	}
	cp := *msg
	s.messages[msg.ID] = &cp
	return nil
}

func (s *MessageStore) List(ctx context.Context, threadID uuid.UUID, cursor repository.Cursor, limit int, includeDeleted bool) ([]*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Message
	for _, m := range s.messages {
		if m.ThreadID != threadID {
			continue
		}
		if m.Deleted() && !includeDeleted {
			continue
		}
		if !cursor.IsZero() {
			if m.CreatedAt.Before(cursor.At) {
				continue
			}
			if m.CreatedAt.Equal(cursor.At) && m.ID.String() <= cursor.ID.String() {
				continue
			}
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MessageStore) LatestCreatedAt(ctx context.Context, threadID uuid.UUID) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *time.Time
	for _, m := range s.messages {
		if m.ThreadID != threadID {
			continue
		}
		if latest == nil || m.CreatedAt.After(*latest) {
			at := m.CreatedAt
			latest = &at
		}
	}
	return latest, nil
}

func (s *MessageStore) CountUnread(ctx context.Context, threadID, userID uuid.UUID, after *time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, m := range s.messages {
		if m.ThreadID != threadID || m.SenderID == userID || m.Deleted() {
			continue
		}
		if after != nil && !m.CreatedAt.After(*after) {
			continue
		}
		count++
	}
	return count, nil
}

// NotificationStore is an in-memory repository.NotificationRepository.
type NotificationStore struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]*model.Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{notifications: make(map[uuid.UUID]*model.Notification)}
}

var _ repository.NotificationRepository = (*NotificationStore)(nil)

func (s *NotificationStore) Create(ctx context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *NotificationStore) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, apperrors.NotFound("notification", nil)
	}
	cp := *n
	return &cp, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return apperrors.NotFound("notification", nil)
	}
	n.Read = true
	return nil
}

func (s *NotificationStore) ListForUser(ctx context.Context, userID uuid.UUID, cursor repository.Cursor, limit int) ([]*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Notification
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		if !cursor.IsZero() {
			if n.CreatedAt.After(cursor.At) {
				continue
			}
			if n.CreatedAt.Equal(cursor.At) && n.ID.String() >= cursor.ID.String() {
				continue
			}
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PreferenceStore is an in-memory repository.PreferenceRepository.
type PreferenceStore struct {
	mu    sync.Mutex
	prefs map[uuid.UUID]*model.NotificationPreference
}

func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{prefs: make(map[uuid.UUID]*model.NotificationPreference)}
}

var _ repository.PreferenceRepository = (*PreferenceStore)(nil)

func (s *PreferenceStore) Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prefs[userID]
	if !ok {
		return nil, apperrors.NotFound("preferences", nil)
	}
	cp := *p
	return &cp, nil
}

func (s *PreferenceStore) Save(ctx context.Context, pref *model.NotificationPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *pref
	s.prefs[pref.UserID] = &cp
	return nil
}
