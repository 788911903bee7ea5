package message

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studiokit/community-api/internal/model"
	"github.com/studiokit/community-api/internal/repository"
	"github.com/studiokit/community-api/internal/service/notification"
	apperrors "github.com/studiokit/community-api/pkg/errors"
	"github.com/studiokit/community-api/pkg/keymutex"
	"github.com/studiokit/community-api/pkg/logger"
	"github.com/studiokit/community-api/pkg/metrics"
)

const (
	DefaultPageSize = 50

	// snippetLen bounds the notification body preview.
	snippetLen = 140
)

type Service struct {
	threads  repository.ThreadRepository
	messages repository.MessageRepository
	notifier *notification.Service
	logger   *logger.Logger
	metrics  *metrics.Metrics

	// threadLocks serializes appends per thread so created_at assignment and
	// the insert are one atomic step from any reader's point of view.
	threadLocks *keymutex.KeyMutex

	now func() time.Time
}

func NewService(threads repository.ThreadRepository, messages repository.MessageRepository, notifier *notification.Service, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		threads:     threads,
		messages:    messages,
		notifier:    notifier,
		logger:      log,
		metrics:     m,
		threadLocks: keymutex.New(),
		now:         time.Now,
	}
}

// PostMessage validates, appends the message under the thread's lock, then
// triggers notification fan-out for the other members. Fan-out runs detached
// from the caller's request: a canceled request never loses side-effects of a
// committed message.
func (s *Service) PostMessage(ctx context.Context, threadID, senderID uuid.UUID, body string, attachments []model.AttachmentRef, replyToID *uuid.UUID) (*model.Message, error) {
	thread, err := s.threads.Get(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread.Archived {
		return nil, apperrors.ThreadLocked("thread is archived")
	}

	sender, err := s.threads.GetMember(ctx, threadID, senderID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotAMember(senderID.String())
		}
		return nil, err
	}
	if thread.Locked && !sender.Role.CanModerate() {
		return nil, apperrors.ThreadLocked("thread is locked")
	}

	if replyToID != nil {
		parent, err := s.messages.Get(ctx, *replyToID)
		if err != nil {
			if apperrors.HasCode(err, apperrors.ErrNotFound) {
				return nil, apperrors.InvalidReply("reply target does not exist")
			}
			return nil, err
		}
		if parent.ThreadID != threadID {
			return nil, apperrors.InvalidReply("reply target belongs to another thread")
		}
	}

	msg := &model.Message{
		ID:          uuid.New(),
		ThreadID:    threadID,
		SenderID:    senderID,
		Body:        body,
		Attachments: attachments,
		ReplyToID:   replyToID,
	}

	// The lock covers only the store mutation; it is released before the
	// notification engine runs.
	key := threadID.String()
	commitStart := time.Now()
	s.threadLocks.Lock(key)
	err = func() error {
		// Server receipt time, clamped strictly past the thread's latest
		// message so concurrent posts never tie or regress.
		createdAt := s.now()
		latest, err := s.messages.LatestCreatedAt(ctx, threadID)
		if err != nil {
			return err
		}
		if latest != nil && !createdAt.After(*latest) {
			createdAt = latest.Add(time.Microsecond)
		}
		msg.CreatedAt = createdAt

		if err := s.messages.Create(ctx, msg); err != nil {
			return err
		}
		return s.threads.SetLastMessageAt(ctx, threadID, msg.CreatedAt)
	}()
	s.threadLocks.Unlock(key)
	if err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}
	s.metrics.MessagesPosted.Inc()
	s.metrics.PostLatency.Observe(time.Since(commitStart).Seconds())

	members, err := s.threads.ListMembers(ctx, threadID)
	if err != nil {
		// The message is committed; delivery is best effort from here on.
		s.logger.Error(err, "failed to list members for fan-out",
			"thread_id", threadID.String(),
		)
		return msg, nil
	}

	event := &model.NotificationEvent{
		Category: model.CategoryNewMessages,
		Title:    thread.Title,
		Body:     snippet(body),
		Source:   model.SourceRef{ThreadID: &thread.ID, MessageID: &msg.ID},
		SenderID: senderID,
	}
	go s.notifier.FanOut(members, event)

	return msg, nil
}

// EditMessage replaces the body; only the original sender may edit.
func (s *Service) EditMessage(ctx context.Context, messageID, editorID uuid.UUID, newBody string) (*model.Message, error) {
	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != editorID {
		return nil, apperrors.Forbidden("only the sender may edit a message")
	}
	if msg.Deleted() {
		return nil, apperrors.NotFound("message", nil)
	}

	now := s.now()
	msg.Body = newBody
	msg.EditedAt = &now
	if err := s.messages.Update(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// FlagMessage raises the moderation flag. Re-flagging an already flagged
// message just refreshes the reason.
func (s *Service) FlagMessage(ctx context.Context, messageID, flaggerID uuid.UUID, reason string) (*model.Message, error) {
	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.threads.GetMember(ctx, msg.ThreadID, flaggerID); err != nil {
		if apperrors.HasCode(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotAMember(flaggerID.String())
		}
		return nil, err
	}

	msg.Flagged = true
	msg.FlagReason = &reason
	if err := s.messages.Update(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// UnflagMessage clears an outstanding flag after moderation review.
func (s *Service) UnflagMessage(ctx context.Context, messageID, actorID uuid.UUID) (*model.Message, error) {
	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	actor, err := s.threads.GetMember(ctx, msg.ThreadID, actorID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotAMember(actorID.String())
		}
		return nil, err
	}
	if !actor.Role.CanModerate() {
		return nil, apperrors.Forbidden("only owners and moderators may clear flags")
	}

	msg.Flagged = false
	msg.FlagReason = nil
	if err := s.messages.Update(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// DeleteMessage soft-deletes: the sender may delete their own message, a
// moderator or owner any message. The body stays in storage for audit review.
func (s *Service) DeleteMessage(ctx context.Context, messageID, actorID uuid.UUID) error {
	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.Deleted() {
		return nil
	}

	if msg.SenderID != actorID {
		actor, err := s.threads.GetMember(ctx, msg.ThreadID, actorID)
		if err != nil {
			if apperrors.HasCode(err, apperrors.ErrNotFound) {
				return apperrors.NotAMember(actorID.String())
			}
			return err
		}
		if !actor.Role.CanModerate() {
			return apperrors.Forbidden("only the sender or a moderator may delete a message")
		}
	}

	now := s.now()
	msg.DeletedAt = &now
	if err := s.messages.Update(ctx, msg); err != nil {
		return err
	}
	s.metrics.MessagesDeleted.Inc()
	return nil
}

// ListMessages pages the thread in (created_at, id) order. Soft-deleted
// messages appear only for moderators and owners asking for them.
func (s *Service) ListMessages(ctx context.Context, threadID, callerID uuid.UUID, cursorToken string, limit int, includeDeleted bool) (*model.MessagePage, error) {
	caller, err := s.threads.GetMember(ctx, threadID, callerID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotAMember(callerID.String())
		}
		return nil, err
	}
	if includeDeleted && !caller.Role.CanModerate() {
		return nil, apperrors.Forbidden("only owners and moderators may view deleted messages")
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	cursor, err := repository.DecodeCursor(cursorToken)
	if err != nil {
		return nil, apperrors.BadRequest("invalid cursor", err)
	}

	messages, err := s.messages.List(ctx, threadID, cursor, limit, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	page := &model.MessagePage{Messages: messages}
	if len(messages) == limit {
		last := messages[len(messages)-1]
		page.NextCursor = repository.Cursor{At: last.CreatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}

func snippet(body string) string {
	runes := []rune(body)
	if len(runes) <= snippetLen {
		return body
	}
	return string(runes[:snippetLen-1]) + "…"
}
