package readstate

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/studiokit/community-api/internal/model"
	"github.com/studiokit/community-api/internal/repository"
	apperrors "github.com/studiokit/community-api/pkg/errors"
)

type Service struct {
	threads  repository.ThreadRepository
	messages repository.MessageRepository
}

func NewService(threads repository.ThreadRepository, messages repository.MessageRepository) *Service {
	return &Service{threads: threads, messages: messages}
}

// MarkRead advances the member's read cursor to the creation time of
// uptoMessageID. The cursor never regresses; marking an older message read
// after a newer one is a no-op.
func (s *Service) MarkRead(ctx context.Context, threadID, userID, uptoMessageID uuid.UUID) error {
	if _, err := s.threads.GetMember(ctx, threadID, userID); err != nil {
		if apperrors.HasCode(err, apperrors.ErrNotFound) {
			return apperrors.NotAMember(userID.String())
		}
		return err
	}

	msg, err := s.messages.Get(ctx, uptoMessageID)
	if err != nil {
		return err
	}
	if msg.ThreadID != threadID {
		return apperrors.BadRequest("message does not belong to this thread", nil)
	}

	return s.threads.AdvanceLastRead(ctx, threadID, userID, msg.CreatedAt)
}

// UnreadCount counts non-deleted messages newer than the member's read
// cursor, excluding the member's own messages.
func (s *Service) UnreadCount(ctx context.Context, threadID, userID uuid.UUID) (int, error) {
	member, err := s.threads.GetMember(ctx, threadID, userID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrNotFound) {
			return 0, apperrors.NotAMember(userID.String())
		}
		return 0, err
	}

	return s.messages.CountUnread(ctx, threadID, userID, member.LastReadAt)
}

// AggregateUnread sums unread counts across every thread the user belongs to
// in the organization; this feeds the badge count.
func (s *Service) AggregateUnread(ctx context.Context, userID, organizationID uuid.UUID) (int, error) {
	total := 0
	cursor := repository.Cursor{}
	for {
		threads, err := s.threads.ListForUser(ctx, userID, organizationID, cursor, 100)
		if err != nil {
			return 0, fmt.Errorf("failed to list threads: %w", err)
		}
		if len(threads) == 0 {
			return total, nil
		}

		for _, t := range threads {
			count, err := s.UnreadCount(ctx, t.ID, userID)
			if err != nil {
				return 0, err
			}
			total += count
		}

		if len(threads) < 100 {
			return total, nil
		}
		last := threads[len(threads)-1]
		at := last.CreatedAt
		if last.LastMessageAt != nil {
			at = *last.LastMessageAt
		}
		cursor = repository.Cursor{At: at, ID: last.ID}
	}
}

// SetMuted toggles the member's per-thread mute; muted members still read the
// thread but the routing engine skips them.
func (s *Service) SetMuted(ctx context.Context, threadID, userID uuid.UUID, muted bool) (*model.ThreadMember, error) {
	member, err := s.threads.GetMember(ctx, threadID, userID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotAMember(userID.String())
		}
		return nil, err
	}
	member.Muted = muted
	if err := s.threads.UpdateMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// SetNotificationsEnabled toggles per-thread notification delivery for the member.
func (s *Service) SetNotificationsEnabled(ctx context.Context, threadID, userID uuid.UUID, enabled bool) (*model.ThreadMember, error) {
	member, err := s.threads.GetMember(ctx, threadID, userID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotAMember(userID.String())
		}
		return nil, err
	}
	member.NotificationsEnabled = enabled
	if err := s.threads.UpdateMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}
