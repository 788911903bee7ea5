package thread

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studiokit/community-api/internal/model"
	"github.com/studiokit/community-api/internal/repository"
	apperrors "github.com/studiokit/community-api/pkg/errors"
)

const DefaultPageSize = 20

type Service struct {
	repo repository.ThreadRepository
}

func NewService(repo repository.ThreadRepository) *Service {
	return &Service{repo: repo}
}

// CreateThread creates a thread and its initial owner membership for the
// creator. Auto-created threads (scheduling events) go through here too.
func (s *Service) CreateThread(ctx context.Context, organizationID uuid.UUID, kind model.ThreadKind, title string, visibility model.ThreadVisibility, creatorID uuid.UUID, contextID *uuid.UUID) (*model.Thread, error) {
	if !kind.AllowsVisibility(visibility) {
		return nil, apperrors.InvalidVisibility(fmt.Sprintf("%s threads cannot have visibility %s", kind, visibility))
	}

	now := time.Now()
	thread := &model.Thread{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		Kind:           kind,
		Title:          title,
		ContextID:      contextID,
		Visibility:     visibility,
		CreatedBy:      creatorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, thread); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}

	owner := &model.ThreadMember{
		ThreadID:             thread.ID,
		UserID:               creatorID,
		Role:                 model.RoleOwner,
		JoinedAt:             now,
		NotificationsEnabled: true,
	}
	if err := s.repo.AddMember(ctx, owner); err != nil {
		return nil, fmt.Errorf("failed to create owner membership: %w", err)
	}

	return thread, nil
}

func (s *Service) GetThread(ctx context.Context, id uuid.UUID) (*model.Thread, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) AddMember(ctx context.Context, threadID, userID uuid.UUID, role model.MemberRole) (*model.ThreadMember, error) {
	thread, err := s.repo.Get(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread.Archived {
		return nil, apperrors.ThreadLocked("thread is archived")
	}

	member := &model.ThreadMember{
		ThreadID:             threadID,
		UserID:               userID,
		Role:                 role,
		JoinedAt:             time.Now(),
		NotificationsEnabled: true,
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *Service) RemoveMember(ctx context.Context, threadID, userID uuid.UUID) error {
	member, err := s.repo.GetMember(ctx, threadID, userID)
	if apperrors.HasCode(err, apperrors.ErrNotFound) {
		return nil // absent membership is a no-op
	}
	if err != nil {
		return err
	}

	if member.Role == model.RoleOwner {
		owners, err := s.repo.CountOwners(ctx, threadID)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return apperrors.LastOwner()
		}
	}

	return s.repo.RemoveMember(ctx, threadID, userID)
}

func (s *Service) SetLocked(ctx context.Context, threadID uuid.UUID, locked bool, byUserID uuid.UUID) error {
	member, err := s.repo.GetMember(ctx, threadID, byUserID)
	if apperrors.HasCode(err, apperrors.ErrNotFound) {
		return apperrors.Forbidden("only owners and moderators may lock threads")
	}
	if err != nil {
		return err
	}
	if !member.Role.CanModerate() {
		return apperrors.Forbidden("only owners and moderators may lock threads")
	}

	thread, err := s.repo.Get(ctx, threadID)
	if err != nil {
		return err
	}
	thread.Locked = locked
	return s.repo.Update(ctx, thread)
}

// SetArchived archives or unarchives a thread. Archival is owner-only and
// stops all new messages and memberships; threads are never hard-deleted.
func (s *Service) SetArchived(ctx context.Context, threadID uuid.UUID, archived bool, byUserID uuid.UUID) error {
	member, err := s.repo.GetMember(ctx, threadID, byUserID)
	if apperrors.HasCode(err, apperrors.ErrNotFound) {
		return apperrors.Forbidden("only owners may archive threads")
	}
	if err != nil {
		return err
	}
	if member.Role != model.RoleOwner {
		return apperrors.Forbidden("only owners may archive threads")
	}

	thread, err := s.repo.Get(ctx, threadID)
	if err != nil {
		return err
	}
	thread.Archived = archived
	return s.repo.Update(ctx, thread)
}

// ListThreadsForUser pages through the user's threads by most recent
// activity. The returned cursor restarts the listing where it stopped.
func (s *Service) ListThreadsForUser(ctx context.Context, userID, organizationID uuid.UUID, cursorToken string, limit int) (*model.ThreadPage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	cursor, err := repository.DecodeCursor(cursorToken)
	if err != nil {
		return nil, apperrors.BadRequest("invalid cursor", err)
	}

	threads, err := s.repo.ListForUser(ctx, userID, organizationID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	page := &model.ThreadPage{Threads: threads}
	if len(threads) == limit {
		last := threads[len(threads)-1]
		at := last.CreatedAt
		if last.LastMessageAt != nil {
			at = *last.LastMessageAt
		}
		page.NextCursor = repository.Cursor{At: at, ID: last.ID}.Encode()
	}
	return page, nil
}

func (s *Service) ListMembers(ctx context.Context, threadID uuid.UUID) ([]*model.ThreadMember, error) {
	return s.repo.ListMembers(ctx, threadID)
}
