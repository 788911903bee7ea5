package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studiokit/community-api/internal/model"
	"github.com/studiokit/community-api/internal/repository"
	apperrors "github.com/studiokit/community-api/pkg/errors"
)

func (r *threadRepository) Create(ctx context.Context, thread *model.Thread) error {
	query := `
		INSERT INTO threads (
			id, organization_id, kind, title, context_id, visibility,
			locked, archived, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		thread.ID,
		thread.OrganizationID,
		thread.Kind,
		thread.Title,
		thread.ContextID,
		thread.Visibility,
		thread.Locked,
		thread.Archived,
		thread.CreatedBy,
		thread.CreatedAt,
		thread.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}
	return nil
}

func (r *threadRepository) Get(ctx context.Context, id uuid.UUID) (*model.Thread, error) {
	query := `
		SELECT id, organization_id, kind, title, context_id, visibility,
			   locked, archived, created_by, created_at, updated_at, last_message_at
		FROM threads
		WHERE id = $1
	`
	var thread model.Thread
	err := r.db.GetContext(ctx, &thread, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("thread", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	return &thread, nil
}

func (r *threadRepository) Update(ctx context.Context, thread *model.Thread) error {
	query := `
		UPDATE threads
		SET title = $1, visibility = $2, locked = $3, archived = $4, updated_at = $5
		WHERE id = $6
	`
	thread.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		thread.Title,
		thread.Visibility,
		thread.Locked,
		thread.Archived,
		thread.UpdatedAt,
		thread.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update thread: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("thread", nil)
	}
	return nil
}

func (r *threadRepository) SetLastMessageAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE threads
		SET last_message_at = $1, updated_at = $1
		WHERE id = $2 AND (last_message_at IS NULL OR last_message_at < $1)
	`
	if _, err := r.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to update thread last message time: %w", err)
	}
	return nil
}

func (r *threadRepository) ListForUser(ctx context.Context, userID, organizationID uuid.UUID, cursor repository.Cursor, limit int) ([]*model.Thread, error) {
	// Keyset on (last_message_at, id) descending; threads without messages
	// sort by creation time.
	query := `
		SELECT t.id, t.organization_id, t.kind, t.title, t.context_id, t.visibility,
			   t.locked, t.archived, t.created_by, t.created_at, t.updated_at, t.last_message_at
		FROM threads t
		JOIN thread_members m ON m.thread_id = t.id
		WHERE m.user_id = $1 AND t.organization_id = $2
	`
	args := []interface{}{userID, organizationID}
	if !cursor.IsZero() {
		query += ` AND (COALESCE(t.last_message_at, t.created_at), t.id) < ($3, $4)`
		args = append(args, cursor.At, cursor.ID)
	}
	query += fmt.Sprintf(` ORDER BY COALESCE(t.last_message_at, t.created_at) DESC, t.id DESC LIMIT %d`, limit)

	var threads []*model.Thread
	if err := r.db.SelectContext(ctx, &threads, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	return threads, nil
}

func (r *threadRepository) AddMember(ctx context.Context, member *model.ThreadMember) error {
	query := `
		INSERT INTO thread_members (
			thread_id, user_id, role, joined_at, last_read_at, muted, notifications_enabled
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (thread_id, user_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		member.ThreadID,
		member.UserID,
		member.Role,
		member.JoinedAt,
		member.LastReadAt,
		member.Muted,
		member.NotificationsEnabled,
	)
	if err != nil {
		return fmt.Errorf("failed to add thread member: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.DuplicateMember(member.UserID.String())
	}
	return nil
}

func (r *threadRepository) GetMember(ctx context.Context, threadID, userID uuid.UUID) (*model.ThreadMember, error) {
	query := `
		SELECT thread_id, user_id, role, joined_at, last_read_at, muted, notifications_enabled
		FROM thread_members
		WHERE thread_id = $1 AND user_id = $2
	`
	var member model.ThreadMember
	err := r.db.GetContext(ctx, &member, query, threadID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("thread member", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread member: %w", err)
	}
	return &member, nil
}

func (r *threadRepository) UpdateMember(ctx context.Context, member *model.ThreadMember) error {
	query := `
		UPDATE thread_members
		SET role = $1, muted = $2, notifications_enabled = $3
		WHERE thread_id = $4 AND user_id = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		member.Role,
		member.Muted,
		member.NotificationsEnabled,
		member.ThreadID,
		member.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update thread member: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("thread member", nil)
	}
	return nil
}

func (r *threadRepository) RemoveMember(ctx context.Context, threadID, userID uuid.UUID) error {
	query := `DELETE FROM thread_members WHERE thread_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, threadID, userID); err != nil {
		return fmt.Errorf("failed to remove thread member: %w", err)
	}
	return nil
}

func (r *threadRepository) ListMembers(ctx context.Context, threadID uuid.UUID) ([]*model.ThreadMember, error) {
	query := `
		SELECT thread_id, user_id, role, joined_at, last_read_at, muted, notifications_enabled
		FROM thread_members
		WHERE thread_id = $1
		ORDER BY joined_at
	`
	var members []*model.ThreadMember
	if err := r.db.SelectContext(ctx, &members, query, threadID); err != nil {
		return nil, fmt.Errorf("failed to list thread members: %w", err)
	}
	return members, nil
}

func (r *threadRepository) CountOwners(ctx context.Context, threadID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM thread_members WHERE thread_id = $1 AND role = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, threadID, model.RoleOwner); err != nil {
		return 0, fmt.Errorf("failed to count owners: %w", err)
	}
	return count, nil
}

func (r *threadRepository) AdvanceLastRead(ctx context.Context, threadID, userID uuid.UUID, at time.Time) error {
	// The WHERE clause is the monotonicity guard: stale or out-of-order
	// markRead calls change nothing.
	query := `
		UPDATE thread_members
		SET last_read_at = $1
		WHERE thread_id = $2 AND user_id = $3
		  AND (last_read_at IS NULL OR last_read_at < $1)
	`
	if _, err := r.db.ExecContext(ctx, query, at, threadID, userID); err != nil {
		return fmt.Errorf("failed to advance read cursor: %w", err)
	}
	return nil
}
