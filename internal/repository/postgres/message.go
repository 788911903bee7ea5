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

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages (
			id, thread_id, sender_id, body, attachments, reply_to_id,
			edited_at, deleted_at, flagged, flag_reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		msg.ID,
		msg.ThreadID,
		msg.SenderID,
		msg.Body,
		msg.Attachments,
		msg.ReplyToID,
		msg.EditedAt,
		msg.DeletedAt,
		msg.Flagged,
		msg.FlagReason,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *messageRepository) Get(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	query := `
		SELECT id, thread_id, sender_id, body, attachments, reply_to_id,
			   edited_at, deleted_at, flagged, flag_reason, created_at
		FROM messages
		WHERE id = $1
	`
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("message", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

func (r *messageRepository) Update(ctx context.Context, msg *model.Message) error {
	query := `
		UPDATE messages
		SET body = $1, edited_at = $2, deleted_at = $3, flagged = $4, flag_reason = $5
		WHERE id = $6
	`
	result, err := r.db.ExecContext(ctx, query,
		msg.Body,
		msg.EditedAt,
		msg.DeletedAt,
		msg.Flagged,
		msg.FlagReason,
		msg.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("message", nil)
	}
	return nil
}

func (r *messageRepository) List(ctx context.Context, threadID uuid.UUID, cursor repository.Cursor, limit int, includeDeleted bool) ([]*model.Message, error) {
	// Keyset on (created_at, id) ascending: stable total order per thread.
	query := `
		SELECT id, thread_id, sender_id, body, attachments, reply_to_id,
			   edited_at, deleted_at, flagged, flag_reason, created_at
		FROM messages
		WHERE thread_id = $1
	`
	args := []interface{}{threadID}
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	if !cursor.IsZero() {
		query += fmt.Sprintf(` AND (created_at, id) > ($%d, $%d)`, len(args)+1, len(args)+2)
		args = append(args, cursor.At, cursor.ID)
	}
	query += fmt.Sprintf(` ORDER BY created_at, id LIMIT %d`, limit)

	var messages []*model.Message
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func (r *messageRepository) LatestCreatedAt(ctx context.Context, threadID uuid.UUID) (*time.Time, error) {
	query := `SELECT MAX(created_at) FROM messages WHERE thread_id = $1`
	var latest sql.NullTime
	if err := r.db.GetContext(ctx, &latest, query, threadID); err != nil {
		return nil, fmt.Errorf("failed to get latest message time: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, threadID, userID uuid.UUID, after *time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM messages
		WHERE thread_id = $1
		  AND sender_id <> $2
		  AND deleted_at IS NULL
	`
	args := []interface{}{threadID, userID}
	if after != nil {
		query += ` AND created_at > $3`
		args = append(args, *after)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}
