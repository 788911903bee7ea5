package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/studiokit/community-api/internal/model"
)

// All repository interfaces in one file
type (
	// ThreadRepository owns thread records and memberships.
	ThreadRepository interface {
		Create(ctx context.Context, thread *model.Thread) error
		Get(ctx context.Context, id uuid.UUID) (*model.Thread, error)
		Update(ctx context.Context, thread *model.Thread) error
		SetLastMessageAt(ctx context.Context, id uuid.UUID, at time.Time) error
		ListForUser(ctx context.Context, userID, organizationID uuid.UUID, cursor Cursor, limit int) ([]*model.Thread, error)

		AddMember(ctx context.Context, member *model.ThreadMember) error
		GetMember(ctx context.Context, threadID, userID uuid.UUID) (*model.ThreadMember, error)
		UpdateMember(ctx context.Context, member *model.ThreadMember) error
		RemoveMember(ctx context.Context, threadID, userID uuid.UUID) error
		ListMembers(ctx context.Context, threadID uuid.UUID) ([]*model.ThreadMember, error)
		CountOwners(ctx context.Context, threadID uuid.UUID) (int, error)

		// AdvanceLastRead moves the member's read cursor forward only;
		// a value at or behind the current cursor is a no-op.
		AdvanceLastRead(ctx context.Context, threadID, userID uuid.UUID, at time.Time) error
	}

	// MessageRepository owns the append-only message sequence of each thread.
	MessageRepository interface {
		Create(ctx context.Context, msg *model.Message) error
		Get(ctx context.Context, id uuid.UUID) (*model.Message, error)
		Update(ctx context.Context, msg *model.Message) error
		List(ctx context.Context, threadID uuid.UUID, cursor Cursor, limit int, includeDeleted bool) ([]*model.Message, error)
		LatestCreatedAt(ctx context.Context, threadID uuid.UUID) (*time.Time, error)
		CountUnread(ctx context.Context, threadID, userID uuid.UUID, after *time.Time) (int, error)
	}

	// NotificationRepository is the append-only sink for delivery records;
	// inserts happen concurrently from fan-out goroutines.
	NotificationRepository interface {
		Create(ctx context.Context, n *model.Notification) error
		Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
		MarkRead(ctx context.Context, id, userID uuid.UUID) error
		ListForUser(ctx context.Context, userID uuid.UUID, cursor Cursor, limit int) ([]*model.Notification, error)
	}

	// PreferenceRepository stores per-user notification preferences.
	PreferenceRepository interface {
		Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error)
		Save(ctx context.Context, pref *model.NotificationPreference) error
	}
)
