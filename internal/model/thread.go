package model

import (
	"time"

	"github.com/google/uuid"
)

type ThreadKind string

const (
	ThreadKindDirect       ThreadKind = "direct"
	ThreadKindClass        ThreadKind = "class"
	ThreadKindRetreat      ThreadKind = "retreat"
	ThreadKindAnnouncement ThreadKind = "announcement"
	ThreadKindSupport      ThreadKind = "support"
)

type ThreadVisibility string

const (
	VisibilityOrg     ThreadVisibility = "org"
	VisibilityRoster  ThreadVisibility = "roster"
	VisibilityStaff   ThreadVisibility = "staff"
	VisibilityPrivate ThreadVisibility = "private"
)

type MemberRole string

const (
	RoleOwner     MemberRole = "owner"
	RoleModerator MemberRole = "moderator"
	RoleMember    MemberRole = "member"
)

// AllowedVisibilities defines which visibility levels each thread kind accepts.
// Direct threads are always private; announcements broadcast to the org or a roster.
var AllowedVisibilities = map[ThreadKind][]ThreadVisibility{
	ThreadKindDirect:       {VisibilityPrivate},
	ThreadKindClass:        {VisibilityRoster, VisibilityStaff, VisibilityPrivate},
	ThreadKindRetreat:      {VisibilityRoster, VisibilityStaff, VisibilityPrivate},
	ThreadKindAnnouncement: {VisibilityOrg, VisibilityRoster},
	ThreadKindSupport:      {VisibilityStaff, VisibilityPrivate},
}

func (k ThreadKind) AllowsVisibility(v ThreadVisibility) bool {
	for _, allowed := range AllowedVisibilities[k] {
		if allowed == v {
			return true
		}
	}
	return false
}

func (r MemberRole) CanModerate() bool {
	return r == RoleOwner || r == RoleModerator
}

type Thread struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	OrganizationID uuid.UUID        `db:"organization_id" json:"organization_id"`
	Kind           ThreadKind       `db:"kind" json:"kind"`
	Title          string           `db:"title" json:"title"`
	ContextID      *uuid.UUID       `db:"context_id" json:"context_id,omitempty"`
	Visibility     ThreadVisibility `db:"visibility" json:"visibility"`
	Locked         bool             `db:"locked" json:"locked"`
	Archived       bool             `db:"archived" json:"archived"`
	CreatedBy      uuid.UUID        `db:"created_by" json:"created_by"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
	LastMessageAt  *time.Time       `db:"last_message_at" json:"last_message_at,omitempty"`
}

type ThreadMember struct {
	ThreadID             uuid.UUID  `db:"thread_id" json:"thread_id"`
	UserID               uuid.UUID  `db:"user_id" json:"user_id"`
	Role                 MemberRole `db:"role" json:"role"`
	JoinedAt             time.Time  `db:"joined_at" json:"joined_at"`
	LastReadAt           *time.Time `db:"last_read_at" json:"last_read_at,omitempty"`
	Muted                bool       `db:"muted" json:"muted"`
	NotificationsEnabled bool       `db:"notifications_enabled" json:"notifications_enabled"`
}

type CreateThreadRequest struct {
	Kind       ThreadKind       `json:"kind" binding:"required,oneof=direct class retreat announcement support"`
	Title      string           `json:"title" binding:"required,max=200"`
	Visibility ThreadVisibility `json:"visibility" binding:"required,oneof=org roster staff private"`
	ContextID  *uuid.UUID       `json:"context_id"`
}

type AddMemberRequest struct {
	UserID uuid.UUID  `json:"user_id" binding:"required"`
	Role   MemberRole `json:"role" binding:"required,oneof=owner moderator member"`
}

type SetLockedRequest struct {
	Locked bool `json:"locked"`
}

type SetArchivedRequest struct {
	Archived bool `json:"archived"`
}

// ThreadPage is one page of a user's thread listing, newest activity first.
// Cursor is opaque to callers; empty means the listing is exhausted.
type ThreadPage struct {
	Threads    []*Thread `json:"threads"`
	NextCursor string    `json:"next_cursor,omitempty"`
}
