package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AttachmentRef points at an externally stored attachment; the core never
// touches attachment bytes.
type AttachmentRef struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	MimeType string    `json:"mime_type"`
	SizeByte int64     `json:"size_bytes"`
	URL      string    `json:"url"`
}

// AttachmentList stores attachment refs as a JSONB column.
type AttachmentList []AttachmentRef

func (a AttachmentList) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *AttachmentList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("unsupported attachment list type %T", src)
	}
}

type Message struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	ThreadID    uuid.UUID       `db:"thread_id" json:"thread_id"`
	SenderID    uuid.UUID       `db:"sender_id" json:"sender_id"`
	Body        string          `db:"body" json:"body"`
	Attachments AttachmentList  `db:"attachments" json:"attachments,omitempty"`
	ReplyToID   *uuid.UUID      `db:"reply_to_id" json:"reply_to_id,omitempty"`
	EditedAt    *time.Time      `db:"edited_at" json:"edited_at,omitempty"`
	DeletedAt   *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
	Flagged     bool            `db:"flagged" json:"flagged"`
	FlagReason  *string         `db:"flag_reason" json:"flag_reason,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Deleted reports whether the message has been soft-deleted.
func (m *Message) Deleted() bool {
	return m.DeletedAt != nil
}

// Before reports the total order of messages within a thread:
// (created_at, id) with the id breaking same-instant ties.
func (m *Message) Before(other *Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID.String() < other.ID.String()
	}
	return m.CreatedAt.Before(other.CreatedAt)
}

type PostMessageRequest struct {
	Body        string          `json:"body" binding:"required,max=10000"`
	Attachments []AttachmentRef `json:"attachments"`
	ReplyToID   *uuid.UUID      `json:"reply_to_id"`
}

type EditMessageRequest struct {
	Body string `json:"body" binding:"required,max=10000"`
}

type FlagMessageRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// MessagePage is one page of a thread's messages in (created_at, id) order.
type MessagePage struct {
	Messages   []*Message `json:"messages"`
	NextCursor string     `json:"next_cursor,omitempty"`
}
