package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/studiokit/community-api/internal/repository"
)

type threadRepository struct {
	db *sqlx.DB
}

type messageRepository struct {
	db *sqlx.DB
}

type notificationRepository struct {
	db *sqlx.DB
}

type preferenceRepository struct {
	db *sqlx.DB
}

func NewThreadRepository(db *sqlx.DB) repository.ThreadRepository {
	return &threadRepository{db: db}
}

func NewMessageRepository(db *sqlx.DB) repository.MessageRepository {
	return &messageRepository{db: db}
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func NewPreferenceRepository(db *sqlx.DB) repository.PreferenceRepository {
	return &preferenceRepository{db: db}
}
