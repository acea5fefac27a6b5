package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mailroom/internal/notification/domain"
	"gorm.io/gorm"
)

const defaultHistoryLimit = 50

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, log *domain.NotificationLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notification_logs (id, user_id, contact_id, message_id, recipient, subject, variables, sent_by, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID,
		log.UserID,
		log.ContactID,
		log.MessageID,
		log.Recipient,
		log.Subject,
		log.Variables,
		log.SentBy,
		log.SentAt,
	).Error
}

func (r *repo) ListByContact(ctx context.Context, db *gorm.DB, userID string, contactID snowflake.ID, limit int) ([]domain.NotificationLog, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	var logs []domain.NotificationLog
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, contact_id, message_id, recipient, subject, variables, sent_by, sent_at
		 FROM notification_logs
		 WHERE user_id = ? AND contact_id = ?
		 ORDER BY sent_at DESC, id DESC
		 LIMIT ?`,
		userID,
		contactID,
		limit,
	).Scan(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
