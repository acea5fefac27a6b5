package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, log *NotificationLog) error
	ListByContact(ctx context.Context, db *gorm.DB, userID string, contactID snowflake.ID, limit int) ([]NotificationLog, error)
}
