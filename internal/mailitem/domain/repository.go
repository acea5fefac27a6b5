package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, item *MailItem) error
	FindByID(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (*MailItem, error)
	UpdateType(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID, itemType string, at time.Time) (int64, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID, status string, pickupDate *time.Time, at time.Time) (int64, error)
	// ListNeedingFollowUp returns unresolved items. Notification recency is
	// filtered by the caller.
	ListNeedingFollowUp(ctx context.Context, db *gorm.DB, userID string, contactID *snowflake.ID) ([]MailItem, error)
	MarkNotified(ctx context.Context, db *gorm.DB, userID string, ids []snowflake.ID, at time.Time) (int64, error)
}
