package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mailroom/internal/mailitem/domain"
	"gorm.io/gorm"
)

const mailItemColumns = `id, user_id, contact_id, item_type, status, received_date, pickup_date,
	last_notified, quantity, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, item *domain.MailItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO mail_items (id, user_id, contact_id, item_type, status, received_date, pickup_date,
		 last_notified, quantity, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.UserID,
		item.ContactID,
		item.ItemType,
		item.Status,
		item.ReceivedDate,
		item.PickupDate,
		item.LastNotified,
		item.Quantity,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (*domain.MailItem, error) {
	var item domain.MailItem
	err := db.WithContext(ctx).Raw(
		`SELECT `+mailItemColumns+` FROM mail_items WHERE user_id = ? AND id = ?`,
		userID,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) UpdateType(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID, itemType string, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE mail_items SET item_type = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		itemType,
		at,
		userID,
		id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID, status string, pickupDate *time.Time, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE mail_items SET status = ?, pickup_date = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		status,
		pickupDate,
		at,
		userID,
		id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ListNeedingFollowUp(ctx context.Context, db *gorm.DB, userID string, contactID *snowflake.ID) ([]domain.MailItem, error) {
	query := `SELECT ` + mailItemColumns + ` FROM mail_items
		 WHERE user_id = ? AND status NOT IN ? AND status NOT LIKE ?`
	args := []any{userID, domain.ResolvedStatuses, "%" + domain.StatusAbandoned + "%"}
	if contactID != nil {
		query += ` AND contact_id = ?`
		args = append(args, *contactID)
	}
	query += ` ORDER BY received_date ASC, id ASC`

	var items []domain.MailItem
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// MarkNotified stamps last_notified and promotes Received items to Notified.
func (r *repo) MarkNotified(ctx context.Context, db *gorm.DB, userID string, ids []snowflake.ID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE mail_items
		 SET last_notified = ?,
		     status = CASE WHEN status = ? THEN ? ELSE status END,
		     updated_at = ?
		 WHERE user_id = ? AND id IN ?`,
		at,
		domain.StatusReceived,
		domain.StatusNotified,
		at,
		userID,
		ids,
	)
	return res.RowsAffected, res.Error
}
