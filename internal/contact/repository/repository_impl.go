package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mailroom/internal/contact/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (*domain.Contact, error) {
	var contact domain.Contact
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, name, email, mailbox_number, created_at, updated_at
		 FROM contacts WHERE user_id = ? AND id = ?`,
		userID,
		id,
	).Scan(&contact).Error
	if err != nil {
		return nil, err
	}
	if contact.ID == 0 {
		return nil, nil
	}
	return &contact, nil
}

func (r *repo) ListByIDs(ctx context.Context, db *gorm.DB, userID string, ids []snowflake.ID) ([]domain.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var contacts []domain.Contact
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, name, email, mailbox_number, created_at, updated_at
		 FROM contacts WHERE user_id = ? AND id IN ?`,
		userID,
		ids,
	).Scan(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}
