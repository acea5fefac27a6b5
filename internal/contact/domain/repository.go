package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (*Contact, error)
	ListByIDs(ctx context.Context, db *gorm.DB, userID string, ids []snowflake.ID) ([]Contact, error)
}

var ErrNotFound = errors.New("contact_not_found")
