package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, fee *PackageFee) error
	FindByID(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (*PackageFee, error)
	FindByMailItemID(ctx context.Context, db *gorm.DB, mailItemID snowflake.ID) (*PackageFee, error)
	FindPendingWithItem(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (*PendingFee, error)
	// TransitionPending applies t only while the fee is pending and returns
	// the affected row count.
	TransitionPending(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID, t Transition) (int64, error)
	ListPendingWithItems(ctx context.Context, db *gorm.DB, userID *string) ([]PendingFee, error)
	UpdateCalculation(ctx context.Context, db *gorm.DB, id snowflake.ID, calc Calculation, at time.Time) (int64, error)
	ListPendingByUser(ctx context.Context, db *gorm.DB, userID string, contactID *snowflake.ID) ([]PackageFee, error)
}
