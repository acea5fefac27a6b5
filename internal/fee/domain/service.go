package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateFeeRequest struct {
	MailItemID snowflake.ID
	ContactID  snowflake.ID
	UserID     string
}

type WaiveFeeRequest struct {
	FeeID   string
	Reason  string
	ActorID string
}

type MarkFeePaidRequest struct {
	FeeID           string
	PaymentMethod   string
	CollectedAmount *decimal.Decimal
	ActorID         string
}

type RecalculateRequest struct {
	UserID *string
	AsOf   *time.Time
}

// RecalculateSummary reports a bulk run. Row failures are counted in Errors.
type RecalculateSummary struct {
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

type Service interface {
	CreateFeeRecord(context.Context, CreateFeeRequest) (PackageFee, error)
	// CreateFeeRecordTx creates the fee inside the caller's transaction.
	CreateFeeRecordTx(context.Context, *gorm.DB, CreateFeeRequest) (PackageFee, error)
	GetFee(context.Context, string) (PackageFee, error)
	WaiveFee(context.Context, WaiveFeeRequest) (PackageFee, error)
	MarkFeePaid(context.Context, MarkFeePaidRequest) (PackageFee, error)
	RecalculateFee(context.Context, string) (PackageFee, error)
	RecalculateAll(context.Context, RecalculateRequest) (RecalculateSummary, error)
}

const MinWaiveReasonLength = 5

var (
	ErrInvalidWaiveReason     = errors.New("invalid_waive_reason")
	ErrInvalidPaymentMethod   = errors.New("invalid_payment_method")
	ErrInvalidCollectedAmount = errors.New("invalid_collected_amount")
	ErrInvalidID              = errors.New("invalid_fee_id")
	ErrInvalidMailItem        = errors.New("invalid_mail_item")
	ErrNotFound               = errors.New("fee_not_found")
	// ErrAlreadyProcessed covers fees that are paid, waived or missing.
	ErrAlreadyProcessed = errors.New("fee_already_processed")
)

func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidWaiveReason),
		errors.Is(err, ErrInvalidPaymentMethod),
		errors.Is(err, ErrInvalidCollectedAmount),
		errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrInvalidMailItem):
		return true
	default:
		return false
	}
}
