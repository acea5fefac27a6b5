package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type FeeStatus string

const (
	FeeStatusPending FeeStatus = "pending"
	FeeStatusPaid    FeeStatus = "paid"
	FeeStatusWaived  FeeStatus = "waived"
)

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodVenmo  PaymentMethod = "venmo"
	PaymentMethodZelle  PaymentMethod = "zelle"
	PaymentMethodPaypal PaymentMethod = "paypal"
	PaymentMethodCheck  PaymentMethod = "check"
	PaymentMethodOther  PaymentMethod = "other"
)

var paymentMethods = map[PaymentMethod]struct{}{
	PaymentMethodCash:   {},
	PaymentMethodCard:   {},
	PaymentMethodVenmo:  {},
	PaymentMethodZelle:  {},
	PaymentMethodPaypal: {},
	PaymentMethodCheck:  {},
	PaymentMethodOther:  {},
}

// ParsePaymentMethod accepts the known methods in any case.
func ParsePaymentMethod(value string) (PaymentMethod, bool) {
	method := PaymentMethod(strings.ToLower(strings.TrimSpace(value)))
	_, ok := paymentMethods[method]
	return method, ok
}

// PackageFee is the storage fee of one package-type mail item.
// FeeAmount only moves while FeeStatus is pending.
type PackageFee struct {
	ID               snowflake.ID        `gorm:"primaryKey" json:"id"`
	MailItemID       snowflake.ID        `gorm:"not null;uniqueIndex" json:"mail_item_id"`
	ContactID        snowflake.ID        `gorm:"not null;index" json:"contact_id"`
	UserID           string              `gorm:"not null;index" json:"user_id"`
	FeeAmount        decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"fee_amount"`
	DaysCharged      int                 `gorm:"not null" json:"days_charged"`
	DailyRate        decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"daily_rate"`
	GracePeriodDays  int                 `gorm:"not null" json:"grace_period_days"`
	FeeStatus        FeeStatus           `gorm:"type:text;not null" json:"fee_status"`
	PaidDate         *time.Time          `json:"paid_date,omitempty"`
	WaivedDate       *time.Time          `json:"waived_date,omitempty"`
	WaiveReason      *string             `json:"waive_reason,omitempty"`
	WaivedBy         *string             `json:"waived_by,omitempty"`
	PaymentMethod    *string             `json:"payment_method,omitempty"`
	CollectedAmount  decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"collected_amount"`
	PaidBy           *string             `json:"paid_by,omitempty"`
	LastCalculatedAt *time.Time          `json:"last_calculated_at,omitempty"`
	CreatedAt        time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (f PackageFee) IsPending() bool {
	return f.FeeStatus == FeeStatusPending
}

// Policy returns the rate and grace period fixed on the fee at creation.
func (f PackageFee) Policy() Policy {
	return Policy{DailyRate: f.DailyRate, GracePeriodDays: f.GracePeriodDays}
}

// PendingFee is a pending fee joined with the mail item it charges for.
type PendingFee struct {
	PackageFee   `gorm:"embedded"`
	ItemStatus   string    `gorm:"column:item_status"`
	ReceivedDate time.Time `gorm:"column:received_date"`
}

// Transition is a terminal state change applied to a pending fee.
type Transition struct {
	Status FeeStatus
	At     time.Time
	Actor  string

	WaiveReason string

	PaymentMethod   PaymentMethod
	CollectedAmount *decimal.Decimal
}
