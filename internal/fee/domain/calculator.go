package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mailroom/internal/calendar"
)

const (
	DefaultGracePeriodDays = 1
)

var DefaultDailyRate = decimal.RequireFromString("2.00")

// Policy is the pricing applied to a single fee.
type Policy struct {
	DailyRate       decimal.Decimal
	GracePeriodDays int
}

func DefaultPolicy() Policy {
	return Policy{DailyRate: DefaultDailyRate, GracePeriodDays: DefaultGracePeriodDays}
}

// Calculation is the fee owed as of a point in time.
type Calculation struct {
	FeeAmount    decimal.Decimal `json:"fee_amount"`
	DaysCharged  int             `json:"days_charged"`
	BillableDays int             `json:"billable_days"`
}

// Calculate prices a package received at receivedDate as of asOf. Days are
// business calendar days, so days 0 through the grace period are free.
func Calculate(receivedDate time.Time, policy Policy, asOf time.Time) Calculation {
	days := calendar.DaysBetween(receivedDate, asOf)
	if days < 0 {
		days = 0
	}

	grace := policy.GracePeriodDays
	if grace < 0 {
		grace = 0
	}
	billable := days - grace
	if billable < 0 {
		billable = 0
	}

	amount := policy.DailyRate.Mul(decimal.NewFromInt(int64(billable))).Round(2)
	return Calculation{
		FeeAmount:    amount,
		DaysCharged:  days,
		BillableDays: billable,
	}
}
