package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mailroom/internal/fee/domain"
	"gorm.io/gorm"
)

const feeColumns = `id, mail_item_id, contact_id, user_id, fee_amount, days_charged, daily_rate,
	grace_period_days, fee_status, paid_date, waived_date, waive_reason, waived_by, payment_method,
	collected_amount, paid_by, last_calculated_at, created_at, updated_at`

const joinedFeeColumns = `f.id, f.mail_item_id, f.contact_id, f.user_id, f.fee_amount, f.days_charged,
	f.daily_rate, f.grace_period_days, f.fee_status, f.paid_date, f.waived_date, f.waive_reason,
	f.waived_by, f.payment_method, f.collected_amount, f.paid_by, f.last_calculated_at, f.created_at,
	f.updated_at, m.status AS item_status, m.received_date AS received_date`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, fee *domain.PackageFee) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO package_fees (id, mail_item_id, contact_id, user_id, fee_amount, days_charged,
		 daily_rate, grace_period_days, fee_status, last_calculated_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fee.ID,
		fee.MailItemID,
		fee.ContactID,
		fee.UserID,
		fee.FeeAmount,
		fee.DaysCharged,
		fee.DailyRate,
		fee.GracePeriodDays,
		fee.FeeStatus,
		fee.LastCalculatedAt,
		fee.CreatedAt,
		fee.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (*domain.PackageFee, error) {
	var fee domain.PackageFee
	err := db.WithContext(ctx).Raw(
		`SELECT `+feeColumns+` FROM package_fees WHERE user_id = ? AND id = ?`,
		userID,
		id,
	).Scan(&fee).Error
	if err != nil {
		return nil, err
	}
	if fee.ID == 0 {
		return nil, nil
	}
	return &fee, nil
}

func (r *repo) FindByMailItemID(ctx context.Context, db *gorm.DB, mailItemID snowflake.ID) (*domain.PackageFee, error) {
	var fee domain.PackageFee
	err := db.WithContext(ctx).Raw(
		`SELECT `+feeColumns+` FROM package_fees WHERE mail_item_id = ?`,
		mailItemID,
	).Scan(&fee).Error
	if err != nil {
		return nil, err
	}
	if fee.ID == 0 {
		return nil, nil
	}
	return &fee, nil
}

func (r *repo) FindPendingWithItem(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (*domain.PendingFee, error) {
	var row domain.PendingFee
	err := db.WithContext(ctx).Raw(
		`SELECT `+joinedFeeColumns+`
		 FROM package_fees f
		 JOIN mail_items m ON m.id = f.mail_item_id
		 WHERE f.user_id = ? AND f.id = ? AND f.fee_status = ?`,
		userID,
		id,
		domain.FeeStatusPending,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) TransitionPending(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID, t domain.Transition) (int64, error) {
	var res *gorm.DB
	switch t.Status {
	case domain.FeeStatusWaived:
		res = db.WithContext(ctx).Exec(
			`UPDATE package_fees
			 SET fee_status = ?, waived_date = ?, waive_reason = ?, waived_by = ?, updated_at = ?
			 WHERE id = ? AND user_id = ? AND fee_status = ?`,
			domain.FeeStatusWaived,
			t.At,
			t.WaiveReason,
			t.Actor,
			t.At,
			id,
			userID,
			domain.FeeStatusPending,
		)
	case domain.FeeStatusPaid:
		var collected decimal.NullDecimal
		if t.CollectedAmount != nil {
			collected = decimal.NewNullDecimal(t.CollectedAmount.Round(2))
		}
		res = db.WithContext(ctx).Exec(
			`UPDATE package_fees
			 SET fee_status = ?, paid_date = ?, payment_method = ?, collected_amount = ?, paid_by = ?, updated_at = ?
			 WHERE id = ? AND user_id = ? AND fee_status = ?`,
			domain.FeeStatusPaid,
			t.At,
			string(t.PaymentMethod),
			collected,
			t.Actor,
			t.At,
			id,
			userID,
			domain.FeeStatusPending,
		)
	default:
		return 0, fmt.Errorf("unsupported fee transition %q", t.Status)
	}
	return res.RowsAffected, res.Error
}

func (r *repo) ListPendingWithItems(ctx context.Context, db *gorm.DB, userID *string) ([]domain.PendingFee, error) {
	query := `SELECT ` + joinedFeeColumns + `
		 FROM package_fees f
		 JOIN mail_items m ON m.id = f.mail_item_id
		 WHERE f.fee_status = ?`
	args := []any{domain.FeeStatusPending}
	if userID != nil {
		query += ` AND f.user_id = ?`
		args = append(args, *userID)
	}
	query += ` ORDER BY f.id ASC`

	var rows []domain.PendingFee
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateCalculation sets the computed amount. Fees that left pending are untouched.
func (r *repo) UpdateCalculation(ctx context.Context, db *gorm.DB, id snowflake.ID, calc domain.Calculation, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE package_fees
		 SET fee_amount = ?, days_charged = ?, last_calculated_at = ?, updated_at = ?
		 WHERE id = ? AND fee_status = ?`,
		calc.FeeAmount,
		calc.DaysCharged,
		at,
		at,
		id,
		domain.FeeStatusPending,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ListPendingByUser(ctx context.Context, db *gorm.DB, userID string, contactID *snowflake.ID) ([]domain.PackageFee, error) {
	query := `SELECT ` + feeColumns + ` FROM package_fees WHERE user_id = ? AND fee_status = ?`
	args := []any{userID, domain.FeeStatusPending}
	if contactID != nil {
		query += ` AND contact_id = ?`
		args = append(args, *contactID)
	}
	query += ` ORDER BY id ASC`

	var fees []domain.PackageFee
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&fees).Error; err != nil {
		return nil, err
	}
	return fees, nil
}
