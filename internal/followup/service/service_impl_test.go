package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/mailroom/internal/calendar"
	"github.com/smallbiznis/mailroom/internal/clock"
	"github.com/smallbiznis/mailroom/internal/config"
	contactrepo "github.com/smallbiznis/mailroom/internal/contact/repository"
	feerepo "github.com/smallbiznis/mailroom/internal/fee/repository"
	"github.com/smallbiznis/mailroom/internal/followup/domain"
	mailitemrepo "github.com/smallbiznis/mailroom/internal/mailitem/repository"
	"github.com/smallbiznis/mailroom/internal/testutil/dbtest"
	"github.com/smallbiznis/mailroom/pkg/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var now = time.Date(2025, 6, 30, 11, 0, 0, 0, calendar.Location())

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	exec := func(sql string, args ...any) {
		require.NoError(t, db.Exec(sql, args...).Error)
	}

	exec(`INSERT INTO contacts (id, user_id, name, email, mailbox_number, created_at, updated_at) VALUES
		(1, 'user-a', 'Ada', 'ada@example.com', '101', ?, ?),
		(2, 'user-a', 'Grace', 'grace@example.com', '102', ?, ?),
		(3, 'user-a', 'Edsger', 'edsger@example.com', '103', ?, ?)`,
		now, now, now, now, now, now)

	item := func(id, contactID int64, itemType, status string, received time.Time, lastNotified *time.Time) {
		exec(`INSERT INTO mail_items (id, user_id, contact_id, item_type, status, received_date, last_notified, quantity, created_at, updated_at)
			VALUES (?, 'user-a', ?, ?, ?, ?, ?, 1, ?, ?)`,
			id, contactID, itemType, status, received, lastNotified, received, received)
	}
	recent := now.AddDate(0, 0, -1)

	// Ada: new package with a pending fee.
	item(10, 1, "Package", "Received", now.AddDate(0, 0, -2), nil)
	exec(`INSERT INTO package_fees (id, mail_item_id, contact_id, user_id, fee_amount, days_charged, daily_rate,
		grace_period_days, fee_status, created_at, updated_at)
		VALUES (100, 10, 1, 'user-a', '2.00', 2, '2.00', 1, 'pending', ?, ?)`, now, now)

	// Grace: an old letter plus an abandoned package.
	item(20, 2, "Letter", "Notified", now.AddDate(0, 0, -29), nil)
	item(21, 2, "Package", "Abandoned Package", now.AddDate(0, 0, -60), nil)

	// Edsger: recently notified, so not due yet.
	item(30, 3, "Letter", "Notified", now.AddDate(0, 0, -8), &recent)
}

func newService(t *testing.T) (*Service, context.Context) {
	t.Helper()
	db := dbtest.Open(t)
	seed(t, db)
	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Clock:     clock.NewFakeClock(now),
		Fees:      config.NewStaticFeeConfigHolder(config.DefaultFeeConfig()),
		MailItems: mailitemrepo.Provide(),
		FeeRepo:   feerepo.Provide(),
		Contacts:  contactrepo.Provide(),
	}).(*Service)
	return svc, tenantctx.WithUserID(context.Background(), "user-a")
}

func TestListFollowUps(t *testing.T) {
	svc, ctx := newService(t)

	groups, err := svc.ListFollowUps(ctx, domain.ListFollowUpsRequest{})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "Ada", groups[0].Contact.Name)
	assert.Equal(t, "2.00", groups[0].TotalFees.StringFixed(2))
	assert.InDelta(t, 1000+2+2, groups[0].UrgencyScore, 1e-9)

	assert.Equal(t, "Grace", groups[1].Contact.Name)
	assert.Len(t, groups[1].Letters, 1)
	assert.Empty(t, groups[1].Packages)
	assert.InDelta(t, 100+29, groups[1].UrgencyScore, 1e-9)
}

func TestListFollowUpsRequiresTenant(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.ListFollowUps(context.Background(), domain.ListFollowUpsRequest{})
	assert.ErrorIs(t, err, tenantctx.ErrMissingUserID)
}

func TestContactGroupIgnoresRecency(t *testing.T) {
	svc, ctx := newService(t)

	group, err := svc.ContactGroup(ctx, "3", now)
	require.NoError(t, err)
	assert.Equal(t, "Edsger", group.Contact.Name)
	assert.Len(t, group.Letters, 1)

	_, err = svc.ContactGroup(ctx, "999", now)
	assert.ErrorIs(t, err, domain.ErrContactNotFound)

	_, err = svc.ContactGroup(ctx, "x", now)
	assert.ErrorIs(t, err, domain.ErrInvalidContact)
}
