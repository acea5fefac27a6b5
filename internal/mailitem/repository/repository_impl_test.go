package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mailroom/internal/mailitem/domain"
	"github.com/smallbiznis/mailroom/internal/testutil/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListNeedingFollowUpExcludesResolved(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	r := Provide()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	statuses := []string{
		domain.StatusReceived,
		domain.StatusNotified,
		domain.StatusPickedUp,
		domain.StatusForwarded,
		domain.StatusScanned,
		domain.StatusAbandoned,
		domain.StatusAbandonedPackage,
	}
	for i, status := range statuses {
		require.NoError(t, r.Insert(ctx, db, &domain.MailItem{
			ID:           snowflake.ID(i + 1),
			UserID:       "user-a",
			ContactID:    7,
			ItemType:     domain.ItemTypeLetter,
			Status:       status,
			ReceivedDate: now.Add(time.Duration(i) * time.Minute),
			Quantity:     1,
			CreatedAt:    now,
			UpdatedAt:    now,
		}))
	}
	require.NoError(t, r.Insert(ctx, db, &domain.MailItem{
		ID: 100, UserID: "user-b", ContactID: 8, ItemType: domain.ItemTypePackage,
		Status: domain.StatusReceived, ReceivedDate: now, Quantity: 1, CreatedAt: now, UpdatedAt: now,
	}))

	items, err := r.ListNeedingFollowUp(ctx, db, "user-a", nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.StatusReceived, items[0].Status)
	assert.Equal(t, domain.StatusNotified, items[1].Status)

	contactID := snowflake.ID(8)
	none, err := r.ListNeedingFollowUp(ctx, db, "user-a", &contactID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMarkNotified(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	r := Provide()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, status := range []string{domain.StatusReceived, domain.StatusNotified} {
		require.NoError(t, r.Insert(ctx, db, &domain.MailItem{
			ID: snowflake.ID(i + 1), UserID: "user-a", ContactID: 7, ItemType: domain.ItemTypeLetter,
			Status: status, ReceivedDate: now, Quantity: 1, CreatedAt: now, UpdatedAt: now,
		}))
	}

	notifiedAt := now.Add(48 * time.Hour)
	rows, err := r.MarkNotified(ctx, db, "user-a", []snowflake.ID{1, 2}, notifiedAt)
	require.NoError(t, err)
	assert.EqualValues(t, 2, rows)

	item, err := r.FindByID(ctx, db, "user-a", 1)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, domain.StatusNotified, item.Status)
	require.NotNil(t, item.LastNotified)
	assert.True(t, item.LastNotified.Equal(notifiedAt))

	rows, err = r.MarkNotified(ctx, db, "user-b", []snowflake.ID{1}, notifiedAt)
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows)
}
