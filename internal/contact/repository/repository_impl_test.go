package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mailroom/internal/testutil/dbtest"
	"github.com/stretchr/testify/require"
)

func TestContactRepositoryScopesByUser(t *testing.T) {
	db := dbtest.Open(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.Exec(
		`INSERT INTO contacts (id, user_id, name, email, mailbox_number, created_at, updated_at) VALUES
		 (1, 'user-a', 'Ada', 'ada@example.com', '101', ?, ?),
		 (2, 'user-a', 'Grace', 'grace@example.com', '102', ?, ?),
		 (3, 'user-b', 'Linus', 'linus@example.com', '201', ?, ?)`,
		now, now, now, now, now, now,
	).Error)

	r := Provide()
	ctx := context.Background()

	found, err := r.FindByID(ctx, db, "user-a", snowflake.ID(1))
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, "101", found.MailboxNumber)

	missing, err := r.FindByID(ctx, db, "user-a", snowflake.ID(3))
	require.NoError(t, err)
	require.Nil(t, missing)

	list, err := r.ListByIDs(ctx, db, "user-a", []snowflake.ID{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, list, 2)

	empty, err := r.ListByIDs(ctx, db, "user-a", nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}
