// Package dbtest opens isolated in-memory SQLite databases carrying the
// mailroom tables.
package dbtest

import (
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id INTEGER PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	email TEXT,
	mailbox_number TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS mail_items (
	id INTEGER PRIMARY KEY,
	user_id TEXT NOT NULL,
	contact_id INTEGER NOT NULL,
	item_type TEXT NOT NULL,
	status TEXT NOT NULL,
	received_date DATETIME NOT NULL,
	pickup_date DATETIME,
	last_notified DATETIME,
	quantity INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS package_fees (
	id INTEGER PRIMARY KEY,
	mail_item_id INTEGER NOT NULL UNIQUE,
	contact_id INTEGER NOT NULL,
	user_id TEXT NOT NULL,
	fee_amount NUMERIC NOT NULL DEFAULT 0,
	days_charged INTEGER NOT NULL DEFAULT 0,
	daily_rate NUMERIC NOT NULL,
	grace_period_days INTEGER NOT NULL,
	fee_status TEXT NOT NULL,
	paid_date DATETIME,
	waived_date DATETIME,
	waive_reason TEXT,
	waived_by TEXT,
	payment_method TEXT,
	collected_amount NUMERIC,
	paid_by TEXT,
	last_calculated_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS notification_logs (
	id INTEGER PRIMARY KEY,
	user_id TEXT NOT NULL,
	contact_id INTEGER NOT NULL,
	message_id TEXT NOT NULL,
	recipient TEXT NOT NULL,
	subject TEXT NOT NULL,
	variables TEXT,
	sent_by TEXT,
	sent_at DATETIME NOT NULL
);
`

// Open returns a database private to t with every mailroom table created.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}
