package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Contact is a mailbox holder. Records are owned by the contact directory
// and are only read here.
type Contact struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID        string       `gorm:"not null;index" json:"user_id"`
	Name          string       `gorm:"not null" json:"name"`
	Email         string       `json:"email"`
	MailboxNumber string       `gorm:"column:mailbox_number" json:"mailbox_number"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
