package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// NotificationLog records one delivered follow-up message along with the
// variables it was rendered with.
type NotificationLog struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID    string            `gorm:"not null;index" json:"user_id"`
	ContactID snowflake.ID      `gorm:"not null;index" json:"contact_id"`
	MessageID string            `gorm:"not null" json:"message_id"`
	Recipient string            `gorm:"not null" json:"recipient"`
	Subject   string            `gorm:"not null" json:"subject"`
	Variables datatypes.JSONMap `gorm:"type:jsonb" json:"variables"`
	SentBy    string            `json:"sent_by"`
	SentAt    time.Time         `gorm:"not null" json:"sent_at"`
}

const (
	DefaultSubjectTemplate = "{{Name}}, you have {{ItemCount}} {{ItemText}} waiting"
	DefaultBodyTemplate    = "<p>Hi {{Name}},</p>" +
		"<p>Mailbox {{MailboxNumber}} is holding {{LetterCount}} {{LetterText}} and {{PackageCount}} {{PackageText}} for you.</p>" +
		"<p>Storage fees due: ${{TotalFees}}</p>"
)
