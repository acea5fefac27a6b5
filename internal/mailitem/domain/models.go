package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	ItemTypeLetter        = "Letter"
	ItemTypePackage       = "Package"
	ItemTypeLargePackage  = "Large Package"
	ItemTypeCertifiedMail = "Certified Mail"
	ItemTypeMagazine      = "Magazine"
)

const (
	StatusReceived         = "Received"
	StatusNotified         = "Notified"
	StatusPickedUp         = "Picked Up"
	StatusForwarded        = "Forwarded"
	StatusScanned          = "Scanned"
	StatusAbandoned        = "Abandoned"
	StatusAbandonedPackage = "Abandoned Package"
)

var itemTypes = []string{
	ItemTypeLetter,
	ItemTypePackage,
	ItemTypeLargePackage,
	ItemTypeCertifiedMail,
	ItemTypeMagazine,
}

var statuses = []string{
	StatusReceived,
	StatusNotified,
	StatusPickedUp,
	StatusForwarded,
	StatusScanned,
	StatusAbandoned,
	StatusAbandonedPackage,
}

// ResolvedStatuses are handled states with an exact match. Any status
// containing "Abandoned" is resolved as well.
var ResolvedStatuses = []string{StatusPickedUp, StatusForwarded, StatusScanned}

// MailItem is one physical receiving event.
type MailItem struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID       string       `gorm:"not null;index" json:"user_id"`
	ContactID    snowflake.ID `gorm:"not null;index" json:"contact_id"`
	ItemType     string       `gorm:"not null" json:"item_type"`
	Status       string       `gorm:"not null" json:"status"`
	ReceivedDate time.Time    `gorm:"not null" json:"received_date"`
	PickupDate   *time.Time   `json:"pickup_date,omitempty"`
	LastNotified *time.Time   `json:"last_notified,omitempty"`
	Quantity     int          `gorm:"not null;default:1" json:"quantity"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// IsPackage reports whether the item accrues storage fees.
func (m MailItem) IsPackage() bool {
	return IsPackageType(m.ItemType)
}

func IsPackageType(itemType string) bool {
	return itemType == ItemTypePackage || itemType == ItemTypeLargePackage
}

// IsResolved reports whether status takes the item out of follow-up.
func IsResolved(status string) bool {
	for _, s := range ResolvedStatuses {
		if status == s {
			return true
		}
	}
	return strings.Contains(status, StatusAbandoned)
}

// NormalizeItemType matches itemType against the known types ignoring case.
func NormalizeItemType(itemType string) (string, bool) {
	return matchFold(itemTypes, itemType)
}

// NormalizeStatus matches status against the known statuses ignoring case.
func NormalizeStatus(status string) (string, bool) {
	return matchFold(statuses, status)
}

func matchFold(values []string, candidate string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	for _, v := range values {
		if strings.EqualFold(v, candidate) {
			return v, true
		}
	}
	return "", false
}
