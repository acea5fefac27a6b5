package domain

import (
	"time"

	"github.com/shopspring/decimal"
	contactdomain "github.com/smallbiznis/mailroom/internal/contact/domain"
	feedomain "github.com/smallbiznis/mailroom/internal/fee/domain"
	mailitemdomain "github.com/smallbiznis/mailroom/internal/mailitem/domain"
)

// Item is an outstanding mail item with its age and, for packages, its fee.
type Item struct {
	mailitemdomain.MailItem
	AgeDays int                   `json:"age_days"`
	Fee     *feedomain.PackageFee `json:"fee,omitempty"`
}

// FollowUpGroup is the outstanding mail of one contact. It is rebuilt on
// every request.
type FollowUpGroup struct {
	Contact      contactdomain.Contact `json:"contact"`
	Packages     []Item                `json:"packages"`
	Letters      []Item                `json:"letters"`
	TotalFees    decimal.Decimal       `json:"total_fees"`
	MaxAgeDays   int                   `json:"max_age_days"`
	UrgencyScore float64               `json:"urgency_score"`
	LastNotified *time.Time            `json:"last_notified,omitempty"`
}

// ItemCount is the number of mail items in the group.
func (g FollowUpGroup) ItemCount() int {
	return len(g.Packages) + len(g.Letters)
}

// Items returns packages followed by letters.
func (g FollowUpGroup) Items() []Item {
	items := make([]Item, 0, g.ItemCount())
	items = append(items, g.Packages...)
	return append(items, g.Letters...)
}
