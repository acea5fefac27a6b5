package domain

import (
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mailroom/internal/calendar"
	contactdomain "github.com/smallbiznis/mailroom/internal/contact/domain"
	feedomain "github.com/smallbiznis/mailroom/internal/fee/domain"
	mailitemdomain "github.com/smallbiznis/mailroom/internal/mailitem/domain"
)

const (
	DefaultIntervalDays = 3

	feeTierScore  = 1000
	staleAgeDays  = 30
	staleAgeScore = 500
	agingAgeDays  = 7
	agingAgeScore = 100
)

// NeedsFollowUp reports whether an item should be raised with its contact:
// it is unresolved and was never notified or last notified intervalDays or
// more business days before asOf.
func NeedsFollowUp(item mailitemdomain.MailItem, asOf time.Time, intervalDays int) bool {
	if mailitemdomain.IsResolved(item.Status) {
		return false
	}
	if item.LastNotified == nil {
		return true
	}
	return calendar.DaysBetween(*item.LastNotified, asOf) >= intervalDays
}

// GroupAndScore partitions items by contact and orders the groups by
// descending urgency. Any group owing a fee outranks every fee-free group.
func GroupAndScore(items []mailitemdomain.MailItem, fees []feedomain.PackageFee, contacts []contactdomain.Contact, asOf time.Time) []FollowUpGroup {
	feeByItem := make(map[snowflake.ID]feedomain.PackageFee, len(fees))
	for _, fee := range fees {
		feeByItem[fee.MailItemID] = fee
	}
	contactByID := make(map[snowflake.ID]contactdomain.Contact, len(contacts))
	for _, c := range contacts {
		contactByID[c.ID] = c
	}

	groups := make(map[snowflake.ID]*FollowUpGroup)
	order := make([]snowflake.ID, 0)
	for _, item := range items {
		group, ok := groups[item.ContactID]
		if !ok {
			contact, found := contactByID[item.ContactID]
			if !found {
				contact = contactdomain.Contact{ID: item.ContactID, UserID: item.UserID}
			}
			group = &FollowUpGroup{
				Contact:   contact,
				Packages:  []Item{},
				Letters:   []Item{},
				TotalFees: decimal.Zero,
			}
			groups[item.ContactID] = group
			order = append(order, item.ContactID)
		}

		age := calendar.DaysBetween(item.ReceivedDate, asOf)
		if age < 0 {
			age = 0
		}
		if age > group.MaxAgeDays {
			group.MaxAgeDays = age
		}
		if item.LastNotified != nil && (group.LastNotified == nil || item.LastNotified.After(*group.LastNotified)) {
			notified := *item.LastNotified
			group.LastNotified = &notified
		}

		entry := Item{MailItem: item, AgeDays: age}
		if item.IsPackage() {
			if fee, ok := feeByItem[item.ID]; ok {
				entry.Fee = &fee
				if fee.IsPending() {
					group.TotalFees = group.TotalFees.Add(fee.FeeAmount)
				}
			}
			group.Packages = append(group.Packages, entry)
			continue
		}
		group.Letters = append(group.Letters, entry)
	}

	result := make([]FollowUpGroup, 0, len(order))
	for _, id := range order {
		group := groups[id]
		group.UrgencyScore = Score(group.TotalFees, group.MaxAgeDays)
		result = append(result, *group)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].UrgencyScore != result[j].UrgencyScore {
			return result[i].UrgencyScore > result[j].UrgencyScore
		}
		return result[i].Contact.ID < result[j].Contact.ID
	})
	return result
}

// Score is the triage priority of a group owing totalFees whose oldest item
// is maxAgeDays old.
func Score(totalFees decimal.Decimal, maxAgeDays int) float64 {
	score := decimal.Zero
	if totalFees.IsPositive() {
		score = score.Add(decimal.NewFromInt(feeTierScore)).Add(totalFees)
	}
	switch {
	case maxAgeDays >= staleAgeDays:
		score = score.Add(decimal.NewFromInt(staleAgeScore))
	case maxAgeDays >= agingAgeDays:
		score = score.Add(decimal.NewFromInt(agingAgeScore))
	}
	score = score.Add(decimal.NewFromInt(int64(maxAgeDays)))
	return score.InexactFloat64()
}
