package server

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mailroom/internal/calendar"
)

const dateOnlyLayout = "2006-01-02"

// parseOptionalTime accepts RFC3339 or a calendar date. Dates resolve to
// midday in the mailroom location so they never straddle a day boundary.
func parseOptionalTime(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	parsed, err := time.ParseInLocation(dateOnlyLayout, trimmed, calendar.Location())
	if err != nil {
		return nil, err
	}
	parsed = parsed.Add(12 * time.Hour)
	return &parsed, nil
}

func parseOptionalDecimal(value *string) (*decimal.Decimal, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
