package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02 15:04", value, Location())
	require.NoError(t, err)
	return parsed
}

func TestBusinessDateIgnoresProcessZone(t *testing.T) {
	// 2025-03-15 02:30 UTC is still the 14th in New York.
	instant := time.Date(2025, 3, 15, 2, 30, 0, 0, time.UTC)
	assert.Equal(t, NewDate(2025, 3, 14), BusinessDate(instant))

	tokyo := time.FixedZone("JST", 9*3600)
	assert.Equal(t, NewDate(2025, 3, 14), BusinessDate(instant.In(tokyo)))
}

func TestDaysBetweenCountsMidnightCrossings(t *testing.T) {
	received := at(t, "2025-06-10 23:00")

	assert.Equal(t, 0, DaysBetween(received, at(t, "2025-06-10 23:59")))
	assert.Equal(t, 1, DaysBetween(received, at(t, "2025-06-11 00:05")))
	assert.Equal(t, 1, DaysBetween(received, at(t, "2025-06-11 22:59")))
	assert.Equal(t, 2, DaysBetween(received, at(t, "2025-06-12 00:00")))
}

func TestDaysBetweenNegative(t *testing.T) {
	assert.Equal(t, -1, DaysBetween(at(t, "2025-06-11 08:00"), at(t, "2025-06-10 08:00")))
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	cases := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		// Spring forward: 2025-03-09 has 23 hours.
		{name: "spring_forward_same_clock", start: "2025-03-08 12:00", end: "2025-03-10 12:00", want: 2},
		{name: "spring_forward_short_day", start: "2025-03-09 00:30", end: "2025-03-09 23:30", want: 0},
		{name: "spring_forward_next_midnight", start: "2025-03-09 23:30", end: "2025-03-10 00:10", want: 1},
		// Fall back: 2025-11-02 has 25 hours.
		{name: "fall_back_same_clock", start: "2025-11-01 12:00", end: "2025-11-03 12:00", want: 2},
		{name: "fall_back_long_day", start: "2025-11-02 00:10", end: "2025-11-02 23:50", want: 0},
		{name: "fall_back_week", start: "2025-10-30 09:00", end: "2025-11-06 09:00", want: 7},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DaysBetween(at(t, tc.start), at(t, tc.end)))
		})
	}
}

func TestDateHelpers(t *testing.T) {
	d := NewDate(2024, 2, 28)
	assert.Equal(t, NewDate(2024, 3, 1), d.AddDays(2))
	assert.Equal(t, "2024-02-28", d.String())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.AddDays(1).After(d))

	parsed, err := ParseDate("2024-12-31")
	require.NoError(t, err)
	assert.Equal(t, 366, parsed.Sub(NewDate(2024, 1, 0)))

	midnight := NewDate(2025, 3, 10).StartOfDay()
	assert.Equal(t, 0, midnight.Hour())
	assert.Equal(t, NewDate(2025, 3, 10), BusinessDate(midnight))
}
