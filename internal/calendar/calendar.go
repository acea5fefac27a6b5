// Package calendar converts instants into business-local calendar dates.
//
// All "days since" arithmetic in the mailroom is counted in calendar days of a
// single business timezone. A package received at 23:00 local time is one day
// old right after local midnight, not 24 hours later.
package calendar

import (
	"fmt"
	"time"
	_ "time/tzdata" // zone data must not depend on the host
)

// BusinessTimezone is the fixed zone used for every tenant.
const BusinessTimezone = "America/New_York"

var businessLocation = mustLoadLocation(BusinessTimezone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("calendar: load location %q: %v", name, err))
	}
	return loc
}

// Location returns the business timezone.
func Location() *time.Location {
	return businessLocation
}

// Date is a calendar date without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes the given components, so NewDate(2025, 1, 32) is Feb 1.
func NewDate(year int, month time.Month, day int) Date {
	y, m, d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Date()
	return Date{Year: y, Month: m, Day: d}
}

// BusinessDate returns the date t falls on in the business timezone.
func BusinessDate(t time.Time) Date {
	y, m, d := t.In(businessLocation).Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the business date of now.
func Today(now time.Time) Date {
	return BusinessDate(now)
}

// DaysBetween returns BusinessDate(end) - BusinessDate(start) in whole days.
// The result is negative when end falls on an earlier date; callers clamp.
func DaysBetween(start, end time.Time) int {
	return BusinessDate(end).Sub(BusinessDate(start))
}

// Sub returns the number of calendar days from o to d.
func (d Date) Sub(o Date) int {
	// UTC midnights are exactly 24h apart, so the division is exact.
	diff := d.utcMidnight().Sub(o.utcMidnight())
	return int(diff / (24 * time.Hour))
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

func (d Date) Before(o Date) bool {
	return d.Sub(o) < 0
}

func (d Date) After(o Date) bool {
	return d.Sub(o) > 0
}

func (d Date) Equal(o Date) bool {
	return d == o
}

// StartOfDay returns business-local midnight of d.
func (d Date) StartOfDay() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, businessLocation)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return Date{}, err
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d Date) utcMidnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}
