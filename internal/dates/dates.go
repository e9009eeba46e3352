// Package dates stamps ledger entries with calendar days in the bot's
// single configured timezone.
package dates

import (
	"time"

	"github.com/jinzhu/now"
)

// DayLayout is the calendar-day format entries are stamped with.
const DayLayout = "02/01/2006"

// Location resolves a timezone name, falling back to UTC.
func Location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Day renders t as a calendar-day stamp in its own location.
func Day(t time.Time) string {
	return t.Format(DayLayout)
}

// MonthTag is the month value stored on an expense entry (1-12).
func MonthTag(t time.Time) int {
	return int(t.Month())
}

// IsMonthEnd reports whether tomorrow rolls into a new calendar month.
func IsMonthEnd(t time.Time) bool {
	return now.With(t).EndOfMonth().Day() == t.Day()
}
