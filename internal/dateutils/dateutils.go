// Package dateutils provides the calendar arithmetic used by reclassification and
// monthly aggregation. All values are treated as civil dates in UTC.
package dateutils

import (
	"fmt"
	"strings"
	"time"
)

// Layouts used across the application
const (
	DateLayoutISO  = "2006-01-02"
	MonthKeyLayout = "2006-01"
	DateLayoutOFX  = "20060102"
)

// CommonFormats are tried in order by ParseDate
var CommonFormats = []string{
	DateLayoutISO,
	time.RFC3339,
	DateLayoutOFX,
	"2006/01/02",
}

// ParseDate parses a date string in one of CommonFormats and truncates it to midnight UTC.
func ParseDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	for _, format := range CommonFormats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return Truncate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %q", dateStr)
}

// Truncate drops the time-of-day and location, keeping the calendar date as seen in t's zone.
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfMonth returns the first day of the month for a given date
func StartOfMonth(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// EndOfMonth returns the last day of the month for a given date
func EndOfMonth(date time.Time) time.Time {
	return StartOfMonth(date).AddDate(0, 1, -1)
}

// DaysInMonth returns the number of days in date's month, leap years included.
func DaysInMonth(date time.Time) int {
	return EndOfMonth(date).Day()
}

// AddDays adds n calendar days, rolling over month and year boundaries.
func AddDays(date time.Time, n int) time.Time {
	return Truncate(date).AddDate(0, 0, n)
}

// MonthKey formats date as "YYYY-MM".
func MonthKey(date time.Time) string {
	return date.Format(MonthKeyLayout)
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD)
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

// DayWindow returns the inclusive [end-days, end] window used for transaction fetches.
func DayWindow(end time.Time, days int) (time.Time, time.Time) {
	end = Truncate(end)
	return end.AddDate(0, 0, -days), end
}
