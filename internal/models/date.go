package models

import (
	"encoding/json"
	"fmt"
	"time"

	"fjacquet/finagent/internal/dateutils"
)

// Date is a calendar date without time-of-day. It serializes as "YYYY-MM-DD".
// The zero Date is invalid and serializes as null.
type Date struct {
	t time.Time
}

// NewDate builds a Date; out-of-range values normalize the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf keeps only the calendar part of t.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return Date{t: dateutils.Truncate(t)}
}

// ParseDate parses an ISO (or other supported) date string.
func ParseDate(s string) (Date, error) {
	t, err := dateutils.ParseDate(s)
	if err != nil {
		return Date{}, err
	}
	return Date{t: t}, nil
}

// MustParseDate is ParseDate for literals; it panics on invalid input.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Time() time.Time   { return d.t }
func (d Date) IsZero() bool      { return d.t.IsZero() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Year() int         { return d.t.Year() }

// DaysInMonth returns the length of the date's month.
func (d Date) DaysInMonth() int { return dateutils.DaysInMonth(d.t) }

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date { return Date{t: dateutils.AddDays(d.t, n)} }

// MonthKey returns "YYYY-MM".
func (d Date) MonthKey() string { return dateutils.MonthKey(d.t) }

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return dateutils.ToISODate(d.t)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalCSV renders the date for gocsv.
func (d Date) MarshalCSV() (string, error) {
	return d.String(), nil
}
