package core

import (
	"encoding/json"
	"strings"
	"time"
)

// Date is a calendar day with no time-of-day or timezone semantics.
// The embedded time is always midnight UTC; two dates are compared by
// (year, month, day) only.
type Date struct {
	time.Time
}

const isoLayout = "2006-01-02"

// Accepted input layouts. The "Jan 2 2006" forms are what the web client
// sends for transaction dates.
var dateLayouts = []string{
	isoLayout,
	"Jan 2 2006",
	"Jan 02 2006",
	"January 2 2006",
	"2006/01/02",
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as seen in t's own location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current calendar day in the local timezone.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses s into a calendar day. Besides ISO dates it accepts
// "Aug 25 2025", "Aug 25, 2025" and RFC 3339 timestamps (whose calendar
// fields are kept as written).
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, ",", " ")), " ")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, ErrInvalidDate
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic("core: invalid date literal " + s)
	}
	return d
}

// Valid reports whether d holds a calendar day.
func (d Date) Valid() bool {
	return !d.IsZero()
}

func (d Date) Validate() error {
	if !d.Valid() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// Equal reports whether d and o are the same calendar day.
func (d Date) Equal(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month() && d.Day() == o.Day()
}

// Before reports whether d is a strictly earlier calendar day than o.
func (d Date) Before(o Date) bool {
	return d.compare(o) < 0
}

// After reports whether d is a strictly later calendar day than o.
func (d Date) After(o Date) bool {
	return d.compare(o) > 0
}

func (d Date) compare(o Date) int {
	switch {
	case d.Year() != o.Year():
		return d.Year() - o.Year()
	case d.Month() != o.Month():
		return d.Month() - o.Month()
	default:
		return d.Day() - o.Day()
	}
}

// SameMonth reports whether d falls in the given year and month.
func (d Date) SameMonth(year, month int) bool {
	return d.Year() == year && d.Month() == month
}

// Between reports whether d is within [from, to], both inclusive.
func (d Date) Between(from, to Date) bool {
	return !d.Before(from) && !d.After(to)
}

// FirstOfMonth returns the first day of d's month.
func (d Date) FirstOfMonth() Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// LastOfMonth returns the last day of d's month.
func (d Date) LastOfMonth() Date {
	return NewDate(d.Year(), d.Month(), DaysInMonth(d.Year(), d.Month()))
}

// DaysInMonth returns the number of days in the given month (1-12).
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// String formats d as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if !d.Valid() {
		return ""
	}
	return d.Format(isoLayout)
}

// Display formats d the way the client shows it, e.g. "Aug 07 2025".
func (d Date) Display() string {
	if !d.Valid() {
		return ""
	}
	return d.Format("Jan 02 2006")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
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
		return ErrInvalidDate
	}
	if strings.TrimSpace(s) == "" {
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
