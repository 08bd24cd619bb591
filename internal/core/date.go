package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateFormat is the wire format for calendar dates.
const DateFormat = "2006-01-02"

// Date is a calendar date with day granularity and no time component.
// Comparisons work on the date itself, never on a timestamp, so aggregation
// buckets cannot drift across timezone boundaries.
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns a normalized Date for the given year, month, and day.
func NewDate(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// Today returns the current date in local time.
func Today() Date {
	return NewDate(time.Now().Date())
}

// ParseDate parses a YYYY-MM-DD string. Inputs carrying a time component
// (e.g. RFC 3339 timestamps from the backend) are truncated to the date.
func ParseDate(s string) (Date, error) {
	if len(s) > len(DateFormat) {
		s = s[:len(DateFormat)]
	}
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", s, DateFormat, err)
	}
	return NewDate(t.Date()), nil
}

// MustParseDate is like ParseDate but panics on error. Intended for tests.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err.Error())
	}
	return d
}

func (d Date) time() time.Time {
	return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

// Year returns the year.
func (d Date) Year() int { return d.y }

// Month returns the month.
func (d Date) Month() time.Month { return d.m }

// Day returns the day of the month.
func (d Date) Day() int { return d.d }

// Weekday returns the day of the week.
func (d Date) Weekday() time.Weekday { return d.time().Weekday() }

// Add returns the date shifted by the given number of days.
func (d Date) Add(days int) Date { return NewDate(d.y, d.m, d.d+days) }

// Equal reports whether both values name the same calendar day.
func (d Date) Equal(x Date) bool { return d.y == x.y && d.m == x.m && d.d == x.d }

// Before reports whether d is before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether d is after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// String formats the date in its standard YYYY-MM-DD form.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.time().Format(DateFormat)
}

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a YYYY-MM-DD string; null and "" map to the zero Date.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
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
