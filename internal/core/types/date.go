package types

import (
	"fmt"
	"time"
)

// DateLayout is the wire and key format of calendar dates.
const DateLayout = "2006-01-02"

// DateOf strips the clock part, keeping the calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// ParseDatePtr parses an optional date; nil or empty input yields nil.
func ParseDatePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatDatePtr renders an optional date.
func FormatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

// DatePtr normalizes an optional date to UTC midnight.
func DatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := DateOf(*t)
	return &d
}

// DaysBetween counts whole calendar days from one date to another.
func DaysBetween(from, to time.Time) int64 {
	return int64(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}

// InRange reports whether t falls within the inclusive date range.
func InRange(t *time.Time, start, end time.Time) bool {
	if t == nil {
		return false
	}
	d := DateOf(*t)
	return !d.Before(start) && !d.After(end)
}
