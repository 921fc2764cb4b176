// Package period resolves calendar buckets (day, week, month, quarter, year)
// to canonical keys and inclusive date bounds.
package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/types"
)

// Kind is the granularity of a period bucket.
type Kind string

const (
	Day     Kind = "day"
	Week    Kind = "week"
	Month   Kind = "month"
	Quarter Kind = "quarter"
	Year    Kind = "year"
)

// Kinds lists every supported kind from finest to coarsest.
var Kinds = []Kind{Day, Week, Month, Quarter, Year}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	switch k {
	case Day, Week, Month, Quarter, Year:
		return true
	}
	return false
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", apperror.NewValidation("unknown period kind").WithDetail("kind", s)
	}
	return k, nil
}

// Period is a resolved bucket. Start and End are inclusive UTC dates.
type Period struct {
	Kind  Kind
	Start time.Time
	End   time.Time
}

// Containing returns the bucket of the given kind that contains date.
func Containing(kind Kind, date time.Time) Period {
	d := types.DateOf(date)
	var start time.Time

	switch kind {
	case Day:
		start = d
	case Week:
		offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
		start = d.AddDate(0, 0, -offset)
	case Month:
		start = time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Quarter:
		first := time.Month((int(d.Month())-1)/3*3 + 1)
		start = time.Date(d.Year(), first, 1, 0, 0, 0, 0, time.UTC)
	case Year:
		start = time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		start = d
		kind = Day
	}

	return Period{Kind: kind, Start: start, End: endOf(kind, start)}
}

func endOf(kind Kind, start time.Time) time.Time {
	switch kind {
	case Week:
		return start.AddDate(0, 0, 6)
	case Month:
		return start.AddDate(0, 1, -1)
	case Quarter:
		return start.AddDate(0, 3, -1)
	case Year:
		return start.AddDate(1, 0, -1)
	}
	return start
}

// Key renders the canonical bucket key:
// 2024-03-15, 2024-W11, 2024-03, 2024-Q1, 2024.
func (p Period) Key() string {
	switch p.Kind {
	case Week:
		y, w := p.Start.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case Month:
		return p.Start.Format("2006-01")
	case Quarter:
		return fmt.Sprintf("%04d-Q%d", p.Start.Year(), (int(p.Start.Month())-1)/3+1)
	case Year:
		return fmt.Sprintf("%04d", p.Start.Year())
	}
	return p.Start.Format(types.DateLayout)
}

// String renders kind:key.
func (p Period) String() string {
	return string(p.Kind) + ":" + p.Key()
}

// Contains reports whether t falls within the bucket.
func (p Period) Contains(t time.Time) bool {
	return types.InRange(&t, p.Start, p.End)
}

// Previous returns the bucket immediately before p.
func (p Period) Previous() Period {
	return Containing(p.Kind, p.Start.AddDate(0, 0, -1))
}

// Next returns the bucket immediately after p.
func (p Period) Next() Period {
	return Containing(p.Kind, p.End.AddDate(0, 0, 1))
}

// Parse resolves a canonical key for kind. Non-canonical spellings
// (e.g. "2024-3", "2024-Q01") are rejected.
func Parse(kind Kind, key string) (Period, error) {
	if !kind.Valid() {
		return Period{}, apperror.NewValidation("unknown period kind").WithDetail("kind", string(kind))
	}

	p, err := parse(kind, key)
	if err != nil || p.Key() != key {
		return Period{}, apperror.NewValidation("invalid period key").
			WithDetail("kind", string(kind)).
			WithDetail("key", key)
	}
	return p, nil
}

func parse(kind Kind, key string) (Period, error) {
	switch kind {
	case Day:
		d, err := time.Parse(types.DateLayout, key)
		if err != nil {
			return Period{}, err
		}
		return Containing(Day, d), nil

	case Week:
		yearStr, weekStr, ok := strings.Cut(key, "-W")
		if !ok {
			return Period{}, fmt.Errorf("missing week separator")
		}
		year, err := parseYear(yearStr)
		if err != nil {
			return Period{}, err
		}
		week, err := strconv.Atoi(weekStr)
		if err != nil || week < 1 || week > isoWeeksIn(year) {
			return Period{}, fmt.Errorf("week out of range")
		}
		return Containing(Week, isoWeekStart(year, week)), nil

	case Month:
		d, err := time.Parse("2006-01", key)
		if err != nil {
			return Period{}, err
		}
		return Containing(Month, d), nil

	case Quarter:
		yearStr, qStr, ok := strings.Cut(key, "-Q")
		if !ok {
			return Period{}, fmt.Errorf("missing quarter separator")
		}
		year, err := parseYear(yearStr)
		if err != nil {
			return Period{}, err
		}
		q, err := strconv.Atoi(qStr)
		if err != nil || q < 1 || q > 4 {
			return Period{}, fmt.Errorf("quarter out of range")
		}
		return Containing(Quarter, time.Date(year, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)), nil

	case Year:
		year, err := parseYear(key)
		if err != nil {
			return Period{}, err
		}
		return Containing(Year, time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)), nil
	}
	return Period{}, fmt.Errorf("unsupported kind %s", kind)
}

func parseYear(s string) (int, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("year must have four digits")
	}
	return strconv.Atoi(s)
}

// isoWeekStart returns the Monday of ISO week w: week 1 contains January 4th.
func isoWeekStart(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	return jan4.AddDate(0, 0, -offset+(week-1)*7)
}

func isoWeeksIn(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}

// Range lists every bucket of kind overlapping [from, to], oldest first.
func Range(kind Kind, from, to time.Time) []Period {
	if to.Before(from) {
		return nil
	}
	var out []Period
	for p := Containing(kind, from); !p.Start.After(types.DateOf(to)); p = p.Next() {
		out = append(out, p)
	}
	return out
}
