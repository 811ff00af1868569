package calendar

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day or zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) utc() time.Time { return d.In(time.UTC) }

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.utc().AddDate(0, 0, n))
}

// AddMonths shifts d by n months and uses day as the day-of-month, clamped
// to the length of the target month.
func (d Date) AddMonths(n, day int) Date {
	first := time.Date(d.Year, d.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return Date{Year: first.Year(), Month: first.Month(), Day: day}
}

func (d Date) Weekday() time.Weekday { return d.utc().Weekday() }

func (d Date) Before(o Date) bool { return d.utc().Before(o.utc()) }

// DaysUntil returns the number of days from d to o (negative if o is earlier).
func (d Date) DaysUntil(o Date) int {
	return int(o.utc().Sub(d.utc()).Hours() / 24)
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string { return d.utc().Format(dateLayout) }

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// StartOfWeek returns the most recent day on or before d that falls on
// weekStart.
func (d Date) StartOfWeek(weekStart time.Weekday) Date {
	diff := (int(d.Weekday()) - int(weekStart) + 7) % 7
	return d.AddDays(-diff)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseWeekStart maps "monday"/"sunday" to a weekday; anything else is Monday.
func ParseWeekStart(s string) time.Weekday {
	if s == "sunday" {
		return time.Sunday
	}
	return time.Monday
}
