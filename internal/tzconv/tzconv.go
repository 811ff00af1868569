// Package tzconv converts between absolute instants and per-zone wall-clock
// values. All functions are pure apart from the timezone database lookup.
package tzconv

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // zone rules must not depend on the host's zoneinfo
)

const (
	// DateLayout is the wall-clock date format accepted and produced here.
	DateLayout = "2006-01-02"
	// TimeLayout is the wall-clock time-of-day format (minute granularity).
	TimeLayout = "15:04"
)

// InvalidZoneError reports an identifier the timezone database does not know.
type InvalidZoneError struct {
	Zone string
}

func (e *InvalidZoneError) Error() string {
	return fmt.Sprintf("invalid timezone %q", e.Zone)
}

// InvalidTimeError reports a date or time-of-day that could not be parsed.
type InvalidTimeError struct {
	Value string
	Err   error
}

func (e *InvalidTimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid date/time %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("invalid date/time %q", e.Value)
}

func (e *InvalidTimeError) Unwrap() error { return e.Err }

// IsInvalidInput reports whether err is an InvalidZoneError or InvalidTimeError.
func IsInvalidInput(err error) bool {
	var ze *InvalidZoneError
	var te *InvalidTimeError
	return errors.As(err, &ze) || errors.As(err, &te)
}

// Zoned is the wall-clock projection of an instant in one zone.
type Zoned struct {
	Zone string
	Date string // YYYY-MM-DD
	Time string // HH:MM
}

var (
	locMu    sync.RWMutex
	locCache = map[string]*time.Location{}
)

// Location resolves an IANA identifier. Empty and "Local" are rejected so
// that results never depend on the host's zone.
func Location(zone string) (*time.Location, error) {
	if zone == "" || zone == "Local" {
		return nil, &InvalidZoneError{Zone: zone}
	}

	locMu.RLock()
	loc, ok := locCache[zone]
	locMu.RUnlock()
	if ok {
		return loc, nil
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, &InvalidZoneError{Zone: zone}
	}

	locMu.Lock()
	locCache[zone] = loc
	locMu.Unlock()
	return loc, nil
}

// ToAbsolute interprets localDate ("YYYY-MM-DD") and localTime ("HH:MM", or
// "HH:MM:SS") as wall-clock values in zone and returns the instant, in UTC.
// Wall-clock values inside a DST gap or overlap follow time.Date's
// normalization.
func ToAbsolute(localDate, localTime, zone string) (time.Time, error) {
	loc, err := Location(zone)
	if err != nil {
		return time.Time{}, err
	}

	d, err := time.Parse(DateLayout, strings.TrimSpace(localDate))
	if err != nil {
		return time.Time{}, &InvalidTimeError{Value: localDate, Err: err}
	}

	tv := strings.TrimSpace(localTime)
	layout := TimeLayout
	if strings.Count(tv, ":") == 2 {
		layout = "15:04:05"
	}
	tod, err := time.Parse(layout, tv)
	if err != nil {
		return time.Time{}, &InvalidTimeError{Value: localTime, Err: err}
	}

	t := time.Date(d.Year(), d.Month(), d.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, loc)
	return t.UTC(), nil
}

// ParseLocal splits a combined "YYYY-MM-DDTHH:MM" wall-clock value (as sent
// by the event form) and resolves it in zone.
func ParseLocal(value, zone string) (time.Time, error) {
	date, tod, ok := strings.Cut(strings.TrimSpace(value), "T")
	if !ok {
		// Accept a space separator as well.
		date, tod, ok = strings.Cut(strings.TrimSpace(value), " ")
	}
	if !ok {
		if _, err := Location(zone); err != nil {
			return time.Time{}, err
		}
		return time.Time{}, &InvalidTimeError{Value: value, Err: errors.New("missing time-of-day")}
	}
	return ToAbsolute(date, tod, zone)
}

// ToZoned projects instant into zone's wall clock.
func ToZoned(instant time.Time, zone string) (Zoned, error) {
	loc, err := Location(zone)
	if err != nil {
		return Zoned{}, err
	}
	lt := instant.In(loc)
	return Zoned{
		Zone: zone,
		Date: lt.Format(DateLayout),
		Time: lt.Format(TimeLayout),
	}, nil
}

// MinutesOfDay returns minutes elapsed since wall-clock midnight of t in its
// own location.
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
