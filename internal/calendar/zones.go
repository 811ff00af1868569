package calendar

import (
	"errors"
	"fmt"
	"slices"

	"tzcal/internal/tzconv"
)

var (
	ErrUnknownZone  = errors.New("timezone is not in the selectable catalog")
	ErrTooManyZones = errors.New("maximum number of timezones already selected")
)

// DefaultMaxZones matches the three zone selectors of the UI.
const DefaultMaxZones = 3

// DefaultCatalog is the selectable zone list used when none is configured.
var DefaultCatalog = []string{
	"UTC",
	"America/Los_Angeles",
	"America/New_York",
	"America/Chicago",
	"Europe/London",
	"Europe/Paris",
	"Asia/Tokyo",
	"Asia/Shanghai",
	"Asia/Singapore",
	"Australia/Sydney",
}

// TimezoneSet is the ordered set of zones the user chose to display.
// Insertion order is the display order.
type TimezoneSet struct {
	catalog []string
	max     int
	zones   []string
}

// NewTimezoneSet creates an empty set. An empty catalog accepts any zone the
// timezone database knows; max <= 0 means DefaultMaxZones.
func NewTimezoneSet(catalog []string, max int) *TimezoneSet {
	if max <= 0 {
		max = DefaultMaxZones
	}
	return &TimezoneSet{
		catalog: slices.Clone(catalog),
		max:     max,
	}
}

// Add appends zone. Adding a zone that is already present is a no-op.
func (s *TimezoneSet) Add(zone string) error {
	if s.Contains(zone) {
		return nil
	}
	if len(s.catalog) > 0 && !slices.Contains(s.catalog, zone) {
		return fmt.Errorf("%w: %s", ErrUnknownZone, zone)
	}
	if _, err := tzconv.Location(zone); err != nil {
		return err
	}
	if len(s.zones) >= s.max {
		return fmt.Errorf("%w (%d)", ErrTooManyZones, s.max)
	}
	s.zones = append(s.zones, zone)
	return nil
}

// Remove deletes zone and reports whether it was present. Remaining zones
// keep their relative order.
func (s *TimezoneSet) Remove(zone string) bool {
	i := slices.Index(s.zones, zone)
	if i < 0 {
		return false
	}
	s.zones = slices.Delete(s.zones, i, i+1)
	return true
}

func (s *TimezoneSet) Contains(zone string) bool { return slices.Contains(s.zones, zone) }

func (s *TimezoneSet) Len() int { return len(s.zones) }

func (s *TimezoneSet) Max() int { return s.max }

// Zones returns the selected zones in display order.
func (s *TimezoneSet) Zones() []string { return slices.Clone(s.zones) }

func (s *TimezoneSet) Catalog() []string { return slices.Clone(s.catalog) }
