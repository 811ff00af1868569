package calendar

import (
	"context"
	"time"

	appLog "tzcal/internal/log"
	"tzcal/internal/model"
	"tzcal/internal/tzconv"
)

// EventService is the event-persistence boundary. Both the HTTP client and
// the local store implement it.
type EventService interface {
	List(ctx context.Context) ([]model.Event, error)
	Create(ctx context.Context, d model.Draft) (model.Event, error)
	Delete(ctx context.Context, id string) error
}

// Options configures a Session.
type Options struct {
	// Reference is the zone "today", "now", column dates and the current
	// time indicator are computed in.
	Reference *time.Location
	WeekStart time.Weekday
	Geometry  GridGeometry
	Catalog   []string
	MaxZones  int
	View      ViewMode
}

// Session is the state owned by one calendar view: view window, selected
// zones and the loaded events. It is not safe for concurrent use; callers
// that share a Session across goroutines must serialize access.
type Session struct {
	View   ViewState
	Zones  *TimezoneSet
	Events *EventCollection

	geom      GridGeometry
	ref       *time.Location
	weekStart time.Weekday
}

// NewSession creates a session anchored on today's date in the reference zone.
func NewSession(opts Options, now time.Time) *Session {
	ref := opts.Reference
	if ref == nil {
		ref = time.UTC
	}
	geom := opts.Geometry
	if geom.HourHeightPx <= 0 {
		geom = NewGridGeometry(0)
	}
	return &Session{
		View:      NewViewState(opts.View, DateOf(now.In(ref))),
		Zones:     NewTimezoneSet(opts.Catalog, opts.MaxZones),
		Events:    NewEventCollection(),
		geom:      geom,
		ref:       ref,
		weekStart: opts.WeekStart,
	}
}

func (s *Session) Reference() *time.Location { return s.ref }

func (s *Session) Geometry() GridGeometry { return s.geom }

func (s *Session) WeekStart() time.Weekday { return s.weekStart }

// Today is the current date in the reference zone.
func (s *Session) Today(now time.Time) Date {
	return DateOf(now.In(s.ref))
}

func (s *Session) SwitchView(mode ViewMode) error { return s.View.SwitchView(mode) }

func (s *Session) Navigate(direction int) { s.View.Navigate(direction) }

func (s *Session) GoToToday(now time.Time) { s.View.GoToToday(s.Today(now)) }

// Indicator is the current-time marker.
type Indicator struct {
	// OffsetPx is minutes since midnight in the reference zone mapped onto
	// the grid.
	OffsetPx float64 `json:"offset_px"`
	// Column is the index of today's column, or -1 if today is not visible.
	Column int `json:"column"`
}

// Readout is a zone's live wall clock.
type Readout struct {
	Zone string `json:"zone"`
	Date string `json:"date"`
	Time string `json:"time"`
}

// Layout is everything a rendering surface needs for one rebuild.
type Layout struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Reference   string            `json:"reference_timezone"`
	View        ViewState         `json:"view"`
	Zones       []string          `json:"timezones"`
	Grid        Grid              `json:"grid"`
	Events      []PositionedEvent `json:"events"`
	Skipped     []SkippedEvent    `json:"skipped,omitempty"`
	Indicator   Indicator         `json:"indicator"`
	Readouts    []Readout         `json:"readouts"`
}

// Rebuild computes a fresh layout against the current state. The session is
// not modified.
func (s *Session) Rebuild(now time.Time) Layout {
	zones := s.Zones.Zones()
	grid := BuildGrid(s.View, s.geom, GridOptions{
		Reference: s.ref,
		WeekStart: s.weekStart,
		Now:       now,
		Zones:     zones,
	})

	l := Layout{
		GeneratedAt: now,
		Reference:   s.ref.String(),
		View:        s.View,
		Zones:       zones,
		Grid:        grid,
		Events:      []PositionedEvent{},
		Indicator:   s.Indicator(now, grid),
		Readouts:    s.Readouts(now),
	}

	events := s.Events.All()
	if grid.Mode.HasHourGrid() {
		l.Events, l.Skipped = LayoutEvents(events, grid, zones, s.geom, s.ref)
	} else {
		MonthEventIDs(l.Grid.Weeks, events, s.ref)
	}
	return l
}

// Indicator computes the current-time marker for grid.
func (s *Session) Indicator(now time.Time, grid Grid) Indicator {
	return Indicator{
		OffsetPx: s.geom.OffsetPx(tzconv.MinutesOfDay(now.In(s.ref))),
		Column:   grid.TodayColumn(),
	}
}

// Readouts returns now in every selected zone, in display order.
func (s *Session) Readouts(now time.Time) []Readout {
	zones := s.Zones.Zones()
	out := make([]Readout, 0, len(zones))
	for _, zone := range zones {
		z, err := tzconv.ToZoned(now, zone)
		if err != nil {
			appLog.Error("readout: zone conversion failed", err, "zone", zone)
			continue
		}
		out = append(out, Readout{Zone: zone, Date: z.Date, Time: z.Time})
	}
	return out
}

// LoadEvents replaces the events with the service's list. On failure the
// current events are kept.
func (s *Session) LoadEvents(ctx context.Context, svc EventService) error {
	events, err := svc.List(ctx)
	if err != nil {
		return err
	}
	s.Events.Replace(events)
	return nil
}

// CreateEvent creates d through svc and appends the result. A failed create
// appends nothing.
func (s *Session) CreateEvent(ctx context.Context, svc EventService, d model.Draft) (model.Event, error) {
	ev, err := svc.Create(ctx, d)
	if err != nil {
		return model.Event{}, err
	}
	s.Events.Append(ev)
	return ev, nil
}

// DeleteEvent deletes id through svc and removes it locally. A failed
// delete removes nothing.
func (s *Session) DeleteEvent(ctx context.Context, svc EventService, id string) error {
	if err := svc.Delete(ctx, id); err != nil {
		return err
	}
	s.Events.Remove(id)
	return nil
}
