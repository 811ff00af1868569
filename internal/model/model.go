package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"

	"tzcal/internal/tzconv"
)

// DefaultColor is used for event blocks that carry no color of their own.
const DefaultColor = "#1a73e8"

// Event is a scheduled event anchored to absolute instants. Start/End are
// not tied to any zone; Timezone only records the zone the event was
// entered in.
type Event struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	Start time.Time `json:"start_datetime"`
	End   time.Time `json:"end_datetime"`

	Timezone string `json:"timezone,omitempty"`

	Description mo.Option[string] `json:"description"`
	Color       mo.Option[string] `json:"color"`
}

// Validate checks the invariants layout relies on.
func (e Event) Validate() error {
	if e.ID == "" {
		return errors.New("event: missing id")
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return fmt.Errorf("event %s: missing start or end", e.ID)
	}
	if e.End.Before(e.Start) {
		return fmt.Errorf("event %s: end %s is before start %s", e.ID,
			e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
	}
	return nil
}

// BlockColor returns the event color or DefaultColor.
func (e Event) BlockColor() string {
	return e.Color.OrElse(DefaultColor)
}

// Draft is the create request sent to the event service: wall-clock
// start/end ("YYYY-MM-DDTHH:MM") interpreted in Timezone.
type Draft struct {
	Title         string            `json:"title"`
	StartDateTime string            `json:"start_datetime"`
	EndDateTime   string            `json:"end_datetime"`
	Timezone      string            `json:"timezone"`
	Description   mo.Option[string] `json:"description"`
	Color         mo.Option[string] `json:"color"`
}

// Resolve converts the draft into an Event with absolute instants.
// The returned event has no ID; the service assigns one.
func (d Draft) Resolve() (Event, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return Event{}, errors.New("draft: title is required")
	}

	start, err := tzconv.ParseLocal(d.StartDateTime, d.Timezone)
	if err != nil {
		return Event{}, fmt.Errorf("draft start: %w", err)
	}
	end, err := tzconv.ParseLocal(d.EndDateTime, d.Timezone)
	if err != nil {
		return Event{}, fmt.Errorf("draft end: %w", err)
	}
	if end.Before(start) {
		return Event{}, fmt.Errorf("draft: end %s is before start %s", d.EndDateTime, d.StartDateTime)
	}

	return Event{
		Title:       title,
		Start:       start,
		End:         end,
		Timezone:    d.Timezone,
		Description: emptyToNone(d.Description),
		Color:       emptyToNone(d.Color),
	}, nil
}

// emptyToNone treats "" the same as an absent value, since HTML forms send
// empty strings for untouched fields.
func emptyToNone(o mo.Option[string]) mo.Option[string] {
	v, ok := o.Get()
	if !ok {
		return o
	}
	return mo.EmptyableToOption(strings.TrimSpace(v))
}
