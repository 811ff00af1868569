package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/samber/mo"

	appLog "tzcal/internal/log"
	"tzcal/internal/model"
	"tzcal/internal/tzconv"
)

// ParsedEvent is a VEVENT reduced to what the calendar can show.
type ParsedEvent struct {
	Event model.Event

	AllDay bool
	// Recurring is set when the VEVENT carries an RRULE. Only the first
	// instance is imported.
	Recurring bool
}

// ParseICS parses an iCalendar payload. VEVENTs that cannot be parsed are
// logged and skipped; the rest are returned.
//
//   - Time zones come from the library's TZID handling; the resulting
//     Start/End are absolute instants. Floating times are read in loc.
//   - All-day events (VALUE=DATE) span [date 00:00, next day 00:00) in loc.
//   - A missing DTEND means a zero-length event.
func ParseICS(body []byte, loc *time.Location) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.UTC
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics parse: %w", err)
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp, loc)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (ParsedEvent, error) {
	var out ParsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	ev := model.Event{ID: uidProp.Value}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = mo.EmptyableToOption(p.Value)
	}
	if p := ve.GetProperty(propertyColor); p != nil {
		ev.Color = mo.EmptyableToOption(p.Value)
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, fmt.Errorf("%s: missing DTSTART", ev.ID)
	}
	if isDateValue(dtStart) {
		out.AllDay = true
		day, err := time.ParseInLocation("20060102", strings.TrimSpace(dtStart.Value), loc)
		if err != nil {
			return out, fmt.Errorf("%s: DTSTART: %w", ev.ID, err)
		}
		ev.Start = day.UTC()
		ev.End = day.AddDate(0, 0, 1).UTC()
	} else {
		start, err := instant(dtStart, ve.GetStartAt, loc)
		if err != nil {
			return out, fmt.Errorf("%s: DTSTART: %w", ev.ID, err)
		}
		ev.Start = start.UTC()
		ev.End = ev.Start
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
			end, err := instant(dtEnd, ve.GetEndAt, loc)
			if err != nil {
				return out, fmt.Errorf("%s: DTEND: %w", ev.ID, err)
			}
			ev.End = end.UTC()
		}
		if p := dtStart.ICalParameters["TZID"]; len(p) > 0 {
			ev.Timezone = p[0]
		}
	}

	if ve.GetProperty(ical.ComponentPropertyRrule) != nil {
		out.Recurring = true
	}

	if err := ev.Validate(); err != nil {
		return out, err
	}
	out.Event = ev
	return out, nil
}

// instant resolves a DATE-TIME property. Floating values (no TZID, no
// trailing Z) are local to loc; everything else goes through get.
func instant(p *ical.IANAProperty, get func() (time.Time, error), loc *time.Location) (time.Time, error) {
	v := strings.TrimSpace(p.Value)
	if _, hasTZID := p.ICalParameters["TZID"]; !hasTZID && !strings.HasSuffix(v, "Z") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return get()
}

// isDateValue detects all-day values: VALUE=DATE or no 'T' in the value.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// Draft converts a parsed event into a create request in zone, since the
// event service takes wall-clock input.
func (p ParsedEvent) Draft(zone string) (model.Draft, error) {
	loc, err := tzconv.Location(zone)
	if err != nil {
		return model.Draft{}, err
	}
	const layout = "2006-01-02T15:04"
	return model.Draft{
		Title:         p.Event.Title,
		StartDateTime: p.Event.Start.In(loc).Format(layout),
		EndDateTime:   p.Event.End.In(loc).Format(layout),
		Timezone:      zone,
		Description:   p.Event.Description,
		Color:         p.Event.Color,
	}, nil
}
