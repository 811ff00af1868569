package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	appLog "tzcal/internal/log"
	"tzcal/internal/model"
	"tzcal/internal/tzconv"
)

// ErrInvalidEvent marks events that layout skipped because their data is
// malformed.
var ErrInvalidEvent = errors.New("invalid event")

// ZoneLabel is an event's start/end projected into one zone.
type ZoneLabel struct {
	Zone  string `json:"zone"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func (l ZoneLabel) String() string {
	return l.Zone + ": " + l.Start + "–" + l.End
}

// PositionedEvent is an event placed in a day column.
type PositionedEvent struct {
	Event       model.Event `json:"event"`
	ColumnDate  Date        `json:"column_date"`
	Column      int         `json:"column"`
	TopOffsetPx float64     `json:"top_offset_px"`
	HeightPx    float64     `json:"height_px"`
	Color       string      `json:"color"`
	ZoneLabels  []ZoneLabel `json:"zone_labels"`
	// PerZoneLabel is ZoneLabels rendered one per line.
	PerZoneLabel string `json:"per_zone_label"`
}

// SkippedEvent records an event that could not be laid out.
type SkippedEvent struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// LayoutEvents places events onto the hour-grid columns of grid.
//
// An event goes into the column whose date equals the event start's date in
// ref. Events outside the visible range are silently left out. Malformed
// events are skipped and reported; one bad event never affects the others.
// Concurrent events are not de-overlapped.
func LayoutEvents(events []model.Event, grid Grid, zones []string, geom GridGeometry, ref *time.Location) ([]PositionedEvent, []SkippedEvent) {
	if ref == nil {
		ref = time.UTC
	}

	columns := make(map[Date]int, len(grid.Columns))
	for i, c := range grid.Columns {
		columns[c.Date] = i
	}

	positioned := make([]PositionedEvent, 0, len(events))
	var skipped []SkippedEvent
	for _, ev := range events {
		pe, ok, err := layoutOne(ev, columns, zones, geom, ref)
		if err != nil {
			appLog.Error("layout: skipping event", err, "id", ev.ID)
			skipped = append(skipped, SkippedEvent{ID: ev.ID, Reason: err.Error()})
			continue
		}
		if ok {
			positioned = append(positioned, pe)
		}
	}
	return positioned, skipped
}

func layoutOne(ev model.Event, columns map[Date]int, zones []string, geom GridGeometry, ref *time.Location) (PositionedEvent, bool, error) {
	if err := ev.Validate(); err != nil {
		return PositionedEvent{}, false, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	start := ev.Start.In(ref)
	end := ev.End.In(ref)
	startDate := DateOf(start)

	col, ok := columns[startDate]
	if !ok {
		return PositionedEvent{}, false, nil
	}

	labels := make([]ZoneLabel, 0, len(zones))
	lines := make([]string, 0, len(zones))
	for _, zone := range zones {
		zs, err := tzconv.ToZoned(ev.Start, zone)
		if err != nil {
			return PositionedEvent{}, false, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		ze, err := tzconv.ToZoned(ev.End, zone)
		if err != nil {
			return PositionedEvent{}, false, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		l := ZoneLabel{Zone: zone, Start: zs.Time, End: ze.Time}
		labels = append(labels, l)
		lines = append(lines, l.String())
	}

	startMin := tzconv.MinutesOfDay(start)
	endMin := tzconv.MinutesOfDay(end)
	if DateOf(end) != startDate {
		// Ends on a later day: run to the bottom of the column.
		endMin = HoursPerDay * minutesPerHour
	}

	return PositionedEvent{
		Event:        ev,
		ColumnDate:   startDate,
		Column:       col,
		TopOffsetPx:  geom.OffsetPx(startMin),
		HeightPx:     geom.OffsetPx(endMin - startMin),
		Color:        ev.BlockColor(),
		ZoneLabels:   labels,
		PerZoneLabel: strings.Join(lines, "\n"),
	}, true, nil
}

// MonthEventIDs fills EventIDs on month cells with the events starting on
// each date in ref. Invalid events are ignored.
func MonthEventIDs(weeks [][]MonthCell, events []model.Event, ref *time.Location) {
	if ref == nil {
		ref = time.UTC
	}
	byDate := make(map[Date][]string)
	for _, ev := range events {
		if ev.Validate() != nil {
			continue
		}
		d := DateOf(ev.Start.In(ref))
		byDate[d] = append(byDate[d], ev.ID)
	}
	for w := range weeks {
		for i := range weeks[w] {
			weeks[w][i].EventIDs = byDate[weeks[w][i].Date]
		}
	}
}
