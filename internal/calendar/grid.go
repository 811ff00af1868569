package calendar

import (
	"fmt"
	"time"

	"tzcal/internal/tzconv"
)

// HourCell is one hour row of a day column.
type HourCell struct {
	Date Date `json:"date"`
	Hour int  `json:"hour"`
	// Start is the absolute instant the cell begins at in the reference zone.
	Start time.Time `json:"start"`
	// ZoneTimes holds "<zone>: HH:MM" for every selected zone, in display order.
	ZoneTimes []string `json:"zone_times,omitempty"`
}

// DayColumn is a freshly built column; columns are never mutated after a
// build.
type DayColumn struct {
	Date  Date       `json:"date"`
	Today bool       `json:"today"`
	Cells []HourCell `json:"cells"`
}

// HourLabel is an hour caption in the time gutter. Labels are in the
// reference zone, not in any selected zone.
type HourLabel struct {
	Hour     int     `json:"hour"`
	Text     string  `json:"text"`
	OffsetPx float64 `json:"offset_px"`
}

// MonthCell is one date of the month view.
type MonthCell struct {
	Date     Date     `json:"date"`
	InMonth  bool     `json:"in_month"`
	Today    bool     `json:"today"`
	EventIDs []string `json:"event_ids,omitempty"`
}

// Grid is the skeleton produced by BuildGrid. Exactly one of Columns or
// Weeks is populated, depending on the mode.
type Grid struct {
	Mode       ViewMode    `json:"mode"`
	Title      string      `json:"title"`
	RangeStart Date        `json:"range_start"`
	Columns    []DayColumn `json:"columns,omitempty"`
	Labels     []HourLabel `json:"labels,omitempty"`
	HeightPx   float64     `json:"height_px,omitempty"`

	Weeks [][]MonthCell `json:"weeks,omitempty"`
}

// GridOptions carries everything BuildGrid needs besides the view and
// geometry.
type GridOptions struct {
	// Reference is the zone column dates, "today" and hour labels are
	// computed in. Nil means UTC.
	Reference *time.Location
	WeekStart time.Weekday
	Now       time.Time
	// Zones are the selected display zones used for cell annotations.
	Zones []string
}

func (o GridOptions) reference() *time.Location {
	if o.Reference == nil {
		return time.UTC
	}
	return o.Reference
}

// BuildGrid computes the grid for view. It has no side effects: calling it
// twice with the same inputs yields equal grids.
func BuildGrid(view ViewState, geom GridGeometry, opts GridOptions) Grid {
	ref := opts.reference()
	today := DateOf(opts.Now.In(ref))

	g := Grid{
		Mode:       view.Mode,
		Title:      view.Title(),
		RangeStart: view.RangeStart(opts.WeekStart),
	}

	if !view.Mode.HasHourGrid() {
		g.Weeks = buildMonth(view, opts.WeekStart, today)
		return g
	}

	zoneLocs := resolveZones(opts.Zones)

	g.HeightPx = geom.HeightPx()
	g.Labels = hourLabels(geom)
	g.Columns = make([]DayColumn, 0, view.DayCount())
	for offset := 0; offset < view.DayCount(); offset++ {
		date := g.RangeStart.AddDays(offset)
		col := DayColumn{
			Date:  date,
			Today: date == today,
			Cells: make([]HourCell, HoursPerDay),
		}
		for hour := 0; hour < HoursPerDay; hour++ {
			start := time.Date(date.Year, date.Month, date.Day, hour, 0, 0, 0, ref)
			col.Cells[hour] = HourCell{
				Date:      date,
				Hour:      hour,
				Start:     start,
				ZoneTimes: zoneTimes(start, zoneLocs),
			}
		}
		g.Columns = append(g.Columns, col)
	}
	return g
}

// TodayColumn returns the index of the column flagged as today, or -1.
func (g Grid) TodayColumn() int {
	for i, c := range g.Columns {
		if c.Today {
			return i
		}
	}
	return -1
}

func hourLabels(geom GridGeometry) []HourLabel {
	labels := make([]HourLabel, HoursPerDay)
	for hour := 0; hour < HoursPerDay; hour++ {
		labels[hour] = HourLabel{
			Hour:     hour,
			Text:     fmt.Sprintf("%02d:00", hour),
			OffsetPx: geom.OffsetPx(hour * minutesPerHour),
		}
	}
	return labels
}

type zoneLoc struct {
	name string
	loc  *time.Location
}

// resolveZones drops zones the database cannot load; TimezoneSet already
// validates on insert so this only guards hand-built inputs.
func resolveZones(zones []string) []zoneLoc {
	out := make([]zoneLoc, 0, len(zones))
	for _, z := range zones {
		loc, err := tzconv.Location(z)
		if err != nil {
			continue
		}
		out = append(out, zoneLoc{name: z, loc: loc})
	}
	return out
}

func zoneTimes(t time.Time, zones []zoneLoc) []string {
	if len(zones) == 0 {
		return nil
	}
	out := make([]string, len(zones))
	for i, z := range zones {
		out[i] = z.name + ": " + t.In(z.loc).Format("15:04")
	}
	return out
}

// buildMonth lays out whole weeks covering the anchor's month.
func buildMonth(view ViewState, weekStart time.Weekday, today Date) [][]MonthCell {
	first := Date{Year: view.Anchor.Year, Month: view.Anchor.Month, Day: 1}
	last := Date{Year: first.Year, Month: first.Month, Day: daysIn(first.Year, first.Month)}

	var weeks [][]MonthCell
	for day := first.StartOfWeek(weekStart); !last.Before(day); {
		week := make([]MonthCell, 7)
		for i := range week {
			week[i] = MonthCell{
				Date:    day,
				InMonth: day.Month == first.Month && day.Year == first.Year,
				Today:   day == today,
			}
			day = day.AddDays(1)
		}
		weeks = append(weeks, week)
	}
	return weeks
}
