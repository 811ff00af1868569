package calendar

import (
	"fmt"
	"time"
)

type ViewMode string

const (
	ViewDay   ViewMode = "day"
	ViewWeek  ViewMode = "week"
	ViewMonth ViewMode = "month"
)

func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(s); m {
	case ViewDay, ViewWeek, ViewMonth:
		return m, nil
	default:
		return "", fmt.Errorf("unknown view mode %q", s)
	}
}

// HasHourGrid reports whether the mode is laid out on the 24-hour grid.
func (m ViewMode) HasHourGrid() bool {
	return m == ViewDay || m == ViewWeek
}

// ViewState is the visible window: a mode and an anchor date.
//
// In month mode the anchor's day-of-month is clamped to the target month
// when navigating, but the day the user started from is remembered so a
// forward step followed by a backward step lands on the original anchor.
type ViewState struct {
	Mode   ViewMode `json:"mode"`
	Anchor Date     `json:"anchor_date"`

	preferredDay int
}

func NewViewState(mode ViewMode, anchor Date) ViewState {
	if _, err := ParseViewMode(string(mode)); err != nil {
		mode = ViewWeek
	}
	return ViewState{Mode: mode, Anchor: anchor}
}

// SwitchView changes the mode and leaves the anchor untouched.
func (v *ViewState) SwitchView(mode ViewMode) error {
	if _, err := ParseViewMode(string(mode)); err != nil {
		return err
	}
	v.Mode = mode
	return nil
}

// Navigate moves the anchor one unit of the current mode. Only the sign of
// direction matters; zero is a no-op.
func (v *ViewState) Navigate(direction int) {
	switch {
	case direction > 0:
		direction = 1
	case direction < 0:
		direction = -1
	default:
		return
	}

	switch v.Mode {
	case ViewDay:
		v.Anchor = v.Anchor.AddDays(direction)
		v.preferredDay = 0
	case ViewWeek:
		v.Anchor = v.Anchor.AddDays(7 * direction)
		v.preferredDay = 0
	case ViewMonth:
		if v.preferredDay == 0 {
			v.preferredDay = v.Anchor.Day
		}
		v.Anchor = v.Anchor.AddMonths(direction, v.preferredDay)
	}
}

// GoToToday sets the anchor to today.
func (v *ViewState) GoToToday(today Date) {
	v.Anchor = today
	v.preferredDay = 0
}

// RangeStart is the first visible date: the anchor in day mode, the start of
// the anchor's week in week mode, and the first of the month in month mode.
func (v ViewState) RangeStart(weekStart time.Weekday) Date {
	switch v.Mode {
	case ViewDay:
		return v.Anchor
	case ViewMonth:
		return Date{Year: v.Anchor.Year, Month: v.Anchor.Month, Day: 1}
	default:
		return v.Anchor.StartOfWeek(weekStart)
	}
}

// DayCount is the number of hour-grid columns for the mode.
func (v ViewState) DayCount() int {
	switch v.Mode {
	case ViewDay:
		return 1
	case ViewWeek:
		return 7
	default:
		return 0
	}
}

// Title is the header text for the view.
func (v ViewState) Title() string {
	t := v.Anchor.In(time.UTC)
	if v.Mode == ViewMonth {
		return t.Format("January 2006")
	}
	return t.Format("January 2, 2006")
}
