package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var geom48 = NewGridGeometry(48)

func TestBuildGridWeek(t *testing.T) {
	now := time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC)
	v := NewViewState(ViewWeek, d("2024-03-10"))

	g := BuildGrid(v, geom48, GridOptions{WeekStart: time.Monday, Now: now})

	require.Len(t, g.Columns, 7)
	assert.Equal(t, d("2024-03-04"), g.Columns[0].Date)
	for i := 1; i < len(g.Columns); i++ {
		assert.Equal(t, g.Columns[i-1].Date.AddDays(1), g.Columns[i].Date)
	}
	assert.Equal(t, 2, g.TodayColumn())
	assert.Equal(t, 48.0*24, g.HeightPx)

	for _, c := range g.Columns {
		require.Len(t, c.Cells, HoursPerDay)
		for h, cell := range c.Cells {
			assert.Equal(t, h, cell.Hour)
			assert.Equal(t, c.Date, cell.Date)
		}
	}

	require.Len(t, g.Labels, HoursPerDay)
	assert.Equal(t, HourLabel{Hour: 9, Text: "09:00", OffsetPx: 432}, g.Labels[9])
	assert.Nil(t, g.Weeks)
}

func TestBuildGridDay(t *testing.T) {
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	v := NewViewState(ViewDay, d("2024-03-10"))

	g := BuildGrid(v, geom48, GridOptions{Now: now})
	require.Len(t, g.Columns, 1)
	assert.Equal(t, d("2024-03-10"), g.Columns[0].Date)
	assert.True(t, g.Columns[0].Today)
}

func TestTodayFlagAtMostOnce(t *testing.T) {
	now := time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC)
	v := NewViewState(ViewWeek, d("2024-03-06"))

	for step := 0; step < 6; step++ {
		g := BuildGrid(v, geom48, GridOptions{WeekStart: time.Monday, Now: now})
		count := 0
		for _, c := range g.Columns {
			if c.Today {
				count++
			}
		}
		if step == 0 {
			assert.Equal(t, 1, count)
		} else {
			assert.Equal(t, 0, count, "step %d", step)
		}
		v.Navigate(1)
	}
}

func TestTodayUsesReferenceZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	// 2024-03-10 20:00 UTC is already 2024-03-11 in Tokyo.
	now := time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)
	v := NewViewState(ViewDay, d("2024-03-11"))

	g := BuildGrid(v, geom48, GridOptions{Reference: tokyo, Now: now})
	assert.True(t, g.Columns[0].Today)

	g = BuildGrid(v, geom48, GridOptions{Now: now})
	assert.False(t, g.Columns[0].Today)
}

func TestCellZoneTimes(t *testing.T) {
	v := NewViewState(ViewDay, d("2024-03-10"))
	g := BuildGrid(v, geom48, GridOptions{
		Now:   time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Zones: []string{"Asia/Tokyo", "America/Los_Angeles", "Broken/Zone"},
	})

	cell := g.Columns[0].Cells[9]
	assert.True(t, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC).Equal(cell.Start))
	assert.Equal(t, []string{"Asia/Tokyo: 18:00", "America/Los_Angeles: 01:00"}, cell.ZoneTimes)
}

func TestBuildGridIdempotent(t *testing.T) {
	now := time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC)
	v := NewViewState(ViewWeek, d("2024-03-06"))
	opts := GridOptions{WeekStart: time.Sunday, Now: now, Zones: []string{"UTC", "Europe/London"}}

	assert.Equal(t, BuildGrid(v, geom48, opts), BuildGrid(v, geom48, opts))
}

func TestBuildGridMonth(t *testing.T) {
	now := time.Date(2024, 2, 14, 12, 0, 0, 0, time.UTC)
	v := NewViewState(ViewMonth, d("2024-02-20"))

	g := BuildGrid(v, geom48, GridOptions{WeekStart: time.Monday, Now: now})
	assert.Nil(t, g.Columns)
	assert.Nil(t, g.Labels)
	assert.Equal(t, "February 2024", g.Title)

	// Feb 2024 starts on a Thursday: Jan 29 .. Mar 3 is five weeks.
	require.Len(t, g.Weeks, 5)
	assert.Equal(t, d("2024-01-29"), g.Weeks[0][0].Date)
	assert.False(t, g.Weeks[0][0].InMonth)
	assert.Equal(t, d("2024-03-03"), g.Weeks[4][6].Date)

	today := 0
	inMonth := 0
	for _, week := range g.Weeks {
		require.Len(t, week, 7)
		for _, c := range week {
			if c.Today {
				today++
				assert.Equal(t, d("2024-02-14"), c.Date)
			}
			if c.InMonth {
				inMonth++
			}
		}
	}
	assert.Equal(t, 1, today)
	assert.Equal(t, 29, inMonth)
}
