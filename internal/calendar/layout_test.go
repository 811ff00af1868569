package calendar

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tzcal/internal/model"
)

func weekGrid(t *testing.T, anchor string) Grid {
	t.Helper()
	v := NewViewState(ViewWeek, d(anchor))
	return BuildGrid(v, geom48, GridOptions{
		WeekStart: time.Monday,
		Now:       time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
	})
}

func utc(y int, m time.Month, day, h, min int) time.Time {
	return time.Date(y, m, day, h, min, 0, 0, time.UTC)
}

func TestLayoutScenario(t *testing.T) {
	g := weekGrid(t, "2024-03-10")
	ev := model.Event{
		ID:    "e1",
		Title: "Planning",
		Start: utc(2024, 3, 10, 9, 0),
		End:   utc(2024, 3, 10, 10, 30),
	}

	out, skipped := LayoutEvents([]model.Event{ev}, g, nil, geom48, time.UTC)
	require.Empty(t, skipped)
	require.Len(t, out, 1)
	assert.Equal(t, 432.0, out[0].TopOffsetPx)
	assert.Equal(t, 72.0, out[0].HeightPx)
	assert.Equal(t, d("2024-03-10"), out[0].ColumnDate)
	assert.Equal(t, 6, out[0].Column)
	assert.Equal(t, model.DefaultColor, out[0].Color)
}

func TestLayoutHeightMatchesDuration(t *testing.T) {
	g := weekGrid(t, "2024-03-06")
	durations := []time.Duration{0, 15 * time.Minute, 45 * time.Minute, 3*time.Hour + 20*time.Minute}
	for _, dur := range durations {
		start := utc(2024, 3, 5, 7, 10)
		ev := model.Event{ID: "x", Start: start, End: start.Add(dur)}
		out, _ := LayoutEvents([]model.Event{ev}, g, nil, geom48, time.UTC)
		require.Len(t, out, 1)
		assert.InDelta(t, dur.Minutes()/60*48, out[0].HeightPx, 1e-9)
	}
}

func TestLayoutOutsideRange(t *testing.T) {
	g := weekGrid(t, "2024-03-06")
	ev := model.Event{ID: "later", Start: utc(2024, 4, 1, 9, 0), End: utc(2024, 4, 1, 10, 0)}

	out, skipped := LayoutEvents([]model.Event{ev}, g, nil, geom48, time.UTC)
	assert.Empty(t, out)
	assert.Empty(t, skipped)
}

func TestLayoutSkipsMalformedOnly(t *testing.T) {
	g := weekGrid(t, "2024-03-06")
	events := []model.Event{
		{ID: "bad", Start: utc(2024, 3, 5, 10, 0), End: utc(2024, 3, 5, 9, 0)},
		{ID: "good", Start: utc(2024, 3, 5, 9, 0), End: utc(2024, 3, 5, 10, 0)},
		{ID: "nozone", Start: utc(2024, 3, 5, 9, 0)},
	}

	out, skipped := LayoutEvents(events, g, []string{"UTC"}, geom48, time.UTC)
	require.Len(t, out, 1)
	assert.Equal(t, "good", out[0].Event.ID)
	require.Len(t, skipped, 2)
	assert.Equal(t, "bad", skipped[0].ID)
	assert.Equal(t, "nozone", skipped[1].ID)
}

func TestLayoutZoneLabels(t *testing.T) {
	g := weekGrid(t, "2024-03-06")
	ev := model.Event{
		ID:    "e",
		Start: utc(2024, 3, 5, 9, 0),
		End:   utc(2024, 3, 5, 10, 30),
		Color: mo.Some("#00ff00"),
	}
	zones := []string{"Asia/Tokyo", "UTC", "America/New_York"}

	out, _ := LayoutEvents([]model.Event{ev}, g, zones, geom48, time.UTC)
	require.Len(t, out, 1)
	assert.Equal(t, "#00ff00", out[0].Color)
	assert.Equal(t, []ZoneLabel{
		{Zone: "Asia/Tokyo", Start: "18:00", End: "19:30"},
		{Zone: "UTC", Start: "09:00", End: "10:30"},
		{Zone: "America/New_York", Start: "04:00", End: "05:30"},
	}, out[0].ZoneLabels)
	assert.Equal(t, "Asia/Tokyo: 18:00–19:30\nUTC: 09:00–10:30\nAmerica/New_York: 04:00–05:30", out[0].PerZoneLabel)

	_, skipped := LayoutEvents([]model.Event{ev}, g, []string{"Not/AZone"}, geom48, time.UTC)
	assert.Len(t, skipped, 1)
}

func TestLayoutReferenceZoneColumn(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	v := NewViewState(ViewWeek, d("2024-03-06"))
	g := BuildGrid(v, geom48, GridOptions{Reference: tokyo, WeekStart: time.Monday})

	// 20:00 UTC on the 5th is 05:00 on the 6th in Tokyo.
	ev := model.Event{ID: "e", Start: utc(2024, 3, 5, 20, 0), End: utc(2024, 3, 5, 21, 0)}
	out, _ := LayoutEvents([]model.Event{ev}, g, nil, geom48, tokyo)
	require.Len(t, out, 1)
	assert.Equal(t, d("2024-03-06"), out[0].ColumnDate)
	assert.Equal(t, 5*48.0, out[0].TopOffsetPx)
}

func TestLayoutClipsAtMidnight(t *testing.T) {
	g := weekGrid(t, "2024-03-06")
	ev := model.Event{ID: "late", Start: utc(2024, 3, 5, 23, 0), End: utc(2024, 3, 6, 1, 0)}

	out, _ := LayoutEvents([]model.Event{ev}, g, nil, geom48, time.UTC)
	require.Len(t, out, 1)
	assert.Equal(t, 23*48.0, out[0].TopOffsetPx)
	assert.Equal(t, 48.0, out[0].HeightPx)
}

func TestLayoutConcurrentEventsNotResolved(t *testing.T) {
	g := weekGrid(t, "2024-03-06")
	events := []model.Event{
		{ID: "a", Start: utc(2024, 3, 5, 9, 0), End: utc(2024, 3, 5, 10, 0)},
		{ID: "b", Start: utc(2024, 3, 5, 9, 0), End: utc(2024, 3, 5, 10, 0)},
	}
	out, _ := LayoutEvents(events, g, nil, geom48, time.UTC)
	require.Len(t, out, 2)
	assert.Equal(t, out[0].TopOffsetPx, out[1].TopOffsetPx)
	assert.Equal(t, out[0].Column, out[1].Column)
}

func TestMonthEventIDs(t *testing.T) {
	weeks := buildMonth(NewViewState(ViewMonth, d("2024-03-01")), time.Monday, Date{})
	MonthEventIDs(weeks, []model.Event{
		{ID: "a", Start: utc(2024, 3, 5, 9, 0), End: utc(2024, 3, 5, 10, 0)},
		{ID: "b", Start: utc(2024, 3, 5, 12, 0), End: utc(2024, 3, 5, 13, 0)},
		{ID: "broken", Start: utc(2024, 3, 5, 12, 0)},
	}, nil)

	for _, week := range weeks {
		for _, c := range week {
			if c.Date == d("2024-03-05") {
				assert.Equal(t, []string{"a", "b"}, c.EventIDs)
			} else {
				assert.Empty(t, c.EventIDs)
			}
		}
	}
}
