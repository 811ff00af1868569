package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tzcal/internal/model"
)

const sampleICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:timed@example.com\r\n" +
	"DTSTAMP:20240301T000000Z\r\n" +
	"DTSTART:20240310T090000Z\r\n" +
	"DTEND:20240310T103000Z\r\n" +
	"SUMMARY:Planning\r\n" +
	"DESCRIPTION:Quarterly\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:allday@example.com\r\n" +
	"DTSTAMP:20240301T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20240311\r\n" +
	"SUMMARY:Holiday\r\n" +
	"RRULE:FREQ=YEARLY\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTAMP:20240301T000000Z\r\n" +
	"DTSTART:20240312T090000Z\r\n" +
	"SUMMARY:No UID\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseICS(t *testing.T) {
	events, err := ParseICS([]byte(sampleICS), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 2)

	timed := events[0]
	assert.Equal(t, "timed@example.com", timed.Event.ID)
	assert.Equal(t, "Planning", timed.Event.Title)
	assert.Equal(t, "Quarterly", timed.Event.Description.OrEmpty())
	assert.True(t, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC).Equal(timed.Event.Start))
	assert.Equal(t, 90*time.Minute, timed.Event.End.Sub(timed.Event.Start))
	assert.False(t, timed.AllDay)

	allDay := events[1]
	assert.True(t, allDay.AllDay)
	assert.True(t, allDay.Recurring)
	assert.True(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC).Equal(allDay.Event.Start))
	assert.Equal(t, 24*time.Hour, allDay.Event.End.Sub(allDay.Event.Start))

	_, err = ParseICS(nil, nil)
	assert.Error(t, err)
}

func TestParseICSFloatingTimesUseLoc(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	prevLocal := time.Local
	time.Local = tokyo
	t.Cleanup(func() { time.Local = prevLocal })

	body := "BEGIN:VCALENDAR\r\n" +
		"VERSION:2.0\r\n" +
		"PRODID:-//test//test//EN\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:floating@example.com\r\n" +
		"DTSTAMP:20240301T000000Z\r\n" +
		"DTSTART:20240310T090000\r\n" +
		"DTEND:20240310T100000\r\n" +
		"SUMMARY:Floating\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	events, err := ParseICS([]byte(body), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC).Equal(events[0].Event.Start), events[0].Event.Start)
	assert.True(t, time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC).Equal(events[0].Event.End), events[0].Event.End)

	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	events, err = ParseICS([]byte(body), newYork)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC).Equal(events[0].Event.Start), events[0].Event.Start)
}

func TestExportThenParse(t *testing.T) {
	start := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	events := []model.Event{
		{ID: "e1", Title: "Sync", Start: start, End: start.Add(time.Hour), Color: mo.Some("#ff0000")},
		{ID: "e2", Title: "Lunch", Start: start.Add(3 * time.Hour), End: start.Add(4 * time.Hour), Description: mo.Some("Tacos")},
	}

	out := Export("Team", events, start)
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "PRODID:"+productID)

	parsed, err := ParseICS([]byte(out), time.UTC)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	assert.Equal(t, "e1", parsed[0].Event.ID)
	assert.Equal(t, "#ff0000", parsed[0].Event.Color.OrEmpty())
	assert.True(t, start.Equal(parsed[0].Event.Start))
	assert.Equal(t, "Tacos", parsed[1].Event.Description.OrEmpty())
}

func TestParsedEventDraft(t *testing.T) {
	p := ParsedEvent{Event: model.Event{
		Title: "Call",
		Start: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 10, 9, 45, 0, 0, time.UTC),
	}}

	d, err := p.Draft("Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10T18:00", d.StartDateTime)
	assert.Equal(t, "2024-03-10T18:45", d.EndDateTime)

	ev, err := d.Resolve()
	require.NoError(t, err)
	assert.True(t, p.Event.Start.Equal(ev.Start))

	_, err = p.Draft("Nope/Nope")
	assert.Error(t, err)
}

func TestFetcherUsesCacheOnNotModified(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(sampleICS))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	ctx := context.Background()

	body, fromCache, err := f.Fetch(ctx, srv.URL+"/feed.ics?token=abc")
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, sampleICS, string(body))

	body, fromCache, err = f.Fetch(ctx, srv.URL+"/feed.ics?token=abc")
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, sampleICS, string(body))
	assert.Equal(t, 2, hits)
}

func TestFetcherErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	_, _, err := NewFetcher("").Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/private.ics?token=x"))
	assert.Equal(t, "ics://...(redacted)", redactURL("example.com"))
}
