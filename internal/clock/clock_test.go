package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tzcal/internal/calendar"
)

var fixedNow = time.Date(2024, 3, 10, 9, 15, 0, 0, time.UTC)

func newTarget(t *testing.T) SessionTarget {
	t.Helper()
	s := calendar.NewSession(calendar.Options{
		WeekStart: time.Monday,
		Geometry:  calendar.NewGridGeometry(48),
		View:      calendar.ViewWeek,
	}, fixedNow)
	require.NoError(t, s.Zones.Add("Asia/Tokyo"))
	return SessionTarget{Mu: &sync.Mutex{}, Session: s}
}

func TestNewValidatesSpec(t *testing.T) {
	target := newTarget(t)

	_, err := New("every now and then", Fixed{fixedNow}, target, nil)
	assert.Error(t, err)

	_, err = New("", Fixed{fixedNow}, nil, nil)
	assert.Error(t, err)

	lc, err := New("", nil, target, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSpec, lc.spec)
	assert.IsType(t, System{}, lc.clock)
}

func TestTickRebuildsHourGrid(t *testing.T) {
	target := newTarget(t)
	var got []Tick
	lc, err := New("@every 1s", Fixed{fixedNow}, target, func(tk Tick) { got = append(got, tk) })
	require.NoError(t, err)

	tk := lc.Tick()
	require.Len(t, got, 1)
	assert.Equal(t, fixedNow, tk.Now)
	assert.Equal(t, (9*60+15)/60.0*48, tk.Indicator.OffsetPx)
	assert.Equal(t, 6, tk.Indicator.Column)
	assert.Equal(t, []calendar.Readout{{Zone: "Asia/Tokyo", Date: "2024-03-10", Time: "18:15"}}, tk.Readouts)
	require.NotNil(t, tk.Layout)
	assert.Len(t, tk.Layout.Grid.Columns, 7)
	assert.Equal(t, tk, lc.Last())
}

func TestTickSkipsGridInMonthView(t *testing.T) {
	target := newTarget(t)
	require.NoError(t, target.Session.SwitchView(calendar.ViewMonth))
	lc, err := New("", Fixed{fixedNow}, target, nil)
	require.NoError(t, err)

	tk := lc.Tick()
	assert.Nil(t, tk.Layout)
	assert.Equal(t, -1, tk.Indicator.Column)
	assert.Len(t, tk.Readouts, 1)
}

func TestStartStop(t *testing.T) {
	target := newTarget(t)
	ticks := make(chan Tick, 16)
	lc, err := New("@every 1s", Fixed{fixedNow}, target, func(tk Tick) {
		select {
		case ticks <- tk:
		default:
		}
	})
	require.NoError(t, err)

	require.NoError(t, lc.Start())
	assert.Error(t, lc.Start())

	select {
	case tk := <-ticks:
		assert.Equal(t, fixedNow, tk.Now)
	case <-time.After(3 * time.Second):
		t.Fatal("no tick received")
	}

	lc.Stop()
	lc.Stop()
}
