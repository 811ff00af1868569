// Package clock drives the live "now" refresh of the calendar.
package clock

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tzcal/internal/calendar"
	appLog "tzcal/internal/log"
)

// DefaultSpec fires at the top of every minute, which is the resolution of
// the indicator and the HH:MM readouts. "@every 1s" is the lighter readout
// variant.
const DefaultSpec = "* * * * *"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always returns T. Useful in tests and for rendering a fixed moment.
type Fixed struct{ T time.Time }

func (f Fixed) Now() time.Time { return f.T }

// Tick is the result of one refresh.
type Tick struct {
	Now       time.Time          `json:"now"`
	Indicator calendar.Indicator `json:"indicator"`
	Readouts  []calendar.Readout `json:"readouts"`
	// Layout is set when the view has an hour grid to refresh.
	Layout *calendar.Layout `json:"-"`
}

// Target is the state a LiveClock refreshes. Refresh must be safe to call
// from the scheduler goroutine.
type Target interface {
	Refresh(now time.Time) Tick
}

// SessionTarget refreshes a calendar.Session guarded by a mutex.
type SessionTarget struct {
	Mu      sync.Locker
	Session *calendar.Session
}

// Refresh recomputes readouts and the indicator and, unless the view is in
// month mode, a full grid/event layout.
func (t SessionTarget) Refresh(now time.Time) Tick {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	s := t.Session
	if !s.View.Mode.HasHourGrid() {
		return Tick{
			Now:       now,
			Indicator: calendar.Indicator{OffsetPx: s.Indicator(now, calendar.Grid{}).OffsetPx, Column: -1},
			Readouts:  s.Readouts(now),
		}
	}

	l := s.Rebuild(now)
	return Tick{
		Now:       now,
		Indicator: l.Indicator,
		Readouts:  l.Readouts,
		Layout:    &l,
	}
}

// LiveClock runs Target.Refresh on a cron schedule and hands each Tick to
// OnTick. Ticks never overlap; a late tick is skipped rather than queued.
type LiveClock struct {
	spec   string
	clock  Clock
	target Target
	onTick func(Tick)

	mu   sync.Mutex
	cron *cron.Cron
	last Tick
}

// New validates spec and returns a stopped LiveClock. An empty spec means
// DefaultSpec; a nil clock means System.
func New(spec string, c Clock, target Target, onTick func(Tick)) (*LiveClock, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("clock: invalid refresh spec %q: %w", spec, err)
	}
	if target == nil {
		return nil, errors.New("clock: target is nil")
	}
	if c == nil {
		c = System{}
	}
	return &LiveClock{
		spec:   spec,
		clock:  c,
		target: target,
		onTick: onTick,
	}, nil
}

// Tick runs one refresh immediately.
func (lc *LiveClock) Tick() Tick {
	now := lc.clock.Now()
	t := lc.target.Refresh(now)

	lc.mu.Lock()
	lc.last = t
	lc.mu.Unlock()

	appLog.Debug("clock tick", "now", now.Format(time.RFC3339), "readouts", len(t.Readouts), "layout", t.Layout != nil)
	if lc.onTick != nil {
		lc.onTick(t)
	}
	return t
}

// Last returns the most recent tick.
func (lc *LiveClock) Last() Tick {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.last
}

// Start runs an initial tick and starts the schedule.
func (lc *LiveClock) Start() error {
	lc.mu.Lock()
	if lc.cron != nil {
		lc.mu.Unlock()
		return errors.New("clock: already started")
	}
	logger := appLog.CronLogger()
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(lc.spec, func() { lc.Tick() }); err != nil {
		lc.mu.Unlock()
		return fmt.Errorf("clock: schedule: %w", err)
	}
	lc.cron = c
	lc.mu.Unlock()

	lc.Tick()
	c.Start()
	appLog.Info("live clock started", "spec", lc.spec)
	return nil
}

// Stop halts the schedule and waits for a running tick to finish.
func (lc *LiveClock) Stop() {
	lc.mu.Lock()
	c := lc.cron
	lc.cron = nil
	lc.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	appLog.Info("live clock stopped")
}
