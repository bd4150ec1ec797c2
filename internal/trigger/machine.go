// Package trigger implements the countdown state machine that arms the next
// scheduled sleep, warns shortly before it, fires it once and re-arms.
//
// The machine is pure: it never reads the wall clock, starts goroutines or
// performs I/O. Callers feed it events with explicit timestamps and execute
// the returned intents. It is not safe for concurrent use; the owning service
// serialises access.
package trigger

import (
	"time"

	"github.com/google/uuid"

	"sleeptimer/internal/schedule"
)

type Machine struct {
	cfg   Config
	state State

	lastFired    time.Time
	hasLastFired bool

	// pending is the only deferred re-arm allowed to apply; 0 means none.
	pending RearmHandle
	seq     uint64

	newEpisode func() string
}

type Option func(*Machine)

// WithEpisodeIDs overrides episode id generation (tests use a counter).
func WithEpisodeIDs(fn func() string) Option {
	return func(m *Machine) {
		if fn != nil {
			m.newEpisode = fn
		}
	}
}

func New(cfg Config, opts ...Option) *Machine {
	m := &Machine{
		cfg:        cfg.withDefaults(),
		newEpisode: uuid.NewString,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Apply swaps the timing knobs. An armed episode keeps its target.
func (m *Machine) Apply(cfg Config) { m.cfg = cfg.withDefaults() }

func (m *Machine) Config() Config { return m.cfg }

func (m *Machine) State() State { return m.state }

// LastFired returns the minute-truncated target of the last executed
// occurrence.
func (m *Machine) LastFired() (time.Time, bool) { return m.lastFired, m.hasLastFired }

// PendingRearm returns the outstanding deferred re-arm handle, if any.
func (m *Machine) PendingRearm() (RearmHandle, bool) { return m.pending, m.pending != 0 }

// Remaining is the time left until the target, clamped at zero, and zero
// while Idle.
func (m *Machine) Remaining(now time.Time) time.Duration {
	if m.state.Phase != Armed {
		return 0
	}
	if d := m.state.Target.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Rearm arms the next occurrence of w when Idle. It is a no-op while Armed.
func (m *Machine) Rearm(now time.Time, w schedule.Week) []Intent {
	if m.state.Phase == Armed {
		return nil
	}
	m.pending = 0

	next, ok := schedule.NextOccurrence(now, w, m.cfg.NotBefore)
	if !ok {
		return nil
	}
	if m.hasLastFired && schedule.SameMinute(m.lastFired, next) {
		return nil
	}

	m.state = State{Phase: Armed, Target: next, Episode: m.newEpisode()}
	return []Intent{{Kind: IntentTimerStarted, Episode: m.state.Episode, Target: next}}
}

// ScheduleChanged re-evaluates after a schedule edit. Edits while Armed do
// not move the running countdown.
func (m *Machine) ScheduleChanged(now time.Time, w schedule.Week) []Intent {
	return m.Rearm(now, w)
}

// DeferredRearm applies a re-arm scheduled by a fire transition, unless it
// has been superseded since.
func (m *Machine) DeferredRearm(h RearmHandle, now time.Time, w schedule.Week) []Intent {
	if h == 0 || h != m.pending {
		return nil
	}
	return m.Rearm(now, w)
}

func (m *Machine) Tick(now time.Time) []Intent {
	if m.state.Phase != Armed {
		return nil
	}
	remaining := m.Remaining(now)
	switch {
	case remaining == 0:
		return m.fire()
	case remaining <= m.cfg.WarnBefore && !m.state.Warned:
		m.state.Warned = true
		return []Intent{{Kind: IntentWarn, Episode: m.state.Episode, Target: m.state.Target, Remaining: remaining}}
	default:
		return nil
	}
}

func (m *Machine) fire() []Intent {
	fired := m.state
	m.lastFired = schedule.TruncateMinute(fired.Target)
	m.hasLastFired = true
	m.state = State{Phase: Idle}

	m.seq++
	m.pending = RearmHandle(m.seq)

	return []Intent{
		{Kind: IntentFire, Episode: fired.Episode, Target: fired.Target},
		{Kind: IntentScheduleRearm, Episode: fired.Episode, Target: fired.Target, Rearm: m.pending, Delay: m.cfg.RearmDelay},
	}
}

// Cancel stops an armed countdown. While Idle it only invalidates a pending
// deferred re-arm.
func (m *Machine) Cancel() []Intent {
	m.pending = 0
	if m.state.Phase != Armed {
		return nil
	}
	cancelled := m.state
	m.state = State{Phase: Idle}
	return []Intent{{Kind: IntentCancelled, Episode: cancelled.Episode, Target: cancelled.Target}}
}

// Snooze pushes the target back by ext (the configured snooze when ext <= 0)
// and re-enables the warning.
func (m *Machine) Snooze(ext time.Duration) []Intent {
	if m.state.Phase != Armed {
		return nil
	}
	if ext <= 0 {
		ext = m.cfg.Snooze
	}
	m.state.Target = m.state.Target.Add(ext)
	m.state.Warned = false
	return []Intent{{Kind: IntentSnoozed, Episode: m.state.Episode, Target: m.state.Target}}
}
