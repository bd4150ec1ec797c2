package trigger

import (
	"time"

	"sleeptimer/internal/schedule"
)

type Phase int

const (
	Idle Phase = iota
	Armed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	default:
		return "unknown"
	}
}

// State is a snapshot of the machine. Target, Warned and Episode are only
// meaningful while Armed.
type State struct {
	Phase   Phase
	Target  time.Time
	Warned  bool
	Episode string
}

type IntentKind string

const (
	IntentTimerStarted  IntentKind = "timer.started"
	IntentWarn          IntentKind = "timer.warned"
	IntentFire          IntentKind = "timer.fired"
	IntentSnoozed       IntentKind = "timer.snoozed"
	IntentCancelled     IntentKind = "timer.cancelled"
	IntentScheduleRearm IntentKind = "timer.rearm_scheduled"
)

// Intent is a side effect the host must carry out after a transition.
type Intent struct {
	Kind    IntentKind
	Episode string
	Target  time.Time
	// Remaining is set for warnings.
	Remaining time.Duration
	// Rearm and Delay are set for IntentScheduleRearm.
	Rearm RearmHandle
	Delay time.Duration
}

// RearmHandle identifies one deferred re-arm. Only the most recently issued
// handle is honoured; anything older is stale.
type RearmHandle uint64

// Config holds the timing knobs. Zero fields fall back to the defaults.
type Config struct {
	WarnBefore time.Duration
	Snooze     time.Duration
	RearmDelay time.Duration
	NotBefore  time.Duration
}

const (
	DefaultWarnBefore = 60 * time.Second
	DefaultSnooze     = 5 * time.Minute
	DefaultRearmDelay = 2 * time.Second
)

func (c Config) withDefaults() Config {
	if c.WarnBefore <= 0 {
		c.WarnBefore = DefaultWarnBefore
	}
	if c.Snooze <= 0 {
		c.Snooze = DefaultSnooze
	}
	if c.RearmDelay <= 0 {
		c.RearmDelay = DefaultRearmDelay
	}
	if c.NotBefore <= 0 {
		c.NotBefore = schedule.DefaultNotBefore
	}
	return c
}
