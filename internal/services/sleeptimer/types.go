// Package sleeptimer owns the weekly schedule and the countdown machine and
// carries out the machine's intents: notifications, the sleep action, the
// deferred re-arm, persistence and event publishing.
package sleeptimer

import (
	"context"
	"time"

	"sleeptimer/internal/eventbus"
	"sleeptimer/internal/schedule"
	"sleeptimer/internal/services/clock"
	"sleeptimer/internal/storage"
	"sleeptimer/internal/trigger"
	"sleeptimer/pkg/logx"
)

// Notifier receives the pre-sleep warning. Implementations must not block
// on delivery.
type Notifier interface {
	Warn(ctx context.Context, title, body string) error
}

// Executor puts the host to sleep.
type Executor interface {
	Name() string
	SleepNow(ctx context.Context) error
}

const (
	DefaultWarnTitle     = "Sleep Timer"
	DefaultWarnBody      = "Your computer will sleep in 1 minute"
	DefaultActionTimeout = 30 * time.Second
	DefaultSaveTimeout   = 5 * time.Second
)

type Config struct {
	Timing        trigger.Config
	WarnTitle     string
	WarnBody      string
	ActionTimeout time.Duration
	SaveTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.WarnTitle == "" {
		c.WarnTitle = DefaultWarnTitle
	}
	if c.WarnBody == "" {
		c.WarnBody = DefaultWarnBody
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = DefaultActionTimeout
	}
	if c.SaveTimeout <= 0 {
		c.SaveTimeout = DefaultSaveTimeout
	}
	return c
}

// Deps are the collaborators. Store, Notifier, Executor and Bus may be nil.
type Deps struct {
	Clock    clock.Clock
	Store    storage.Store
	Notifier Notifier
	Executor Executor
	Bus      eventbus.Bus
	Log      logx.Logger
	// MachineOptions are passed to trigger.New (tests pin episode ids).
	MachineOptions []trigger.Option
}

// Status is a point-in-time view for the CLI and the control API.
type Status struct {
	Now           time.Time     `json:"now"`
	Phase         string        `json:"phase"`
	Target        time.Time     `json:"target,omitzero"`
	Remaining     time.Duration `json:"remaining_ns"`
	RemainingText string        `json:"remaining"`
	Warned        bool          `json:"warned"`
	Episode       string        `json:"episode,omitempty"`
	Next          time.Time     `json:"next,omitzero"`
	NextText      string        `json:"next_text,omitempty"`
	LastFired     time.Time     `json:"last_fired,omitzero"`
	Schedule      schedule.Week `json:"schedule"`
}
