// Package control serves the local HTTP API used by the CLI: status,
// schedule edits, arm/cancel/snooze, an upcoming-occurrence preview and an
// iCalendar export of the schedule.
package control

import (
	"context"
	"time"

	"sleeptimer/internal/runtime/supervisor"
	"sleeptimer/internal/schedule"
	"sleeptimer/internal/services/sleeptimer"
	"sleeptimer/internal/storage"
)

// Timer is the part of the scheduling service the API drives.
type Timer interface {
	Status() sleeptimer.Status
	Schedule() schedule.Week
	SetDay(ctx context.Context, index int, day schedule.Day) error
	Arm()
	Cancel()
	Snooze(ext time.Duration) bool
	Upcoming(n int) []time.Time
}

const (
	DefaultAddr    = "127.0.0.1:7412"
	maxUpcoming    = 64
	maxRequestBody = 4 << 10
)

type Config struct {
	Addr  string
	Token string
	// Pprof mounts net/http/pprof under /debug/pprof/.
	Pprof bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type Option func(*Service)

// WithSupervisor adds goroutine stats to /api/status.
func WithSupervisor(sup *supervisor.Supervisor) Option {
	return func(s *Service) { s.sup = sup }
}

// WithEvents serves the audit journal on /api/events.
func WithEvents(store storage.Store) Option {
	return func(s *Service) { s.events = store }
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	sleeptimer.Status
	Runtime *supervisor.Snapshot `json:"runtime,omitempty"`
}

// DayRequest is the body of PUT /api/schedule/{day}. Time ("HH:MM", "off"
// or "on") wins over the explicit fields when set.
type DayRequest struct {
	Time    string `json:"time,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
	Hour    *int   `json:"hour,omitempty"`
	Minute  *int   `json:"minute,omitempty"`
}

// SnoozeResponse is the body of POST /api/snooze.
type SnoozeResponse struct {
	Snoozed bool              `json:"snoozed"`
	Status  sleeptimer.Status `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}
