package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sleeptimer/internal/schedule"
)

// ErrClosed is returned by every operation on a closed store.
var ErrClosed = errors.New("storage closed")

// Store is the persistence API used by the scheduling service and the audit
// recorder.
type Store interface {
	SaveSchedule(ctx context.Context, w schedule.Week) error
	// LoadSchedule reports ok=false when nothing has been saved yet.
	LoadSchedule(ctx context.Context) (w schedule.Week, ok bool, err error)
	AppendEvent(ctx context.Context, e Event) error
	// RecentEvents returns up to n events, newest last.
	RecentEvents(ctx context.Context, n int) ([]Event, error)
	Close() error
}

// Config configures storage.
//
// Driver values:
//   - "memory" (also "", "none")
//   - "file": Path is the schedule snapshot; the journal sits next to it
//   - "sqlite": Path is the database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Event is one journal record. Keep it compact and schema-stable.
type Event struct {
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"`
	Episode string    `json:"episode,omitempty"`
	Target  time.Time `json:"target,omitzero"`
	Detail  string    `json:"detail,omitempty"`
}

// PersistenceError wraps a failed load or save.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
