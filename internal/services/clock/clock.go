// Package clock supplies wall time, one-shot timers and the periodic tick
// source that drives the sleep timer.
package clock

import "time"

// Clock is the time source used by the scheduling service.
type Clock interface {
	Now() time.Time
	// AfterFunc runs f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable one-shot.
type Timer interface {
	// Stop reports whether the call prevented f from running.
	Stop() bool
}

// Real is the wall clock in a fixed location (time.Local when nil).
type Real struct {
	Location *time.Location
}

func (r Real) Now() time.Time {
	if r.Location == nil {
		return time.Now()
	}
	return time.Now().In(r.Location)
}

func (r Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
