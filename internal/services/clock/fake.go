package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced clock for tests. Timers run synchronously
// inside Advance/Set, in due order, without holding the clock's lock.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *Fake
	id      int
	due     time.Time
	f       func()
	stopped bool
	fired   bool
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Fake) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{c: c, id: c.seq, due: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Pending returns the number of timers that have neither fired nor stopped.
func (c *Fake) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, running due timers.
func (c *Fake) Advance(d time.Duration) {
	c.Set(c.Now().Add(d))
}

// Set jumps the clock to t (backwards jumps are allowed) and runs every
// timer due at or before t.
func (c *Fake) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	var due []*fakeTimer
	for _, tm := range c.timers {
		if !tm.stopped && !tm.fired && !tm.due.After(t) {
			tm.fired = true
			due = append(due, tm)
		}
	}
	c.compactLocked()
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].id < due[j].id
		}
		return due[i].due.Before(due[j].due)
	})
	for _, tm := range due {
		tm.f()
	}
}

func (c *Fake) compactLocked() {
	kept := c.timers[:0]
	for _, tm := range c.timers {
		if !tm.stopped && !tm.fired {
			kept = append(kept, tm)
		}
	}
	c.timers = kept
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
