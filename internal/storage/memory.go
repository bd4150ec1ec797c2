package storage

import (
	"context"
	"sync"

	"sleeptimer/internal/schedule"
)

// memoryEventCap bounds the in-memory journal.
const memoryEventCap = 512

type memoryStore struct {
	mu     sync.Mutex
	week   schedule.Week
	saved  bool
	events []Event
	closed bool
}

// NewMemory returns a store that keeps everything in process memory.
func NewMemory() Store { return &memoryStore{} }

func (s *memoryStore) SaveSchedule(ctx context.Context, w schedule.Week) error {
	_ = ctx
	if err := w.Validate(); err != nil {
		return wrap("save schedule", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return wrap("save schedule", ErrClosed)
	}
	s.week, s.saved = w, true
	return nil
}

func (s *memoryStore) LoadSchedule(ctx context.Context) (schedule.Week, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return schedule.DefaultWeek(), false, wrap("load schedule", ErrClosed)
	}
	if !s.saved {
		return schedule.DefaultWeek(), false, nil
	}
	return s.week, true, nil
}

func (s *memoryStore) AppendEvent(ctx context.Context, e Event) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return wrap("append event", ErrClosed)
	}
	s.events = append(s.events, e)
	if over := len(s.events) - memoryEventCap; over > 0 {
		s.events = append(s.events[:0:0], s.events[over:]...)
	}
	return nil
}

func (s *memoryStore) RecentEvents(ctx context.Context, n int) ([]Event, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, wrap("recent events", ErrClosed)
	}
	return tail(s.events, n), nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func tail(in []Event, n int) []Event {
	if n <= 0 || n > len(in) {
		n = len(in)
	}
	return append([]Event(nil), in[len(in)-n:]...)
}
