// Package notify delivers the pre-sleep warning.
//
// Delivery is asynchronous and best-effort: Warn only enqueues, a worker
// pool drains the queue through a token-bucket limiter and fans each message
// out to every configured Sink. Identical messages inside the dedup window
// are suppressed. Failures are logged and published on the event bus, never
// returned to the caller.
package notify

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDisabled  = errors.New("notifier disabled")
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

// Bus topics published by the notifier.
const (
	TopicSent    = "notifier.sent"
	TopicFailed  = "notifier.failed"
	TopicDropped = "notifier.dropped"
	TopicDeduped = "notifier.deduped"
)

type Message struct {
	Title string
	Body  string
}

// Sink is one delivery channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, m Message) error
}

type Config struct {
	Enabled     bool
	Workers     int
	QueueSize   int
	RatePerSec  int
	RetryMax    int
	RetryBase   time.Duration
	SendTimeout time.Duration
	DedupWindow time.Duration
}

// Event is the payload of notifier.* bus events.
type Event struct {
	Sink  string `json:"sink,omitempty"`
	Title string `json:"title"`
	Error string `json:"error,omitempty"`
}

type HistoryItem struct {
	At    time.Time
	Sink  string
	Title string
}
