package clock

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"sleeptimer/pkg/logx"
)

// DefaultTick is the countdown resolution.
const DefaultTick = time.Second

// Ticker pushes the current time into a single-slot channel on a cron
// @every schedule. A tick that finds the slot full is dropped; the consumer
// derives remaining time from the timestamp it does receive.
type Ticker struct {
	mu sync.Mutex

	clk   Clock
	every time.Duration
	log   logx.Logger

	c  *cron.Cron
	ch chan time.Time

	dropped atomic.Uint64
}

// NewTicker builds a stopped ticker. Intervals below one second are raised to
// one second (cron's finest resolution).
func NewTicker(clk Clock, every time.Duration, log logx.Logger) *Ticker {
	if clk == nil {
		clk = Real{}
	}
	if every < time.Second {
		every = DefaultTick
	}
	return &Ticker{
		clk:   clk,
		every: every.Round(time.Second),
		log:   log,
		ch:    make(chan time.Time, 1),
	}
}

func (t *Ticker) C() <-chan time.Time { return t.ch }

func (t *Ticker) Every() time.Duration { return t.every }

// Dropped is the number of ticks discarded because the consumer lagged.
func (t *Ticker) Dropped() uint64 { return t.dropped.Load() }

func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.c != nil {
		return
	}
	loc := time.Local
	if r, ok := t.clk.(Real); ok && r.Location != nil {
		loc = r.Location
	}
	t.c = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{log: t.log}),
		cron.WithChain(cron.Recover(cronLogger{log: t.log})),
	)
	t.c.Schedule(cron.Every(t.every), cron.FuncJob(t.emit))
	t.c.Start()
	t.log.Debug("ticker started", logx.Duration("every", t.every))
}

func (t *Ticker) Stop() {
	t.mu.Lock()
	c := t.c
	t.c = nil
	t.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	t.log.Debug("ticker stopped", logx.Uint64("dropped", t.dropped.Load()))
}

func (t *Ticker) emit() {
	select {
	case t.ch <- t.clk.Now():
	default:
		t.dropped.Add(1)
	}
}

// Poke injects an out-of-band tick (used after host wake). It never blocks.
func (t *Ticker) Poke() { t.emit() }

// cronLogger routes robfig/cron's logr-style output into logx.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if !l.log.Enabled(logx.LevelDebug) {
		return
	}
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}
