package notify

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"sleeptimer/internal/eventbus"
	"sleeptimer/internal/runtime/supervisor"
	"sleeptimer/pkg/logx"
)

type job struct {
	m   Message
	key string
}

// Service is the async notification pipeline:
// queue + worker pool + rate limit + retry + dedup.
//
// It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log   logx.Logger
	sinks []Sink
	bus   eventbus.Bus

	cfg     Config
	limiter *rate.Limiter

	accepting bool
	sendWG    sync.WaitGroup
	queue     chan job
	sup       *supervisor.Supervisor

	dmu   sync.Mutex
	dedup map[string]time.Time
	now   func() time.Time

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sinks []Sink, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		sinks: sinks,
		log:   log,
		bus:   bus,
		dedup: map[string]time.Time{},
		now:   time.Now,
	}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.DedupWindow < 0 {
		cfg.DedupWindow = 0
	}
	s.cfg = cfg
	// Burst = rate so a short spike is not delayed.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

func (s *Service) Sinks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sinks))
	for _, k := range s.sinks {
		out = append(out, k.Name())
	}
	return out
}

// Start launches the workers. It is idempotent and a no-op when disabled.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.queue != nil || !s.cfg.Enabled {
		s.mu.Unlock()
		return
	}
	s.queue = make(chan job, s.cfg.QueueSize)
	s.accepting = true
	s.sup = supervisor.New(ctx, supervisor.WithLogger(s.log))
	sup, q, workers := s.sup, s.queue, s.cfg.Workers
	s.mu.Unlock()

	for i := 0; i < workers; i++ {
		sup.GoRestart(fmt.Sprintf("notify.worker.%d", i), func(c context.Context) error {
			s.workerLoop(c, q)
			return nil
		})
	}
	s.log.Debug("notifier started", logx.Int("workers", workers), logx.Any("sinks", s.Sinks()))
}

// Stop refuses new messages and drains the queue until ctx expires.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	q, sup := s.queue, s.sup
	if q == nil {
		s.mu.Unlock()
		return
	}
	s.accepting = false
	s.queue, s.sup = nil, nil
	s.mu.Unlock()

	s.sendWG.Wait()
	close(q)
	if err := sup.Wait(ctx); err != nil {
		sup.Cancel()
	}
}

// Warn enqueues a warning. It never blocks on delivery.
func (s *Service) Warn(ctx context.Context, title, body string) error {
	return s.Notify(ctx, Message{Title: title, Body: body})
}

func (s *Service) Notify(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.cfg.Enabled {
		s.mu.Unlock()
		return ErrDisabled
	}
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		return ErrStopped
	}
	q, window := s.queue, s.cfg.DedupWindow
	s.sendWG.Add(1)
	s.mu.Unlock()
	defer s.sendWG.Done()

	key := dedupKey(m)
	if window > 0 && !s.dedupAllow(key, window) {
		s.publish(TopicDeduped, Event{Title: m.Title})
		return nil
	}

	select {
	case q <- job{m: m, key: key}:
		return nil
	default:
		s.publish(TopicDropped, Event{Title: m.Title, Error: ErrQueueFull.Error()})
		return ErrQueueFull
	}
}

func (s *Service) History() []HistoryItem {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	return append([]HistoryItem(nil), s.history...)
}

func (s *Service) appendHistory(sink, title string) {
	s.hmu.Lock()
	s.history = append(s.history, HistoryItem{At: s.now(), Sink: sink, Title: title})
	if len(s.history) > 100 {
		s.history = s.history[len(s.history)-100:]
	}
	s.hmu.Unlock()
}

func (s *Service) workerLoop(ctx context.Context, q <-chan job) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-q:
			if !ok {
				return
			}
			s.deliver(ctx, j)
		}
	}
}

func (s *Service) deliver(ctx context.Context, j job) {
	s.mu.Lock()
	cfg, lim, sinks := s.cfg, s.limiter, s.sinks
	s.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return
	}
	for _, sink := range sinks {
		err := s.sendWithRetry(ctx, cfg, sink, j.m)
		if err == nil {
			s.appendHistory(sink.Name(), j.m.Title)
			s.publish(TopicSent, Event{Sink: sink.Name(), Title: j.m.Title})
			continue
		}
		if ctx.Err() != nil {
			return
		}
		s.log.Warn("notification failed", logx.String("sink", sink.Name()), logx.Err(err))
		s.publish(TopicFailed, Event{Sink: sink.Name(), Title: j.m.Title, Error: err.Error()})
	}
}

func (s *Service) sendWithRetry(ctx context.Context, cfg Config, sink Sink, m Message) error {
	var err error
	delay := cfg.RetryBase
	for attempt := 0; attempt <= cfg.RetryMax; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
			delay *= 2
		}
		cctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
		err = sink.Send(cctx, m)
		cancel()
		if err == nil {
			return nil
		}
		s.log.Debug("notify send failed", logx.String("sink", sink.Name()), logx.Int("attempt", attempt+1), logx.Err(err))
	}
	return err
}

func (s *Service) publish(topic string, e Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: topic, Time: s.now(), Data: e})
}

func dedupKey(m Message) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(m.Title))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(m.Body))
	return fmt.Sprintf("%x", h.Sum64())
}

func (s *Service) dedupAllow(key string, window time.Duration) bool {
	now := s.now()
	s.dmu.Lock()
	defer s.dmu.Unlock()
	if until, ok := s.dedup[key]; ok && now.Before(until) {
		return false
	}
	for k, until := range s.dedup {
		if !now.Before(until) {
			delete(s.dedup, k)
		}
	}
	s.dedup[key] = now.Add(window)
	return true
}
