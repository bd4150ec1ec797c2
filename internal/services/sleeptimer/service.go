package sleeptimer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sleeptimer/internal/eventbus"
	"sleeptimer/internal/schedule"
	"sleeptimer/internal/services/clock"
	"sleeptimer/internal/storage"
	"sleeptimer/internal/trigger"
	"sleeptimer/pkg/logx"
)

// Service is the single owner of the schedule, the trigger machine and the
// deferred re-arm timer. Every transition happens under mu; intents that do
// I/O run after mu is released, in emission order.
type Service struct {
	mu sync.Mutex
	// editMu serialises schedule edits so saves reach the store in order.
	editMu sync.Mutex

	clk      clock.Clock
	store    storage.Store
	notifier Notifier
	exec     Executor
	bus      eventbus.Bus
	log      logx.Logger

	cfg  Config
	week schedule.Week
	m    *trigger.Machine

	rearmTimer  clock.Timer
	rearmHandle trigger.RearmHandle
}

func New(deps Deps, cfg Config) *Service {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Log.IsZero() {
		deps.Log = logx.Nop()
	}
	cfg = cfg.withDefaults()
	return &Service{
		clk:      deps.Clock,
		store:    deps.Store,
		notifier: deps.Notifier,
		exec:     deps.Executor,
		bus:      deps.Bus,
		log:      deps.Log,
		cfg:      cfg,
		week:     schedule.DefaultWeek(),
		m:        trigger.New(cfg.Timing, deps.MachineOptions...),
	}
}

// Load reads the persisted schedule. On failure the defaults stay in effect
// and the *storage.PersistenceError is returned for the caller to log.
func (s *Service) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	w, ok, err := s.store.LoadSchedule(ctx)
	if err != nil {
		s.log.Warn("schedule load failed, using defaults", logx.Err(err))
		w = schedule.DefaultWeek()
	}
	s.mu.Lock()
	s.week = w
	s.mu.Unlock()
	if ok {
		s.log.Info("schedule loaded", logx.Any("enabled_days", w.CronSpecs()))
	}
	return err
}

// Apply swaps the runtime knobs (config hot reload). An armed episode keeps
// its target.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	s.cfg = cfg
	s.m.Apply(cfg.Timing)
	s.mu.Unlock()
}

// ApplyTiming swaps only the countdown knobs.
func (s *Service) ApplyTiming(t trigger.Config) {
	s.mu.Lock()
	s.cfg.Timing = t
	s.m.Apply(t)
	s.mu.Unlock()
}

func (s *Service) Schedule() schedule.Week {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.week
}

// SetDay replaces one weekday. Invalid input is rejected with a
// *schedule.ValidationError and changes nothing. The new schedule is
// persisted best-effort; if no countdown is running it is re-evaluated.
func (s *Service) SetDay(ctx context.Context, index int, day schedule.Day) error {
	s.editMu.Lock()
	defer s.editMu.Unlock()

	s.mu.Lock()
	w, err := s.week.With(index, day)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.week = w
	intents := s.transitionLocked(s.m.ScheduleChanged(s.clk.Now(), w))
	s.mu.Unlock()

	s.persist(ctx, w)
	s.publish(eventbus.TopicScheduleChanged, eventbus.ScheduleEvent{
		Day:    index,
		Detail: fmt.Sprintf("%s %s", schedule.DayNames[index], day),
	})
	s.dispatch(intents)
	return nil
}

// SetWeek replaces the whole schedule under the same rules as SetDay.
func (s *Service) SetWeek(ctx context.Context, w schedule.Week) error {
	if err := w.Validate(); err != nil {
		return err
	}
	s.editMu.Lock()
	defer s.editMu.Unlock()

	s.mu.Lock()
	s.week = w
	intents := s.transitionLocked(s.m.ScheduleChanged(s.clk.Now(), w))
	s.mu.Unlock()

	s.persist(ctx, w)
	s.publish(eventbus.TopicScheduleChanged, eventbus.ScheduleEvent{Day: -1, Detail: "week replaced"})
	s.dispatch(intents)
	return nil
}

func (s *Service) persist(ctx context.Context, w schedule.Week) {
	if s.store == nil {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.saveTimeout())
	defer cancel()
	if err := s.store.SaveSchedule(sctx, w); err != nil {
		s.log.Warn("schedule save failed, keeping in-memory copy", logx.Err(err))
	}
}

// Arm starts a countdown to the next occurrence unless one is running.
func (s *Service) Arm() {
	s.mu.Lock()
	intents := s.transitionLocked(s.m.Rearm(s.clk.Now(), s.week))
	s.mu.Unlock()
	s.dispatch(intents)
}

// Cancel stops the running countdown and any pending re-arm.
func (s *Service) Cancel() {
	s.mu.Lock()
	intents := s.transitionLocked(s.m.Cancel())
	s.mu.Unlock()
	s.dispatch(intents)
}

// Snooze pushes the running countdown back by ext (the configured snooze
// when ext <= 0). It reports whether a countdown was running.
func (s *Service) Snooze(ext time.Duration) bool {
	s.mu.Lock()
	intents := s.transitionLocked(s.m.Snooze(ext))
	s.mu.Unlock()
	s.dispatch(intents)
	return len(intents) > 0
}

// Tick advances the countdown to now.
func (s *Service) Tick(now time.Time) {
	s.mu.Lock()
	intents := s.transitionLocked(s.m.Tick(now))
	s.mu.Unlock()
	s.dispatch(intents)
}

// Run feeds ticks into the machine until ctx is done or ticks is closed.
func (s *Service) Run(ctx context.Context, ticks <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now, ok := <-ticks:
			if !ok {
				return nil
			}
			s.Tick(now)
		}
	}
}

func (s *Service) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Remaining(s.clk.Now())
}

// NextOccurrence previews the next slot of the current schedule.
func (s *Service) NextOccurrence() (time.Time, bool) {
	s.mu.Lock()
	w, nb := s.week, s.m.Config().NotBefore
	s.mu.Unlock()
	return schedule.NextOccurrence(s.clk.Now(), w, nb)
}

// Upcoming previews the next n slots of the current schedule.
func (s *Service) Upcoming(n int) []time.Time {
	s.mu.Lock()
	w, nb := s.week, s.m.Config().NotBefore
	s.mu.Unlock()
	return schedule.Upcoming(s.clk.Now(), w, n, nb)
}

func (s *Service) Status() Status {
	s.mu.Lock()
	now := s.clk.Now()
	st := s.m.State()
	rem := s.m.Remaining(now)
	last, _ := s.m.LastFired()
	w, nb := s.week, s.m.Config().NotBefore
	s.mu.Unlock()

	out := Status{
		Now:           now,
		Phase:         st.Phase.String(),
		Remaining:     rem,
		RemainingText: FormatRemaining(rem),
		LastFired:     last,
		Schedule:      w,
	}
	if st.Phase == trigger.Armed {
		out.Target, out.Warned, out.Episode = st.Target, st.Warned, st.Episode
	}
	if next, ok := schedule.NextOccurrence(now, w, nb); ok {
		out.Next, out.NextText = next, FormatNext(next)
	}
	return out
}

// transitionLocked schedules or drops the deferred re-arm timer to match the
// machine and returns the intents left for dispatch.
func (s *Service) transitionLocked(intents []trigger.Intent) []trigger.Intent {
	for _, in := range intents {
		if in.Kind != trigger.IntentScheduleRearm {
			continue
		}
		s.stopRearmLocked()
		h := in.Rearm
		s.rearmHandle = h
		s.rearmTimer = s.clk.AfterFunc(in.Delay, func() { s.deferredRearm(h) })
	}
	if _, ok := s.m.PendingRearm(); !ok {
		s.stopRearmLocked()
	}
	return intents
}

func (s *Service) stopRearmLocked() {
	if s.rearmTimer != nil {
		s.rearmTimer.Stop()
		s.rearmTimer = nil
	}
	s.rearmHandle = 0
}

func (s *Service) deferredRearm(h trigger.RearmHandle) {
	s.mu.Lock()
	if s.rearmHandle == h {
		s.rearmTimer, s.rearmHandle = nil, 0
	}
	intents := s.transitionLocked(s.m.DeferredRearm(h, s.clk.Now(), s.week))
	s.mu.Unlock()
	s.dispatch(intents)
}

func (s *Service) dispatch(intents []trigger.Intent) {
	for _, in := range intents {
		log := s.log.With(logx.String("episode", in.Episode))
		switch in.Kind {
		case trigger.IntentTimerStarted:
			log.Info("countdown armed", logx.Time("target", in.Target), logx.String("at", FormatNext(in.Target)))
			s.publishTimer(eventbus.TopicTimerStarted, in, "")
		case trigger.IntentWarn:
			log.Info("sleep warning", logx.Duration("remaining", in.Remaining))
			s.warn(log)
			s.publishTimer(eventbus.TopicTimerWarned, in, FormatRemaining(in.Remaining))
		case trigger.IntentFire:
			log.Info("sleep triggered", logx.Time("target", in.Target))
			s.publishTimer(eventbus.TopicTimerFired, in, "")
			s.sleep(log, in)
		case trigger.IntentSnoozed:
			log.Info("countdown snoozed", logx.Time("target", in.Target))
			s.publishTimer(eventbus.TopicTimerSnoozed, in, "")
		case trigger.IntentCancelled:
			log.Info("countdown cancelled")
			s.publishTimer(eventbus.TopicTimerCancelled, in, "")
		case trigger.IntentScheduleRearm:
			log.Debug("re-arm scheduled", logx.Duration("delay", in.Delay))
		}
	}
}

func (s *Service) warn(log logx.Logger) {
	if s.notifier == nil {
		return
	}
	s.mu.Lock()
	title, body := s.cfg.WarnTitle, s.cfg.WarnBody
	s.mu.Unlock()
	if err := s.notifier.Warn(context.Background(), title, body); err != nil {
		log.Warn("warning not delivered", logx.Err(err))
	}
}

func (s *Service) sleep(log logx.Logger, in trigger.Intent) {
	if s.exec == nil {
		log.Warn("no sleep executor configured")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.actionTimeout())
	defer cancel()
	err := s.exec.SleepNow(ctx)
	if err == nil {
		return
	}
	log.Error("sleep action failed", logx.String("driver", s.exec.Name()), logx.Err(err))
	s.publishTimer(eventbus.TopicPowerFailed, in, err.Error())
}

func (s *Service) publishTimer(topic string, in trigger.Intent, detail string) {
	s.publish(topic, eventbus.TimerEvent{Episode: in.Episode, Target: in.Target, Detail: detail})
}

func (s *Service) publish(topic string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: topic, Time: s.clk.Now(), Data: data})
}

func (s *Service) saveTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.SaveTimeout
}

func (s *Service) actionTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.ActionTimeout
}

// IsValidation reports whether err is a rejected schedule edit.
func IsValidation(err error) bool {
	var ve *schedule.ValidationError
	return errors.As(err, &ve)
}
