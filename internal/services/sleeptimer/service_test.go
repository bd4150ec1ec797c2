package sleeptimer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sleeptimer/internal/eventbus"
	"sleeptimer/internal/schedule"
	"sleeptimer/internal/services/clock"
	"sleeptimer/internal/storage"
	"sleeptimer/internal/trigger"
)

// 2024-01-01 is a Monday.
var monday2100 = time.Date(2024, time.January, 1, 21, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (n *fakeNotifier) Warn(_ context.Context, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, title+": "+body)
	return n.err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *fakeExecutor) Name() string { return "fake" }

func (e *fakeExecutor) SleepNow(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("sleep action without deadline")
	}
	e.calls++
	return e.err
}

func (e *fakeExecutor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// flakyStore fails the configured operations and otherwise delegates.
type flakyStore struct {
	storage.Store
	loadErr error
	saveErr error
}

func (s flakyStore) LoadSchedule(ctx context.Context) (schedule.Week, bool, error) {
	if s.loadErr != nil {
		return schedule.DefaultWeek(), false, s.loadErr
	}
	return s.Store.LoadSchedule(ctx)
}

func (s flakyStore) SaveSchedule(ctx context.Context, w schedule.Week) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.Store.SaveSchedule(ctx, w)
}

type harness struct {
	clk    *clock.Fake
	svc    *Service
	notify *fakeNotifier
	exec   *fakeExecutor
	store  storage.Store
	events <-chan eventbus.Event
}

func newHarness(t *testing.T, store storage.Store) *harness {
	t.Helper()
	if store == nil {
		store = storage.NewMemory()
	}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(128)
	t.Cleanup(unsub)

	seq := 0
	h := &harness{
		clk:    clock.NewFake(monday2100),
		notify: &fakeNotifier{},
		exec:   &fakeExecutor{},
		store:  store,
		events: events,
	}
	h.svc = New(Deps{
		Clock:    h.clk,
		Store:    store,
		Notifier: h.notify,
		Executor: h.exec,
		Bus:      bus,
		MachineOptions: []trigger.Option{trigger.WithEpisodeIDs(func() string {
			seq++
			return fmt.Sprintf("ep-%d", seq)
		})},
	}, Config{})
	return h
}

// at moves the clock and delivers one tick.
func (h *harness) at(t time.Time) {
	h.clk.Set(t)
	h.svc.Tick(t)
}

func (h *harness) topics() []string {
	var out []string
	for {
		select {
		case e := <-h.events:
			out = append(out, e.Type)
		default:
			return out
		}
	}
}

func (h *harness) setMonday(t *testing.T, day schedule.Day) {
	t.Helper()
	if err := h.svc.SetDay(context.Background(), 0, day); err != nil {
		t.Fatalf("SetDay: %v", err)
	}
}

func equalTopics(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestSetDayArmsWhenIdle(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.setMonday(t, schedule.At(22, 0))

	st := h.svc.Status()
	if st.Phase != "armed" {
		t.Fatalf("phase = %s, want armed", st.Phase)
	}
	want := time.Date(2024, time.January, 1, 22, 0, 0, 0, time.UTC)
	if !st.Target.Equal(want) {
		t.Fatalf("target = %v, want %v", st.Target, want)
	}
	if got := h.svc.Remaining(); got != time.Hour {
		t.Fatalf("remaining = %v, want 1h", got)
	}
	if st.RemainingText != "1:00:00" || st.NextText != "Monday 22:00" {
		t.Fatalf("status text = %q / %q", st.RemainingText, st.NextText)
	}
	if got := h.topics(); !equalTopics(got, eventbus.TopicScheduleChanged, eventbus.TopicTimerStarted) {
		t.Fatalf("events = %v", got)
	}

	w, ok, err := h.store.LoadSchedule(context.Background())
	if err != nil || !ok || w[0] != schedule.At(22, 0) {
		t.Fatalf("persisted = %v ok=%v err=%v", w[0], ok, err)
	}
}

func TestFullEpisodeWarnsFiresAndRearmsNextWeek(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.setMonday(t, schedule.At(22, 0))
	target := time.Date(2024, time.January, 1, 22, 0, 0, 0, time.UTC)
	h.topics()

	h.at(target.Add(-61 * time.Second))
	if h.notify.count() != 0 {
		t.Fatal("warned too early")
	}
	h.at(target.Add(-60 * time.Second))
	h.at(target.Add(-59 * time.Second))
	if h.notify.count() != 1 {
		t.Fatalf("warnings = %d, want exactly 1", h.notify.count())
	}
	if !h.svc.Status().Warned {
		t.Fatal("status must report the warning")
	}

	h.at(target.Add(-3 * time.Second))
	if got := h.svc.Remaining(); got != 3*time.Second {
		t.Fatalf("remaining = %v, want 3s", got)
	}
	h.at(target)
	if h.exec.count() != 1 {
		t.Fatalf("sleep calls = %d, want 1", h.exec.count())
	}
	if st := h.svc.Status(); st.Phase != "idle" || !st.LastFired.Equal(target) {
		t.Fatalf("after fire: %+v", st)
	}
	if h.clk.Pending() != 1 {
		t.Fatalf("pending timers = %d, want the deferred re-arm", h.clk.Pending())
	}

	h.clk.Advance(trigger.DefaultRearmDelay)
	st := h.svc.Status()
	if st.Phase != "armed" || !st.Target.Equal(target.AddDate(0, 0, 7)) {
		t.Fatalf("re-armed to %v (%s), want next Monday", st.Target, st.Phase)
	}
	if st.Episode != "ep-2" {
		t.Fatalf("episode = %q, want a fresh one", st.Episode)
	}

	// A late tick for the fired minute must not fire again.
	h.svc.Tick(target.Add(3 * time.Second))
	if h.exec.count() != 1 {
		t.Fatal("fired twice")
	}
	if got := h.topics(); !equalTopics(got,
		eventbus.TopicTimerWarned, eventbus.TopicTimerFired, eventbus.TopicTimerStarted) {
		t.Fatalf("events = %v", got)
	}
}

func TestSnoozeExtendsAndRewarns(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.setMonday(t, schedule.At(22, 0))
	target := time.Date(2024, time.January, 1, 22, 0, 0, 0, time.UTC)

	h.at(target.Add(-30 * time.Second))
	if h.notify.count() != 1 {
		t.Fatal("expected warning")
	}
	if !h.svc.Snooze(0) {
		t.Fatal("Snooze while armed must report true")
	}
	st := h.svc.Status()
	if !st.Target.Equal(target.Add(trigger.DefaultSnooze)) || st.Warned {
		t.Fatalf("after snooze: target=%v warned=%v", st.Target, st.Warned)
	}
	if got := h.svc.Remaining(); got != 5*time.Minute+30*time.Second {
		t.Fatalf("remaining = %v", got)
	}

	h.at(target.Add(trigger.DefaultSnooze - 10*time.Second))
	if h.notify.count() != 2 {
		t.Fatalf("warnings = %d, want a second one after snooze", h.notify.count())
	}
	h.at(target.Add(trigger.DefaultSnooze))
	if h.exec.count() != 1 {
		t.Fatal("snoozed episode did not fire")
	}
}

func TestSnoozeWhileIdleIsNoop(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	if h.svc.Snooze(time.Minute) {
		t.Fatal("Snooze while idle must report false")
	}
	if got := h.topics(); len(got) != 0 {
		t.Fatalf("events = %v", got)
	}
}

func TestCancelStopsCountdown(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.setMonday(t, schedule.At(22, 0))
	h.topics()

	h.svc.Cancel()
	if st := h.svc.Status(); st.Phase != "idle" || h.svc.Remaining() != 0 || st.RemainingText != "00:00" {
		t.Fatalf("after cancel: %+v", st)
	}
	h.at(time.Date(2024, time.January, 1, 22, 0, 0, 0, time.UTC))
	if h.exec.count() != 0 {
		t.Fatal("cancelled countdown fired")
	}
	if got := h.topics(); !equalTopics(got, eventbus.TopicTimerCancelled) {
		t.Fatalf("events = %v", got)
	}

	// The preview still reflects the schedule.
	if next, ok := h.svc.NextOccurrence(); !ok || !next.Equal(time.Date(2024, time.January, 8, 22, 0, 0, 0, time.UTC)) {
		t.Fatalf("next = %v ok=%v", next, ok)
	}
}

func TestCancelDropsPendingRearm(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.setMonday(t, schedule.At(22, 0))
	h.at(time.Date(2024, time.January, 1, 22, 0, 0, 0, time.UTC))
	if h.clk.Pending() != 1 {
		t.Fatal("expected a deferred re-arm")
	}

	h.svc.Cancel()
	if h.clk.Pending() != 0 {
		t.Fatal("cancel must stop the deferred re-arm timer")
	}
	h.clk.Advance(time.Minute)
	if st := h.svc.Status(); st.Phase != "idle" {
		t.Fatalf("stale re-arm applied: %+v", st)
	}

	// Arming explicitly still works afterwards and skips the fired slot.
	h.svc.Arm()
	if st := h.svc.Status(); st.Phase != "armed" || st.Target.Day() != 8 {
		t.Fatalf("arm after cancel: %+v", st)
	}
}

func TestEditWhileArmedKeepsTarget(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.setMonday(t, schedule.At(22, 0))
	before := h.svc.Status().Target

	h.setMonday(t, schedule.At(21, 30))
	if err := h.svc.SetDay(context.Background(), 1, schedule.At(6, 0)); err != nil {
		t.Fatal(err)
	}
	st := h.svc.Status()
	if !st.Target.Equal(before) {
		t.Fatalf("target moved from %v to %v", before, st.Target)
	}
	if st.Schedule[0] != schedule.At(21, 30) || st.Schedule[1] != schedule.At(6, 0) {
		t.Fatalf("schedule = %v", st.Schedule)
	}
	if next, _ := h.svc.NextOccurrence(); !next.Equal(time.Date(2024, time.January, 1, 21, 30, 0, 0, time.UTC)) {
		t.Fatalf("preview = %v, want the edited slot", next)
	}
}

func TestSetDayRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	cases := []struct {
		name  string
		index int
		day   schedule.Day
	}{
		{"hour", 0, schedule.Day{Enabled: true, Hour: 24}},
		{"minute", 3, schedule.Day{Enabled: true, Hour: 1, Minute: 60}},
		{"index", 7, schedule.At(22, 0)},
		{"negative index", -1, schedule.At(22, 0)},
	}
	for _, tc := range cases {
		err := h.svc.SetDay(context.Background(), tc.index, tc.day)
		if !IsValidation(err) {
			t.Fatalf("%s: err = %v, want validation error", tc.name, err)
		}
	}
	if h.svc.Schedule() != schedule.DefaultWeek() {
		t.Fatal("rejected edits changed the schedule")
	}
	if _, ok, _ := h.store.LoadSchedule(context.Background()); ok {
		t.Fatal("rejected edits were persisted")
	}
	if got := h.topics(); len(got) != 0 {
		t.Fatalf("events = %v", got)
	}
}

func TestSetWeekValidatesAndArms(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	w := schedule.DefaultWeek()
	w[2] = schedule.Day{Enabled: true, Hour: 99}
	if err := h.svc.SetWeek(context.Background(), w); !IsValidation(err) {
		t.Fatalf("err = %v", err)
	}

	w[2] = schedule.At(23, 15)
	if err := h.svc.SetWeek(context.Background(), w); err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, time.January, 3, 23, 15, 0, 0, time.UTC)
	if st := h.svc.Status(); !st.Target.Equal(want) {
		t.Fatalf("target = %v, want %v", st.Target, want)
	}
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	t.Parallel()
	loadErr := &storage.PersistenceError{Op: "load schedule", Err: errors.New("corrupt")}
	h := newHarness(t, flakyStore{Store: storage.NewMemory(), loadErr: loadErr})

	err := h.svc.Load(context.Background())
	var pe *storage.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PersistenceError", err)
	}
	if h.svc.Schedule() != schedule.DefaultWeek() {
		t.Fatal("defaults not applied")
	}
	if _, ok := h.svc.NextOccurrence(); ok {
		t.Fatal("all-disabled week has no next occurrence")
	}
}

func TestLoadRestoresSavedWeek(t *testing.T) {
	t.Parallel()
	store := storage.NewMemory()
	saved := schedule.DefaultWeek()
	saved[4] = schedule.At(23, 0)
	if err := store.SaveSchedule(context.Background(), saved); err != nil {
		t.Fatal(err)
	}

	h := newHarness(t, store)
	if err := h.svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.svc.Schedule() != saved {
		t.Fatalf("schedule = %v", h.svc.Schedule())
	}
	up := h.svc.Upcoming(2)
	if len(up) != 2 || up[0].Weekday() != time.Friday || !up[1].Equal(up[0].AddDate(0, 0, 7)) {
		t.Fatalf("upcoming = %v", up)
	}
}

func TestSaveFailureKeepsEdit(t *testing.T) {
	t.Parallel()
	h := newHarness(t, flakyStore{Store: storage.NewMemory(), saveErr: errors.New("disk full")})
	h.setMonday(t, schedule.At(22, 0))
	if h.svc.Schedule()[0] != schedule.At(22, 0) {
		t.Fatal("in-memory edit lost")
	}
	if h.svc.Status().Phase != "armed" {
		t.Fatal("edit did not arm")
	}
}

func TestActionFailureIsReported(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.exec.err = errors.New("permission denied")
	h.notify.err = errors.New("no display")
	h.setMonday(t, schedule.At(22, 0))
	h.topics()

	target := time.Date(2024, time.January, 1, 22, 0, 0, 0, time.UTC)
	h.at(target.Add(-10 * time.Second))
	h.at(target)

	if got := h.topics(); !equalTopics(got,
		eventbus.TopicTimerWarned, eventbus.TopicTimerFired, eventbus.TopicPowerFailed) {
		t.Fatalf("events = %v", got)
	}
	// The failure does not stop the cycle.
	h.clk.Advance(trigger.DefaultRearmDelay)
	if st := h.svc.Status(); st.Phase != "armed" {
		t.Fatalf("not re-armed after failed action: %+v", st)
	}
}

func TestRunConsumesTicks(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.setMonday(t, schedule.At(22, 0))

	ticks := make(chan time.Time)
	done := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { done <- h.svc.Run(ctx, ticks) }()

	ticks <- time.Date(2024, time.January, 1, 22, 0, 1, 0, time.UTC)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v", err)
	}
	if h.exec.count() != 1 {
		t.Fatal("tick through Run did not fire")
	}
}

func TestApplyChangesTiming(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.svc.Apply(Config{Timing: trigger.Config{WarnBefore: 2 * time.Minute}, WarnTitle: "Bedtime"})
	h.setMonday(t, schedule.At(22, 0))

	h.at(time.Date(2024, time.January, 1, 21, 58, 30, 0, time.UTC))
	if h.notify.count() != 1 {
		t.Fatal("configured warn lead ignored")
	}
	if got := h.notify.calls[0]; got != "Bedtime: "+DefaultWarnBody {
		t.Fatalf("warning = %q", got)
	}
}

func TestFormatRemaining(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{3*time.Second + 900*time.Millisecond, "00:03"},
		{59*time.Minute + 59*time.Second, "59:59"},
		{time.Hour, "1:00:00"},
		{26*time.Hour + 5*time.Minute + 7*time.Second, "26:05:07"},
	}
	for _, tc := range cases {
		if got := FormatRemaining(tc.in); got != tc.want {
			t.Errorf("FormatRemaining(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := FormatNext(time.Date(2024, time.January, 6, 7, 5, 0, 0, time.UTC)); got != "Saturday 07:05" {
		t.Fatalf("FormatNext = %q", got)
	}
}
