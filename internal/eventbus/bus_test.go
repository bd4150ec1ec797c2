package eventbus

import (
	"context"
	"testing"
	"time"

	"sleeptimer/internal/storage"
	"sleeptimer/pkg/logx"
)

func TestPublishFansOutAndDrops(t *testing.T) {
	t.Parallel()
	b := New()
	a, unsubA := b.Subscribe(1)
	c, unsubC := b.Subscribe(4)
	defer unsubC()

	b.Publish(Event{Type: TopicTimerStarted})
	b.Publish(Event{Type: TopicTimerWarned})

	if e := <-a; e.Type != TopicTimerStarted || e.Time.IsZero() {
		t.Fatalf("a got %+v", e)
	}
	if b.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", b.Dropped())
	}
	if len(c) != 2 {
		t.Fatalf("c buffered %d events, want 2", len(c))
	}

	unsubA()
	unsubA()
	b.Publish(Event{Type: TopicTimerFired})
	if _, ok := <-a; ok {
		t.Fatal("expected closed channel after unsubscribe")
	}
}

func TestSubscribePrefixes(t *testing.T) {
	t.Parallel()
	b := New()
	timers, unsub := b.Subscribe(4, "timer.")
	defer unsub()

	b.Publish(Event{Type: TopicScheduleChanged})
	b.Publish(Event{Type: TopicTimerSnoozed})

	if len(timers) != 1 {
		t.Fatalf("buffered %d events, want 1", len(timers))
	}
	if e := <-timers; e.Type != TopicTimerSnoozed {
		t.Fatalf("got %q", e.Type)
	}
	if b.Dropped() != 0 {
		t.Fatalf("filtered events counted as dropped: %d", b.Dropped())
	}
}

func TestRecorderJournalsEvents(t *testing.T) {
	t.Parallel()
	b := New()
	st := storage.NewMemory()
	r := NewRecorder(b, st, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	target := time.Date(2024, time.January, 1, 22, 0, 0, 0, time.UTC)
	// Subscription happens inside Run; retry until the first event lands.
	deadline := time.Now().Add(2 * time.Second)
	for {
		b.Publish(Event{Type: TopicTimerFired, Data: TimerEvent{Episode: "ep-1", Target: target}})
		ev, _ := st.RecentEvents(context.Background(), 1)
		if len(ev) == 1 {
			if ev[0].Kind != TopicTimerFired || ev[0].Episode != "ep-1" || !ev[0].Target.Equal(target) {
				t.Fatalf("journal record %+v", ev[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("recorder never wrote the event")
		}
		time.Sleep(10 * time.Millisecond)
	}

	b.Publish(Event{Type: "notifier.sent"})
	cancel()
	<-done
	ev, _ := st.RecentEvents(context.Background(), 100)
	for _, e := range ev {
		if e.Kind != TopicTimerFired {
			t.Fatalf("unexpected journal record %+v", e)
		}
	}
}

func TestToRecordScheduleEvent(t *testing.T) {
	t.Parallel()
	rec := ToRecord(Event{Type: TopicScheduleChanged, Data: ScheduleEvent{Day: 2, Detail: "Wednesday 06:30"}})
	if rec.Kind != TopicScheduleChanged || rec.Detail != "Wednesday 06:30" || !rec.Target.IsZero() {
		t.Fatalf("record = %+v", rec)
	}
}
