package clock

import (
	"testing"
	"time"

	"sleeptimer/pkg/logx"
)

func TestFakeRunsTimersInDueOrder(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, time.January, 1, 21, 0, 0, 0, time.UTC)
	c := NewFake(start)

	var order []string
	c.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	c.AfterFunc(time.Second, func() { order = append(order, "a") })
	c.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	stopped := c.AfterFunc(2*time.Second, func() { order = append(order, "x") })
	if !stopped.Stop() {
		t.Fatal("Stop on a pending timer must report true")
	}
	if stopped.Stop() {
		t.Fatal("second Stop must report false")
	}

	c.Advance(2 * time.Second)
	if got := len(order); got != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order after 2s = %v", order)
	}
	if c.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", c.Pending())
	}
	c.Advance(time.Second)
	if len(order) != 3 || order[2] != "c" {
		t.Fatalf("order = %v", order)
	}
	if !c.Now().Equal(start.Add(3 * time.Second)) {
		t.Fatalf("Now = %v", c.Now())
	}
}

func TestFakeTimerMayScheduleAnother(t *testing.T) {
	t.Parallel()
	c := NewFake(time.Unix(0, 0))
	fired := 0
	c.AfterFunc(time.Second, func() {
		fired++
		c.AfterFunc(time.Second, func() { fired++ })
	})
	c.Advance(time.Second)
	if fired != 1 || c.Pending() != 1 {
		t.Fatalf("fired=%d pending=%d", fired, c.Pending())
	}
	c.Advance(time.Second)
	if fired != 2 {
		t.Fatalf("fired=%d, want 2", fired)
	}
}

func TestTickerDropsWhenConsumerLags(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, time.January, 1, 21, 0, 0, 0, time.UTC)
	tk := NewTicker(NewFake(now), 0, logx.Nop())
	if tk.Every() != DefaultTick {
		t.Fatalf("Every = %v, want %v", tk.Every(), DefaultTick)
	}

	tk.Poke()
	tk.Poke()
	tk.Poke()
	if tk.Dropped() != 2 {
		t.Fatalf("Dropped = %d, want 2", tk.Dropped())
	}
	select {
	case got := <-tk.C():
		if !got.Equal(now) {
			t.Fatalf("tick = %v, want %v", got, now)
		}
	default:
		t.Fatal("expected a buffered tick")
	}
}

func TestTickerEmitsOnSchedule(t *testing.T) {
	t.Parallel()
	tk := NewTicker(Real{}, time.Second, logx.Nop())
	tk.Start()
	tk.Start() // idempotent
	defer tk.Stop()

	select {
	case <-tk.C():
	case <-time.After(3 * time.Second):
		t.Fatal("no tick within 3s")
	}
}
