package calendar

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"sleeptimer/internal/schedule"
)

// 2024-01-01 is a Monday.
var monday = time.Date(2024, time.January, 1, 21, 59, 0, 0, time.UTC)

func sampleWeek() schedule.Week {
	w := schedule.DefaultWeek()
	w[0] = schedule.At(22, 0)
	w[2] = schedule.At(6, 30)
	w[6] = schedule.At(23, 45)
	return w
}

func TestRulesAnchorAfterFrom(t *testing.T) {
	t.Parallel()
	rules, err := Rules(sampleWeek(), monday)
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(rules))
	}
	want := []time.Time{
		time.Date(2024, time.January, 1, 22, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 3, 6, 30, 0, 0, time.UTC),
		time.Date(2024, time.January, 7, 23, 45, 0, 0, time.UTC),
	}
	for i, r := range rules {
		if got := r.Rule.GetDTStart(); !got.Equal(want[i]) {
			t.Errorf("rule %d starts %v, want %v", i, got, want[i])
		}
	}

	// A slot already passed this week is anchored one week later.
	rules, _ = Rules(sampleWeek(), monday.Add(2*time.Hour))
	if got := rules[0].Rule.GetDTStart(); !got.Equal(time.Date(2024, time.January, 8, 22, 0, 0, 0, time.UTC)) {
		t.Fatalf("passed slot anchored at %v", got)
	}
}

func TestBetweenAgreesWithNextOccurrence(t *testing.T) {
	t.Parallel()
	w := sampleWeek()
	from := monday
	got, err := Between(w, from, from.AddDate(0, 0, 21))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 9 {
		t.Fatalf("got %d occurrences in three weeks, want 9", len(got))
	}
	want := schedule.Upcoming(from.Add(-schedule.DefaultNotBefore), w, len(got), 0)
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("occurrence %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := Encode(&buf, sampleWeek(), ExportOptions{Now: monday}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "BEGIN:VCALENDAR") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}

	dec := ical.NewDecoder(&buf)
	cal, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, err := dec.Decode(); err != io.EOF {
		t.Fatalf("expected a single calendar, got %v", err)
	}

	var events []*ical.Component
	for _, c := range cal.Children {
		if c.Name == ical.CompEvent {
			events = append(events, c)
		}
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	ev := events[0]
	if uid := ev.Props.Get(ical.PropUID); uid == nil || uid.Value != "sleeptimer-monday@sleeptimer" {
		t.Fatalf("UID = %+v", uid)
	}
	start, err := ev.Props.Get(ical.PropDateTimeStart).DateTime(time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	rp := ev.Props.Get(ical.PropRecurrenceRule)
	if rp == nil || !strings.Contains(rp.Value, "FREQ=WEEKLY") || !strings.Contains(rp.Value, "BYDAY=MO") {
		t.Fatalf("RRULE = %+v", rp)
	}
	opt, err := rrule.StrToROption(rp.Value)
	if err != nil {
		t.Fatal(err)
	}
	opt.Dtstart = start
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		t.Fatal(err)
	}
	next := r.After(start, false)
	if !next.Equal(start.AddDate(0, 0, 7)) {
		t.Fatalf("second occurrence %v, want one week after %v", next, start)
	}
}

func TestEncodeEmptyWeek(t *testing.T) {
	t.Parallel()
	err := Encode(io.Discard, schedule.DefaultWeek(), ExportOptions{Now: monday})
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}
