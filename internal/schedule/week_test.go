package schedule

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestWeekWithValidates(t *testing.T) {
	t.Parallel()
	w := DefaultWeek()
	tests := []struct {
		name  string
		index int
		day   Day
		field string
	}{
		{name: "negative index", index: -1, day: At(22, 0), field: "day index"},
		{name: "index too large", index: 7, day: At(22, 0), field: "day index"},
		{name: "hour 24", index: 0, day: At(24, 0), field: "hour"},
		{name: "negative minute", index: 3, day: At(10, -1), field: "minute"},
		{name: "minute 60", index: 6, day: At(10, 60), field: "minute"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := w.With(tt.index, tt.day)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Fatalf("Field = %q, want %q", ve.Field, tt.field)
			}
			if got != w {
				t.Fatal("week changed on validation error")
			}
		})
	}

	got, err := w.With(4, At(23, 59))
	if err != nil {
		t.Fatalf("With: %v", err)
	}
	if got[4] != At(23, 59) || w[4] != DisabledDay() {
		t.Fatalf("unexpected result %+v (orig %+v)", got[4], w[4])
	}
}

func TestWeekJSON(t *testing.T) {
	t.Parallel()
	w := DefaultWeek()
	w[0] = At(22, 0)
	b, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.HasPrefix(string(b), `[{"enabled":true,"hour":22,"minute":0}`) {
		t.Fatalf("unexpected encoding: %s", b)
	}

	var six []Day
	six = append(six, w[:6]...)
	short, _ := json.Marshal(six)
	var got Week
	err = json.Unmarshal(short, &got)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "day count" {
		t.Fatalf("expected day count error, got %v", err)
	}

	bad := strings.Replace(string(b), `"hour":22`, `"hour":25`, 1)
	if err := json.Unmarshal([]byte(bad), &got); err == nil {
		t.Fatal("expected error for out-of-range hour")
	}

	if err := json.Unmarshal([]byte(`{"not":"a list"}`), &got); err == nil {
		t.Fatal("expected error for non-array input")
	}
}

func TestCronSpecs(t *testing.T) {
	t.Parallel()
	w := DefaultWeek()
	w[0] = At(22, 0)
	w[6] = At(1, 5)
	got := w.CronSpecs()
	want := []string{"0 22 * * 1", "5 1 * * 0"}
	if len(got) != len(want) {
		t.Fatalf("CronSpecs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("CronSpecs[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseDay(t *testing.T) {
	t.Parallel()
	prev := At(21, 30)
	tests := []struct {
		raw     string
		want    Day
		wantErr bool
	}{
		{raw: "22:15", want: At(22, 15)},
		{raw: " 07:05 ", want: At(7, 5)},
		{raw: "off", want: Day{Enabled: false, Hour: 21, Minute: 30}},
		{raw: "on", want: At(21, 30)},
		{raw: "24:00", wantErr: true},
		{raw: "12:60", wantErr: true},
		{raw: "noon", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDay(tt.raw, prev)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseDay(%q) expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDay(%q): %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseDay(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()
	tests := map[string]int{"mon": 0, "Monday": 0, "tue": 1, "sun": 6, "SUNDAY": 6, "3": 3}
	for raw, want := range tests {
		got, err := ParseWeekday(raw)
		if err != nil {
			t.Fatalf("ParseWeekday(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseWeekday(%q) = %d, want %d", raw, got, want)
		}
	}
	for _, raw := range []string{"", "7", "-1", "mo", "funday"} {
		if _, err := ParseWeekday(raw); err == nil {
			t.Fatalf("ParseWeekday(%q) expected error", raw)
		}
	}
}
