package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DaysPerWeek is the fixed number of entries in a Week.
const DaysPerWeek = 7

// DayNames are the weekday labels in Week order (Monday first).
var DayNames = [DaysPerWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Week holds one Day per weekday, index 0 = Monday ... 6 = Sunday.
//
// It is a value type: copies are independent snapshots and safe to hand to
// other goroutines.
type Week [DaysPerWeek]Day

// DefaultWeek returns a schedule with every day disabled.
func DefaultWeek() Week {
	var w Week
	for i := range w {
		w[i] = DisabledDay()
	}
	return w
}

// With returns a copy of w with day index replaced.
func (w Week) With(index int, d Day) (Week, error) {
	if index < 0 || index >= DaysPerWeek {
		return w, &ValidationError{Field: "day index", Value: index, Reason: "must be within 0..6"}
	}
	if err := d.Validate(); err != nil {
		return w, err
	}
	w[index] = d
	return w, nil
}

func (w Week) Validate() error {
	for i, d := range w {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("%s: %w", DayNames[i], err)
		}
	}
	return nil
}

// AnyEnabled reports whether at least one day can produce an occurrence.
func (w Week) AnyEnabled() bool {
	for _, d := range w {
		if d.Enabled {
			return true
		}
	}
	return false
}

// CronSpecs renders every enabled day as a standard five-field cron spec
// ("M H * * DOW", Sunday = 0), in Week order.
func (w Week) CronSpecs() []string {
	out := make([]string, 0, DaysPerWeek)
	for i, d := range w {
		if !d.Enabled {
			continue
		}
		out = append(out, fmt.Sprintf("%d %d * * %d", d.Minute, d.Hour, (i+1)%DaysPerWeek))
	}
	return out
}

// MarshalJSON always emits exactly seven records, Monday first.
func (w Week) MarshalJSON() ([]byte, error) {
	return json.Marshal([DaysPerWeek]Day(w))
}

// UnmarshalJSON rejects anything that is not exactly seven valid records.
func (w *Week) UnmarshalJSON(b []byte) error {
	var days []Day
	if err := json.Unmarshal(b, &days); err != nil {
		return err
	}
	if len(days) != DaysPerWeek {
		return &ValidationError{Field: "day count", Value: len(days), Reason: "must be exactly 7"}
	}
	var out Week
	copy(out[:], days)
	if err := out.Validate(); err != nil {
		return err
	}
	*w = out
	return nil
}

// ParseWeekday resolves "mon", "Monday" or a Monday-based index "0".."6".
func ParseWeekday(raw string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, fmt.Errorf("empty weekday")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n >= DaysPerWeek {
			return 0, &ValidationError{Field: "day index", Value: n, Reason: "must be within 0..6"}
		}
		return n, nil
	}
	for i, name := range DayNames {
		lower := strings.ToLower(name)
		if s == lower || (len(s) >= 3 && strings.HasPrefix(lower, s)) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}
