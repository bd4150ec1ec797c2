package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// Day is the sleep setting for a single weekday.
//
// A disabled day keeps its hour/minute so re-enabling it restores the last
// configured time.
type Day struct {
	Enabled bool `json:"enabled"`
	Hour    int  `json:"hour"`
	Minute  int  `json:"minute"`
}

// DisabledDay is the value every weekday starts with.
func DisabledDay() Day {
	return Day{Enabled: false, Hour: 22, Minute: 0}
}

// At returns an enabled day at hh:mm.
func At(hour, minute int) Day {
	return Day{Enabled: true, Hour: hour, Minute: minute}
}

func (d Day) Validate() error {
	if d.Hour < 0 || d.Hour > 23 {
		return &ValidationError{Field: "hour", Value: d.Hour, Reason: "must be within 0..23"}
	}
	if d.Minute < 0 || d.Minute > 59 {
		return &ValidationError{Field: "minute", Value: d.Minute, Reason: "must be within 0..59"}
	}
	return nil
}

// Clock renders the configured time as HH:MM.
func (d Day) Clock() string {
	return fmt.Sprintf("%02d:%02d", d.Hour, d.Minute)
}

func (d Day) String() string {
	if !d.Enabled {
		return "off (" + d.Clock() + ")"
	}
	return d.Clock()
}

// ParseDay parses "HH:MM" into an enabled day, or "off"/"disabled" into a
// disabled one that keeps prev's time.
func ParseDay(raw string, prev Day) (Day, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "off", "disabled", "disable", "none":
		prev.Enabled = false
		return prev, nil
	case "on", "enabled", "enable":
		prev.Enabled = true
		return prev, prev.Validate()
	}
	h, m, err := parseHHMM(s)
	if err != nil {
		return Day{}, err
	}
	return At(h, m), nil
}

func parseHHMM(s string) (hour int, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	d := At(h, m)
	if err := d.Validate(); err != nil {
		return 0, 0, err
	}
	return h, m, nil
}
