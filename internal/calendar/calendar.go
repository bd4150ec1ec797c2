// Package calendar renders the weekly sleep schedule as recurrence rules and
// as an iCalendar feed that desktop calendars can subscribe to.
package calendar

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"sleeptimer/internal/schedule"
)

const (
	DefaultProductID = "-//sleeptimer//weekly schedule//EN"
	DefaultSummary   = "Sleep"
	DefaultDuration  = time.Minute
)

// ErrEmpty is returned by Encode when no day is enabled.
var ErrEmpty = errors.New("calendar: no enabled days")

var weekdays = [schedule.DaysPerWeek]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

// DayRule is the weekly recurrence of one enabled day.
type DayRule struct {
	Day  int
	Rule *rrule.RRule
}

// Rules returns one weekly rule per enabled day, each anchored on that day's
// first slot strictly after from.
func Rules(w schedule.Week, from time.Time) ([]DayRule, error) {
	out := make([]DayRule, 0, schedule.DaysPerWeek)
	for i, d := range w {
		if !d.Enabled {
			continue
		}
		r, err := rrule.NewRRule(rrule.ROption{
			Freq:      rrule.WEEKLY,
			Dtstart:   anchor(from, i, d),
			Byweekday: []rrule.Weekday{weekdays[i]},
			Byhour:    []int{d.Hour},
			Byminute:  []int{d.Minute},
			Bysecond:  []int{0},
		})
		if err != nil {
			return nil, fmt.Errorf("%s rule: %w", schedule.DayNames[i], err)
		}
		out = append(out, DayRule{Day: i, Rule: r})
	}
	return out, nil
}

// Between merges every day's occurrences in (after, before), sorted.
func Between(w schedule.Week, after, before time.Time) ([]time.Time, error) {
	rules, err := Rules(w, after)
	if err != nil {
		return nil, err
	}
	var out []time.Time
	for _, r := range rules {
		out = append(out, r.Rule.Between(after, before, false)...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// anchor is day i's slot in the week of from, pushed a week ahead when it is
// not strictly after from.
func anchor(from time.Time, i int, d schedule.Day) time.Time {
	offset := (i - schedule.MondayIndex(from.Weekday()) + schedule.DaysPerWeek) % schedule.DaysPerWeek
	t := time.Date(from.Year(), from.Month(), from.Day()+offset, d.Hour, d.Minute, 0, 0, from.Location())
	if !t.After(from) {
		t = time.Date(from.Year(), from.Month(), from.Day()+offset+schedule.DaysPerWeek, d.Hour, d.Minute, 0, 0, from.Location())
	}
	return t
}

type ExportOptions struct {
	Now       time.Time
	Summary   string
	ProductID string
	// Duration is the length of each event (DefaultDuration when zero).
	Duration time.Duration
}

// Encode writes w as a VCALENDAR with one recurring VEVENT per enabled day.
func Encode(out io.Writer, w schedule.Week, opt ExportOptions) error {
	if opt.Now.IsZero() {
		opt.Now = time.Now()
	}
	if strings.TrimSpace(opt.Summary) == "" {
		opt.Summary = DefaultSummary
	}
	if strings.TrimSpace(opt.ProductID) == "" {
		opt.ProductID = DefaultProductID
	}
	if opt.Duration <= 0 {
		opt.Duration = DefaultDuration
	}

	rules, err := Rules(w, opt.Now)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return ErrEmpty
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, opt.ProductID)

	stamp := opt.Now.UTC()
	for _, r := range rules {
		d := w[r.Day]
		start := r.Rule.GetDTStart()

		ev := ical.NewEvent()
		ev.Props.SetText(ical.PropUID, fmt.Sprintf("sleeptimer-%s@sleeptimer", strings.ToLower(schedule.DayNames[r.Day])))
		ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		ev.Props.SetDateTime(ical.PropDateTimeStart, start)
		ev.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(opt.Duration))
		ev.Props.SetText(ical.PropSummary, opt.Summary)
		ev.Props.SetText(ical.PropDescription, fmt.Sprintf("%s at %s", schedule.DayNames[r.Day], d.Clock()))

		rp := ical.NewProp(ical.PropRecurrenceRule)
		rp.Value = r.Rule.OrigOptions.RRuleString()
		ev.Props.Set(rp)

		cal.Children = append(cal.Children, ev.Component)
	}

	if err := ical.NewEncoder(out).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}
