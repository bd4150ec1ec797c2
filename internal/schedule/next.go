package schedule

import "time"

// DefaultNotBefore is the minimum lead time an occurrence must have over now.
const DefaultNotBefore = 10 * time.Second

// lookaheadDays is today plus the next seven days, so the same weekday one
// week out is still a candidate when today's slot has already passed.
const lookaheadDays = 8

// FromHostWeekday converts a 1=Sunday..7=Saturday weekday number into the
// Monday-based index used by Week.
func FromHostWeekday(host int) int {
	return (host + 5) % DaysPerWeek
}

// MondayIndex converts a time.Weekday (Sunday = 0) into a Week index.
func MondayIndex(wd time.Weekday) int {
	return FromHostWeekday(int(wd) + 1)
}

// NextOccurrence returns the first enabled slot strictly later than
// now+notBefore, searching today and the following seven days in now's
// location. It returns false when no enabled day qualifies.
func NextOccurrence(now time.Time, w Week, notBefore time.Duration) (time.Time, bool) {
	if notBefore <= 0 {
		notBefore = DefaultNotBefore
	}
	floor := now.Add(notBefore)
	loc := now.Location()
	y, m, d := now.Date()
	w0 := MondayIndex(now.Weekday())

	for offset := 0; offset < lookaheadDays; offset++ {
		entry := w[(w0+offset)%DaysPerWeek]
		if !entry.Enabled {
			continue
		}
		// time.Date normalises day overflow and resolves DST gaps in loc.
		candidate := time.Date(y, m, d+offset, entry.Hour, entry.Minute, 0, 0, loc)
		if candidate.After(floor) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// Upcoming returns up to n occurrences in chronological order.
func Upcoming(now time.Time, w Week, n int, notBefore time.Duration) []time.Time {
	if n <= 0 {
		return nil
	}
	if notBefore <= 0 {
		notBefore = DefaultNotBefore
	}
	out := make([]time.Time, 0, n)
	cursor := now
	for len(out) < n {
		next, ok := NextOccurrence(cursor, w, notBefore)
		if !ok {
			break
		}
		out = append(out, next)
		// Step past the found slot; notBefore is re-added by NextOccurrence.
		cursor = next.Add(-notBefore)
	}
	return out
}

// TruncateMinute drops seconds and below in t's own location.
func TruncateMinute(t time.Time) time.Time {
	return t.Add(-time.Duration(t.Second())*time.Second - time.Duration(t.Nanosecond()))
}

// SameMinute reports whether a and b fall in the same wall-clock minute.
func SameMinute(a, b time.Time) bool {
	return TruncateMinute(a).Equal(TruncateMinute(b.In(a.Location())))
}
