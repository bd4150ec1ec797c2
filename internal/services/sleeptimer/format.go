package sleeptimer

import (
	"fmt"
	"time"
)

// FormatRemaining renders a countdown as H:MM:SS from one hour up and as
// MM:SS below. Fractions of a second are dropped.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatNext renders an occurrence as "Monday 22:00".
func FormatNext(t time.Time) string {
	return t.Format("Monday 15:04")
}
