package eventbus

import "time"

// Topics published by the scheduling service.
const (
	TopicTimerStarted    = "timer.started"
	TopicTimerWarned     = "timer.warned"
	TopicTimerFired      = "timer.fired"
	TopicTimerSnoozed    = "timer.snoozed"
	TopicTimerCancelled  = "timer.cancelled"
	TopicScheduleChanged = "schedule.changed"
	TopicPowerFailed     = "power.failed"
)

// JournalPrefixes select the topics the Recorder keeps.
var JournalPrefixes = []string{"timer.", "schedule.", "power."}

// TimerEvent is the payload of every timer.* and power.* event.
type TimerEvent struct {
	Episode string
	Target  time.Time
	// Detail is free text, e.g. the executor error for power.failed.
	Detail string
}

// ScheduleEvent is the payload of schedule.changed.
type ScheduleEvent struct {
	// Day is the edited index, or -1 for a whole-week replace.
	Day    int
	Detail string
}
