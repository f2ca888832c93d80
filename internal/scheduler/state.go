package scheduler

import "time"

type State int

const (
	Disabled State = iota
	Idle
	Active
)

func (s State) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Idle:
		return "idle"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// Storage keys of the persisted flags.
const (
	KeyEnabled        = "notifications-enabled"
	KeyScheduleActive = "notification-schedule-active"
)

// Snapshot is a point-in-time view for status output.
type Snapshot struct {
	State        State
	DailyCount   int
	DailyCap     int
	LastResetDay string
	Frequency    string
	Interval     time.Duration
	NextRun      time.Time
	Timers       int
}
