package metrics

import "time"

// TickResult classifies a scheduler tick.
type TickResult string

const (
	TickCompleted TickResult = "completed"
	// TickSkipped means the habit list could not be read and the tick did nothing.
	TickSkipped TickResult = "skipped"
	// TickDuplicate means the minute had already been evaluated.
	TickDuplicate TickResult = "duplicate"
)

// ReminderOutcome classifies what happened to one due habit.
type ReminderOutcome string

const (
	ReminderSent       ReminderOutcome = "sent"
	ReminderSuppressed ReminderOutcome = "suppressed"
	ReminderFailed     ReminderOutcome = "failed"
)

// Recorder receives scheduler and dispatch observations. Implementations must
// be safe for concurrent use.
type Recorder interface {
	ObserveTick(result TickResult, d time.Duration)
	IncReminder(outcome ReminderOutcome)
	IncResponse(status string)
}

// NoopRecorder discards everything. It is the default when metrics are not served.
type NoopRecorder struct{}

func (NoopRecorder) ObserveTick(TickResult, time.Duration) {}
func (NoopRecorder) IncReminder(ReminderOutcome)           {}
func (NoopRecorder) IncResponse(string)                    {}
