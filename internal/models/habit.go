package models

// Habit represents a daily practice with a reminder time
type Habit struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	Title    string `json:"title"`
	RemindAt string `json:"time"` // HH:MM format
}

// Status is the outcome recorded for a habit on a given day
type Status string

const (
	StatusDone   Status = "done"
	StatusMissed Status = "missed"
)

// Valid reports whether s is one of the known outcomes
func (s Status) Valid() bool {
	return s == StatusDone || s == StatusMissed
}

// LogEntry is an immutable record of a habit's outcome on a day.
// HabitTitle, not the habit id, links an entry to its habit.
type LogEntry struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	HabitTitle string `json:"habit_title"`
	Date       string `json:"date"` // YYYY-MM-DD format
	Status     Status `json:"status"`
}

// Stats aggregates a user's outcomes across all habits
type Stats struct {
	Done    int     `json:"done"`
	Missed  int     `json:"missed"`
	Percent float64 `json:"percent"`
}
