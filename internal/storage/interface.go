package storage

import (
	"context"

	"github.com/julianstephens/habitbell/internal/migration"
	"github.com/julianstephens/habitbell/internal/models"
)

// HabitStore is the durable record of each user's habits.
// Deletes are idempotent: removing a missing habit succeeds and changes nothing.
// Updates of a missing habit return errors.ErrNotFound.
type HabitStore interface {
	// AddHabit inserts habit unless the owner already has maxHabits habits,
	// in which case it returns errors.ErrCapacityExceeded and writes nothing.
	AddHabit(ctx context.Context, habit models.Habit, maxHabits int) (int64, error)
	GetHabit(ctx context.Context, id int64) (models.Habit, error)
	GetHabitByTitle(ctx context.Context, userID int64, title string) (models.Habit, error)
	// ListHabits returns a user's habits in insertion order.
	ListHabits(ctx context.Context, userID int64) ([]models.Habit, error)
	ListAllHabits(ctx context.Context) ([]models.Habit, error)
	CountHabits(ctx context.Context, userID int64) (int, error)
	UpdateHabitTitle(ctx context.Context, id int64, title string) error
	UpdateHabitTime(ctx context.Context, id int64, remindAt string) error
	// DeleteHabitByTitle and DeleteHabitByID also remove the log entries
	// matching the habit's (user, title) in the same transaction.
	DeleteHabitByTitle(ctx context.Context, userID int64, title string) error
	DeleteHabitByID(ctx context.Context, id int64) error
}

// LogStore is the append-only record of daily outcomes.
type LogStore interface {
	// AppendLog inserts entry. No uniqueness is enforced per (user, title, date).
	AppendLog(ctx context.Context, entry models.LogEntry) error
	CountByStatus(ctx context.Context, userID int64, status models.Status) (int, error)
	// LogsSince returns entries dated on or after since (YYYY-MM-DD), newest first.
	LogsSince(ctx context.Context, userID int64, since string) ([]models.LogEntry, error)
	// DoneDates returns the dates of "done" entries for a habit, newest first.
	DoneDates(ctx context.Context, userID int64, title string) ([]string, error)
	LogExists(ctx context.Context, userID int64, title, date string) (bool, error)
	ClearLogs(ctx context.Context, userID int64) error
}

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	HabitStore
	LogStore

	// Utils
	GetConfigPath() string
	SchemaStatus(ctx context.Context) (migration.Status, error)
}
