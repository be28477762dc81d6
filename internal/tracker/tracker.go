package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/habitbell/internal/constants"
	apperrors "github.com/julianstephens/habitbell/internal/errors"
	"github.com/julianstephens/habitbell/internal/logger"
	"github.com/julianstephens/habitbell/internal/models"
	"github.com/julianstephens/habitbell/internal/storage"
	"github.com/julianstephens/habitbell/internal/validation"
)

// Tracker is the set of operations the presentation layer calls: habit
// management, outcome logging and the derived streak/stats/history views.
// It holds no habit or log state of its own; every call reads the store.
type Tracker struct {
	store       storage.Provider
	clock       clockwork.Clock
	maxHabits   int
	historyDays int
	beforeClear func(ctx context.Context, userID int64) error
}

type Option func(*Tracker)

// WithClock sets the wall-clock source used for "today".
func WithClock(clock clockwork.Clock) Option {
	return func(t *Tracker) { t.clock = clock }
}

// WithMaxHabits sets the per-user habit limit.
func WithMaxHabits(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxHabits = n
		}
	}
}

// WithHistoryDays sets the window used when History is called with days <= 0.
func WithHistoryDays(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.historyDays = n
		}
	}
}

// WithBeforeClear registers a hook run before a user's history is wiped.
// A hook error aborts the clear.
func WithBeforeClear(fn func(ctx context.Context, userID int64) error) Option {
	return func(t *Tracker) { t.beforeClear = fn }
}

func New(store storage.Provider, opts ...Option) *Tracker {
	t := &Tracker{
		store:       store,
		clock:       clockwork.NewRealClock(),
		maxHabits:   constants.DefaultMaxHabits,
		historyDays: constants.DefaultHistoryDays,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// HabitSummary is a habit together with its current streak
type HabitSummary struct {
	models.Habit
	Streak int `json:"streak"`
}

func (t *Tracker) Now() time.Time {
	return t.clock.Now()
}

// Today returns the current calendar date as YYYY-MM-DD.
func (t *Tracker) Today() string {
	return t.clock.Now().Format(constants.DateFormat)
}

func (t *Tracker) MaxHabits() int {
	return t.maxHabits
}

// HistoryDays is the default history window.
func (t *Tracker) HistoryDays() int {
	return t.historyDays
}

// CheckCapacity returns ErrCapacityExceeded when the user cannot add another habit.
// AddHabit enforces the limit again atomically.
func (t *Tracker) CheckCapacity(ctx context.Context, userID int64) error {
	if err := validation.UserID(userID); err != nil {
		return err
	}
	count, err := t.store.CountHabits(ctx, userID)
	if err != nil {
		return err
	}
	if count >= t.maxHabits {
		return fmt.Errorf("%w: %d of %d habits", apperrors.ErrCapacityExceeded, count, t.maxHabits)
	}
	return nil
}

func (t *Tracker) AddHabit(ctx context.Context, userID int64, title, remindAt string) (models.Habit, error) {
	if err := validation.UserID(userID); err != nil {
		return models.Habit{}, err
	}
	title, err := validation.Title(title)
	if err != nil {
		return models.Habit{}, err
	}
	remindAt, err = validation.Time(remindAt)
	if err != nil {
		return models.Habit{}, err
	}

	habit := models.Habit{UserID: userID, Title: title, RemindAt: remindAt}
	id, err := t.store.AddHabit(ctx, habit, t.maxHabits)
	if err != nil {
		return models.Habit{}, err
	}
	habit.ID = id

	logger.Info("Habit added", "user", userID, "habit", title, "time", remindAt)
	return habit, nil
}

func (t *Tracker) ListHabits(ctx context.Context, userID int64) ([]models.Habit, error) {
	if err := validation.UserID(userID); err != nil {
		return nil, err
	}
	return t.store.ListHabits(ctx, userID)
}

// Overview lists a user's habits with their streaks.
func (t *Tracker) Overview(ctx context.Context, userID int64) ([]HabitSummary, error) {
	habits, err := t.ListHabits(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := t.clock.Now()
	summaries := make([]HabitSummary, 0, len(habits))
	for _, h := range habits {
		dates, err := t.store.DoneDates(ctx, userID, h.Title)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, HabitSummary{Habit: h, Streak: ComputeStreak(dates, today)})
	}
	return summaries, nil
}

func (t *Tracker) GetHabit(ctx context.Context, id int64) (models.Habit, error) {
	return t.store.GetHabit(ctx, id)
}

// UpdateTitle renames a habit. Existing log entries keep the old title.
func (t *Tracker) UpdateTitle(ctx context.Context, id int64, title string) error {
	title, err := validation.Title(title)
	if err != nil {
		return err
	}
	if err := t.store.UpdateHabitTitle(ctx, id, title); err != nil {
		return err
	}
	logger.Info("Habit renamed", "id", id, "habit", title)
	return nil
}

func (t *Tracker) UpdateTime(ctx context.Context, id int64, remindAt string) error {
	remindAt, err := validation.Time(remindAt)
	if err != nil {
		return err
	}
	if err := t.store.UpdateHabitTime(ctx, id, remindAt); err != nil {
		return err
	}
	logger.Info("Habit rescheduled", "id", id, "time", remindAt)
	return nil
}

// DeleteByID removes a habit and its log entries. Unknown ids are a no-op.
func (t *Tracker) DeleteByID(ctx context.Context, id int64) error {
	return t.store.DeleteHabitByID(ctx, id)
}

// DeleteByTitle removes a habit and its log entries. Unknown titles are a no-op.
func (t *Tracker) DeleteByTitle(ctx context.Context, userID int64, title string) error {
	if err := validation.UserID(userID); err != nil {
		return err
	}
	title, err := validation.Title(title)
	if err != nil {
		return err
	}
	return t.store.DeleteHabitByTitle(ctx, userID, title)
}

// LogOutcome records today's outcome for one of the user's habits.
func (t *Tracker) LogOutcome(ctx context.Context, userID int64, title string, status models.Status) (models.LogEntry, error) {
	if err := validation.UserID(userID); err != nil {
		return models.LogEntry{}, err
	}
	title, err := validation.Title(title)
	if err != nil {
		return models.LogEntry{}, err
	}
	if !status.Valid() {
		return models.LogEntry{}, apperrors.Validation("status", "must be %q or %q, got %q", models.StatusDone, models.StatusMissed, status)
	}
	if _, err := t.store.GetHabitByTitle(ctx, userID, title); err != nil {
		return models.LogEntry{}, err
	}

	entry := models.LogEntry{
		UserID:     userID,
		HabitTitle: title,
		Date:       t.Today(),
		Status:     status,
	}
	if err := t.store.AppendLog(ctx, entry); err != nil {
		return models.LogEntry{}, err
	}

	logger.Info("Outcome logged", "user", userID, "habit", title, "date", entry.Date, "status", status)
	return entry, nil
}

func (t *Tracker) Stats(ctx context.Context, userID int64) (models.Stats, error) {
	if err := validation.UserID(userID); err != nil {
		return models.Stats{}, err
	}
	done, err := t.store.CountByStatus(ctx, userID, models.StatusDone)
	if err != nil {
		return models.Stats{}, err
	}
	missed, err := t.store.CountByStatus(ctx, userID, models.StatusMissed)
	if err != nil {
		return models.Stats{}, err
	}
	return ComputeStats(done, missed), nil
}

// History returns the user's entries from the last days days, newest first.
// days <= 0 selects the configured default window.
func (t *Tracker) History(ctx context.Context, userID int64, days int) ([]models.LogEntry, error) {
	if err := validation.UserID(userID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = t.historyDays
	}
	return t.store.LogsSince(ctx, userID, WindowStart(t.clock.Now(), days))
}

func (t *Tracker) Streak(ctx context.Context, userID int64, title string) (int, error) {
	if err := validation.UserID(userID); err != nil {
		return 0, err
	}
	title, err := validation.Title(title)
	if err != nil {
		return 0, err
	}
	dates, err := t.store.DoneDates(ctx, userID, title)
	if err != nil {
		return 0, err
	}
	return ComputeStreak(dates, t.clock.Now()), nil
}

// ClearHistory wipes every log entry for the user. Habits are kept.
func (t *Tracker) ClearHistory(ctx context.Context, userID int64) error {
	if err := validation.UserID(userID); err != nil {
		return err
	}
	if t.beforeClear != nil {
		if err := t.beforeClear(ctx, userID); err != nil {
			return fmt.Errorf("prepare clear: %w", err)
		}
	}
	if err := t.store.ClearLogs(ctx, userID); err != nil {
		return err
	}
	logger.Info("History cleared", "user", userID)
	return nil
}
