package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitbell/internal/models"
	"github.com/julianstephens/habitbell/internal/notifier"
	"github.com/julianstephens/habitbell/internal/storage/sqlite"
	"github.com/julianstephens/habitbell/internal/tracker"
)

// memSource is an in-memory HabitSource
type memSource struct {
	mu      sync.Mutex
	habits  []models.Habit
	logged  map[string]bool
	listErr error
}

func (m *memSource) ListAllHabits(context.Context) ([]models.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]models.Habit(nil), m.habits...), nil
}

func (m *memSource) LogExists(_ context.Context, userID int64, title, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logged[logKey(userID, title, date)], nil
}

func logKey(userID int64, title, date string) string {
	return fmt.Sprintf("%d|%s|%s", userID, title, date)
}

// recordingDispatcher collects sent reminders and fails for chosen users
type recordingDispatcher struct {
	mu      sync.Mutex
	sent    []models.Reminder
	failFor map[int64]bool
}

func (d *recordingDispatcher) Send(_ context.Context, r models.Reminder) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFor[r.UserID] {
		return errors.New("transport down")
	}
	d.sent = append(d.sent, r)
	return nil
}

func (d *recordingDispatcher) titles() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, r := range d.sent {
		out = append(out, r.HabitTitle)
	}
	return out
}

func at(hour, minute int) *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(time.Date(2026, 10, 17, hour, minute, 12, 0, time.Local))
}

func newTestScheduler(t *testing.T, source HabitSource, d notifier.Dispatcher, clock clockwork.Clock) *Scheduler {
	t.Helper()
	s, err := New(source, d, WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestTickDispatchesDueHabits(t *testing.T) {
	source := &memSource{habits: []models.Habit{
		{ID: 1, UserID: 1, Title: "Read", RemindAt: "08:00"},
		{ID: 2, UserID: 1, Title: "Run", RemindAt: "06:30"},
		{ID: 3, UserID: 2, Title: "Stretch", RemindAt: "08:00"},
	}}
	d := &recordingDispatcher{}
	s := newTestScheduler(t, source, d, at(8, 0))

	report, err := s.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "08:00", report.Minute)
	assert.Equal(t, "2026-10-17", report.Date)
	assert.Equal(t, 2, report.Due)
	assert.Equal(t, 2, report.Sent)
	assert.ElementsMatch(t, []string{"Read", "Stretch"}, d.titles())

	for _, r := range d.sent {
		assert.Equal(t, "2026-10-17", r.Date)
		assert.Equal(t, models.ReminderActions(r.HabitTitle), r.Actions)
	}
}

func TestTickSuppressedByAnyLogEntry(t *testing.T) {
	for _, status := range []models.Status{models.StatusDone, models.StatusMissed} {
		t.Run(string(status), func(t *testing.T) {
			source := &memSource{
				habits: []models.Habit{{ID: 1, UserID: 1, Title: "Read", RemindAt: "08:00"}},
				logged: map[string]bool{logKey(1, "Read", "2026-10-17"): true},
			}
			d := &recordingDispatcher{}
			s := newTestScheduler(t, source, d, at(8, 0))

			report, err := s.Tick(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, report.Suppressed)
			assert.Empty(t, d.titles())
		})
	}
}

func TestTickSameMinuteOnce(t *testing.T) {
	source := &memSource{habits: []models.Habit{{ID: 1, UserID: 1, Title: "Read", RemindAt: "08:00"}}}
	d := &recordingDispatcher{}
	clock := at(8, 0)
	s := newTestScheduler(t, source, d, clock)

	_, err := s.Tick(context.Background())
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	report, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Duplicate)
	assert.Len(t, d.titles(), 1)

	// The next day's tick at the same minute reminds again
	clock.Advance(24 * time.Hour)
	report, err = s.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Duplicate)
	assert.Len(t, d.titles(), 2)
}

func TestTickIsolatesDispatchFailures(t *testing.T) {
	source := &memSource{habits: []models.Habit{
		{ID: 1, UserID: 1, Title: "Read", RemindAt: "21:15"},
		{ID: 2, UserID: 2, Title: "Read", RemindAt: "21:15"},
		{ID: 3, UserID: 3, Title: "Journal", RemindAt: "21:15"},
	}}
	d := &recordingDispatcher{failFor: map[int64]bool{2: true}}
	s := newTestScheduler(t, source, d, at(21, 15))

	report, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Due)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)
}

func TestTickSkippedOnReadFailure(t *testing.T) {
	source := &memSource{
		habits:  []models.Habit{{ID: 1, UserID: 1, Title: "Read", RemindAt: "08:00"}},
		listErr: errors.New("database is locked"),
	}
	d := &recordingDispatcher{}
	s := newTestScheduler(t, source, d, at(8, 0))

	_, err := s.Tick(context.Background())
	require.Error(t, err)
	assert.Empty(t, d.titles())

	// Same minute retried once the store recovers
	source.mu.Lock()
	source.listErr = nil
	source.mu.Unlock()

	report, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
}

func TestNewReminderIDIsStable(t *testing.T) {
	h := models.Habit{ID: 9, UserID: 5, Title: "Read", RemindAt: "08:00"}
	a := NewReminder(h, "2026-10-17")
	b := NewReminder(h, "2026-10-17")
	c := NewReminder(h, "2026-10-18")

	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
	assert.Equal(t, "Reminder: Read", a.Text)
}

func TestNewRejectsBadCron(t *testing.T) {
	_, err := New(&memSource{}, &recordingDispatcher{}, WithCron("not a cron"))
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s, err := New(&memSource{}, &recordingDispatcher{})
	require.NoError(t, err)

	s.Start(context.Background())
	assert.NoError(t, s.Stop())
}

// A logged response makes later ticks on the same day skip the habit.
func TestResponseSuppressesLaterReminders(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "habits.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })

	clock := at(7, 45)
	tr := tracker.New(store, tracker.WithClock(clock))
	_, err := tr.AddHabit(ctx, 1, "Read", "07:45")
	require.NoError(t, err)

	d := &recordingDispatcher{}
	first := newTestScheduler(t, store, d, clock)
	report, err := first.Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Sent)

	_, err = tr.LogOutcome(ctx, 1, "Read", models.StatusDone)
	require.NoError(t, err)

	// A fresh scheduler (e.g. after a restart) in the same minute
	second := newTestScheduler(t, store, d, clock)
	report, err = second.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Suppressed)
	assert.Len(t, d.titles(), 1)
}
