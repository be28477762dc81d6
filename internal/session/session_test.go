package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitbell/internal/models"
	"github.com/julianstephens/habitbell/internal/storage/sqlite"
	"github.com/julianstephens/habitbell/internal/tracker"
)

const user int64 = 1001

func setup(t *testing.T, opts ...tracker.Option) (*Manager, *tracker.Tracker) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "habits.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })

	tr := tracker.New(store, opts...)
	return NewManager(tr), tr
}

func handle(t *testing.T, m *Manager, ev Event) Reply {
	t.Helper()
	reply, err := m.Handle(context.Background(), user, ev)
	require.NoError(t, err)
	return reply
}

func TestAddFlow(t *testing.T) {
	m, tr := setup(t)

	reply := handle(t, m, Event{Kind: StartAdd})
	assert.Equal(t, AwaitingTitle, reply.State)
	assert.Equal(t, AskTitle, reply.Outcome)

	// Invalid input stays in the same state
	reply = handle(t, m, Event{Kind: Input, Text: "   "})
	assert.Equal(t, AwaitingTitle, reply.State)
	assert.Equal(t, InvalidTitle, reply.Outcome)

	reply = handle(t, m, Event{Kind: Input, Text: "Read"})
	assert.Equal(t, AwaitingTime, reply.State)
	assert.Equal(t, AskTime, reply.Outcome)

	reply = handle(t, m, Event{Kind: Input, Text: "8:7"})
	assert.Equal(t, AwaitingTime, reply.State)
	assert.Equal(t, InvalidTime, reply.Outcome)

	reply = handle(t, m, Event{Kind: Input, Text: "8:30"})
	assert.Equal(t, Idle, reply.State)
	assert.Equal(t, Added, reply.Outcome)
	require.NotNil(t, reply.Habit)
	assert.Equal(t, "08:30", reply.Habit.Time)

	habits, err := tr.ListHabits(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.Equal(t, "Read", habits[0].Title)
	assert.Zero(t, m.Active())
}

func TestStartAddAtCapacity(t *testing.T) {
	m, tr := setup(t, tracker.WithMaxHabits(1))
	_, err := tr.AddHabit(context.Background(), user, "Read", "08:00")
	require.NoError(t, err)

	reply := handle(t, m, Event{Kind: StartAdd})
	assert.Equal(t, Idle, reply.State)
	assert.Equal(t, AtCapacity, reply.Outcome)
}

func TestAddDuplicateReturnsToTitle(t *testing.T) {
	m, tr := setup(t)
	_, err := tr.AddHabit(context.Background(), user, "Read", "08:00")
	require.NoError(t, err)

	handle(t, m, Event{Kind: StartAdd})
	handle(t, m, Event{Kind: Input, Text: "Read"})
	reply := handle(t, m, Event{Kind: Input, Text: "09:00"})
	assert.Equal(t, AwaitingTitle, reply.State)
	assert.Equal(t, DuplicateName, reply.Outcome)
}

func TestEditFlows(t *testing.T) {
	ctx := context.Background()
	m, tr := setup(t)
	h, err := tr.AddHabit(ctx, user, "Read", "08:00")
	require.NoError(t, err)

	reply := handle(t, m, Event{Kind: StartEditTime, HabitID: h.ID})
	assert.Equal(t, AwaitingNewTime, reply.State)
	assert.Equal(t, AskNewTime, reply.Outcome)

	reply = handle(t, m, Event{Kind: Input, Text: "24:00"})
	assert.Equal(t, AwaitingNewTime, reply.State)
	assert.Equal(t, InvalidTime, reply.Outcome)

	reply = handle(t, m, Event{Kind: Input, Text: "07:15"})
	assert.Equal(t, Idle, reply.State)
	assert.Equal(t, Rescheduled, reply.Outcome)
	assert.Equal(t, "07:15", reply.Habit.Time)

	reply = handle(t, m, Event{Kind: StartEditTitle, HabitID: h.ID})
	assert.Equal(t, AwaitingNewTitle, reply.State)
	reply = handle(t, m, Event{Kind: Input, Text: "Read poetry"})
	assert.Equal(t, Idle, reply.State)
	assert.Equal(t, Renamed, reply.Outcome)

	got, err := tr.GetHabit(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Habit{ID: h.ID, UserID: user, Title: "Read poetry", RemindAt: "07:15"}, got)
}

func TestEditUnknownOrForeignHabit(t *testing.T) {
	ctx := context.Background()
	m, tr := setup(t)
	foreign, err := tr.AddHabit(ctx, user+1, "Theirs", "08:00")
	require.NoError(t, err)

	for _, id := range []int64{404, foreign.ID} {
		reply := handle(t, m, Event{Kind: StartEditTitle, HabitID: id})
		assert.Equal(t, Idle, reply.State)
		assert.Equal(t, HabitNotFound, reply.Outcome)
	}
}

func TestEditHabitDeletedMidFlow(t *testing.T) {
	ctx := context.Background()
	m, tr := setup(t)
	h, err := tr.AddHabit(ctx, user, "Read", "08:00")
	require.NoError(t, err)

	handle(t, m, Event{Kind: StartEditTime, HabitID: h.ID})
	require.NoError(t, tr.DeleteByID(ctx, h.ID))

	reply := handle(t, m, Event{Kind: Input, Text: "09:00"})
	assert.Equal(t, Idle, reply.State)
	assert.Equal(t, HabitNotFound, reply.Outcome)
}

func TestCancelAndRestart(t *testing.T) {
	m, _ := setup(t)

	handle(t, m, Event{Kind: StartAdd})
	handle(t, m, Event{Kind: Input, Text: "Read"})
	assert.Equal(t, AwaitingTime, m.State(user))

	reply := handle(t, m, Event{Kind: Cancel})
	assert.Equal(t, Idle, reply.State)
	assert.Equal(t, Canceled, reply.Outcome)

	// Input while idle is ignored
	reply = handle(t, m, Event{Kind: Input, Text: "08:00"})
	assert.Equal(t, Idle, reply.State)
	assert.Equal(t, Ignored, reply.Outcome)

	// Starting again mid-flow abandons the old flow
	handle(t, m, Event{Kind: StartAdd})
	handle(t, m, Event{Kind: Input, Text: "Run"})
	reply = handle(t, m, Event{Kind: StartAdd})
	assert.Equal(t, AwaitingTitle, reply.State)
}

func TestUsersAreIndependent(t *testing.T) {
	ctx := context.Background()
	m, _ := setup(t)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := int64(1); i <= 10; i++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			steps := []Event{
				{Kind: StartAdd},
				{Kind: Input, Text: fmt.Sprintf("habit-%d", u)},
				{Kind: Input, Text: "06:00"},
			}
			var last Reply
			for _, ev := range steps {
				r, err := m.Handle(ctx, u, ev)
				if err != nil {
					errs <- err
					return
				}
				last = r
			}
			if last.Outcome != Added {
				errs <- fmt.Errorf("user %d: outcome %s", u, last.Outcome)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assert.Zero(t, m.Active())
}

type failingHabits struct{ Habits }

func (failingHabits) CheckCapacity(context.Context, int64) error {
	return errors.New("database unavailable")
}

func TestStoreErrorKeepsState(t *testing.T) {
	m := NewManager(failingHabits{})
	_, err := m.Handle(context.Background(), user, Event{Kind: StartAdd})
	require.Error(t, err)
	assert.Equal(t, Idle, m.State(user))
}

func (failingHabits) GetHabit(context.Context, int64) (models.Habit, error) {
	return models.Habit{}, errors.New("database unavailable")
}

func TestStoreErrorOnRestartKeepsFlow(t *testing.T) {
	m, _ := setup(t)
	handle(t, m, Event{Kind: StartAdd})
	handle(t, m, Event{Kind: Input, Text: "Read"})
	require.Equal(t, AwaitingTime, m.State(user))

	m.habits = failingHabits{}
	for _, kind := range []EventKind{StartAdd, StartEditTitle, StartEditTime} {
		reply, err := m.Handle(context.Background(), user, Event{Kind: kind, HabitID: 1})
		require.Error(t, err, kind)
		assert.Equal(t, AwaitingTime, reply.State, kind)
		assert.Equal(t, AwaitingTime, m.State(user), kind)
	}
	assert.Equal(t, 1, m.Active())
}

func TestEventJSON(t *testing.T) {
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(`{"event":"start_edit_time","habit_id":3}`), &ev))
	assert.Equal(t, Event{Kind: StartEditTime, HabitID: 3}, ev)

	assert.Error(t, json.Unmarshal([]byte(`{"event":"dance"}`), &ev))

	b, err := json.Marshal(Reply{State: AwaitingTime, Outcome: AskTime})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"awaiting_time","outcome":"ask_time"}`, string(b))
}
