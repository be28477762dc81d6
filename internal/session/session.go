package session

import (
	"context"
	"errors"
	"sync"

	apperrors "github.com/julianstephens/habitbell/internal/errors"
	"github.com/julianstephens/habitbell/internal/logger"
	"github.com/julianstephens/habitbell/internal/models"
	"github.com/julianstephens/habitbell/internal/validation"
)

// Habits is the slice of the tracker the conversation flows drive.
type Habits interface {
	CheckCapacity(ctx context.Context, userID int64) error
	AddHabit(ctx context.Context, userID int64, title, remindAt string) (models.Habit, error)
	GetHabit(ctx context.Context, id int64) (models.Habit, error)
	UpdateTitle(ctx context.Context, id int64, title string) error
	UpdateTime(ctx context.Context, id int64, remindAt string) error
}

type conversation struct {
	mu       sync.Mutex
	detached bool
	state    State
	title    string
	habitID  int64
}

func (c *conversation) reset() {
	c.state = Idle
	c.title = ""
	c.habitID = 0
}

type transition func(m *Manager, ctx context.Context, userID int64, c *conversation, ev Event) (Reply, error)

type key struct {
	state State
	kind  EventKind
}

// transitions lists every handled (state, event) pair. Cancel is accepted in
// every state; anything else missing here is ignored.
var transitions = map[key]transition{
	{Idle, StartAdd}:           startAdd,
	{Idle, StartEditTitle}:     startEdit(AwaitingNewTitle, AskNewTitle),
	{Idle, StartEditTime}:      startEdit(AwaitingNewTime, AskNewTime),
	{AwaitingTitle, Input}:     acceptTitle,
	{AwaitingTime, Input}:      acceptTime,
	{AwaitingNewTitle, Input}:  acceptNewTitle,
	{AwaitingNewTime, Input}:   acceptNewTime,
	{Idle, Cancel}:             cancel,
	{AwaitingTitle, Cancel}:    cancel,
	{AwaitingTime, Cancel}:     cancel,
	{AwaitingNewTitle, Cancel}: cancel,
	{AwaitingNewTime, Cancel}:  cancel,
}

// Manager keeps one conversation per user. Events for the same user are
// handled one at a time; different users proceed in parallel.
type Manager struct {
	habits Habits

	mu       sync.Mutex
	sessions map[int64]*conversation
}

func NewManager(habits Habits) *Manager {
	return &Manager{
		habits:   habits,
		sessions: make(map[int64]*conversation),
	}
}

// State returns the user's current conversation state.
func (m *Manager) State(userID int64) State {
	m.mu.Lock()
	c, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return Idle
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Handle applies ev to the user's conversation. Starting a flow while another
// is in progress abandons the old one. A returned error is a store failure;
// the conversation is left where it was.
func (m *Manager) Handle(ctx context.Context, userID int64, ev Event) (Reply, error) {
	if err := validation.UserID(userID); err != nil {
		return Reply{}, err
	}

	c := m.lock(userID)
	defer c.mu.Unlock()

	restore := func() {}
	switch ev.Kind {
	case StartAdd, StartEditTitle, StartEditTime:
		if c.state != Idle {
			state, title, habitID := c.state, c.title, c.habitID
			restore = func() { c.state, c.title, c.habitID = state, title, habitID }
			logger.Debug("Abandoning conversation", "user", userID, "state", c.state)
			c.reset()
		}
	}

	defer func() {
		if c.state == Idle {
			m.release(userID, c)
		}
	}()

	t, ok := transitions[key{c.state, ev.Kind}]
	if !ok {
		return Reply{State: c.state, Outcome: Ignored}, nil
	}

	from := c.state
	reply, err := t(m, ctx, userID, c, ev)
	if err != nil {
		restore()
		return Reply{State: c.state}, err
	}
	reply.State = c.state
	logger.Debug("Conversation transition", "user", userID, "event", ev.Kind, "from", from, "to", c.state, "outcome", reply.Outcome)
	return reply, nil
}

// lock returns the user's conversation with its mutex held.
func (m *Manager) lock(userID int64) *conversation {
	for {
		m.mu.Lock()
		c, ok := m.sessions[userID]
		if !ok {
			c = &conversation{}
			m.sessions[userID] = c
		}
		m.mu.Unlock()

		c.mu.Lock()
		if !c.detached {
			return c
		}
		// Released while we waited; take the replacement
		c.mu.Unlock()
	}
}

// release drops an idle conversation so the map only holds active flows.
// The caller holds c.mu.
func (m *Manager) release(userID int64, c *conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[userID] == c {
		delete(m.sessions, userID)
	}
	c.detached = true
}

// Active returns the number of conversations in progress.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func startAdd(m *Manager, ctx context.Context, userID int64, c *conversation, _ Event) (Reply, error) {
	if err := m.habits.CheckCapacity(ctx, userID); err != nil {
		if errors.Is(err, apperrors.ErrCapacityExceeded) {
			return Reply{Outcome: AtCapacity, Detail: err.Error()}, nil
		}
		return Reply{}, err
	}
	c.state = AwaitingTitle
	return Reply{Outcome: AskTitle}, nil
}

func startEdit(next State, ask Outcome) transition {
	return func(m *Manager, ctx context.Context, userID int64, c *conversation, ev Event) (Reply, error) {
		h, err := m.habits.GetHabit(ctx, ev.HabitID)
		if errors.Is(err, apperrors.ErrNotFound) || (err == nil && h.UserID != userID) {
			return Reply{Outcome: HabitNotFound}, nil
		}
		if err != nil {
			return Reply{}, err
		}
		c.state = next
		c.habitID = h.ID
		return Reply{Outcome: ask, Habit: snippet(h)}, nil
	}
}

func acceptTitle(_ *Manager, _ context.Context, _ int64, c *conversation, ev Event) (Reply, error) {
	title, err := validation.Title(ev.Text)
	if err != nil {
		return Reply{Outcome: InvalidTitle, Detail: err.Error()}, nil
	}
	c.title = title
	c.state = AwaitingTime
	return Reply{Outcome: AskTime, Habit: &HabitSnippet{Title: title}}, nil
}

func acceptTime(m *Manager, ctx context.Context, userID int64, c *conversation, ev Event) (Reply, error) {
	remindAt, err := validation.Time(ev.Text)
	if err != nil {
		return Reply{Outcome: InvalidTime, Detail: err.Error()}, nil
	}

	h, err := m.habits.AddHabit(ctx, userID, c.title, remindAt)
	switch {
	case err == nil:
		c.reset()
		return Reply{Outcome: Added, Habit: snippet(h)}, nil
	case errors.Is(err, apperrors.ErrCapacityExceeded):
		c.reset()
		return Reply{Outcome: AtCapacity, Detail: err.Error()}, nil
	case errors.Is(err, apperrors.ErrDuplicateTitle):
		title := c.title
		c.title = ""
		c.state = AwaitingTitle
		return Reply{Outcome: DuplicateName, Habit: &HabitSnippet{Title: title}}, nil
	default:
		return Reply{}, err
	}
}

func acceptNewTitle(m *Manager, ctx context.Context, _ int64, c *conversation, ev Event) (Reply, error) {
	err := m.habits.UpdateTitle(ctx, c.habitID, ev.Text)
	switch {
	case err == nil:
		return finishEdit(m, ctx, c, Renamed)
	case errors.Is(err, apperrors.ErrValidation):
		return Reply{Outcome: InvalidTitle, Detail: err.Error()}, nil
	case errors.Is(err, apperrors.ErrDuplicateTitle):
		return Reply{Outcome: DuplicateName, Detail: err.Error()}, nil
	case errors.Is(err, apperrors.ErrNotFound):
		c.reset()
		return Reply{Outcome: HabitNotFound}, nil
	default:
		return Reply{}, err
	}
}

func acceptNewTime(m *Manager, ctx context.Context, _ int64, c *conversation, ev Event) (Reply, error) {
	err := m.habits.UpdateTime(ctx, c.habitID, ev.Text)
	switch {
	case err == nil:
		return finishEdit(m, ctx, c, Rescheduled)
	case errors.Is(err, apperrors.ErrValidation):
		return Reply{Outcome: InvalidTime, Detail: err.Error()}, nil
	case errors.Is(err, apperrors.ErrNotFound):
		c.reset()
		return Reply{Outcome: HabitNotFound}, nil
	default:
		return Reply{}, err
	}
}

func finishEdit(m *Manager, ctx context.Context, c *conversation, outcome Outcome) (Reply, error) {
	id := c.habitID
	c.reset()
	reply := Reply{Outcome: outcome}
	if h, err := m.habits.GetHabit(ctx, id); err == nil {
		reply.Habit = snippet(h)
	}
	return reply, nil
}

func cancel(_ *Manager, _ context.Context, _ int64, c *conversation, _ Event) (Reply, error) {
	c.reset()
	return Reply{Outcome: Canceled}, nil
}

func snippet(h models.Habit) *HabitSnippet {
	return &HabitSnippet{ID: h.ID, Title: h.Title, Time: h.RemindAt}
}
