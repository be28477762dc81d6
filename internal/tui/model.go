package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitbell/internal/models"
	"github.com/julianstephens/habitbell/internal/session"
	"github.com/julianstephens/habitbell/internal/tracker"
	"github.com/julianstephens/habitbell/internal/tui/components/habitlist"
	"github.com/julianstephens/habitbell/internal/tui/components/history"
)

type Tab int

const (
	TabHabits Tab = iota
	TabHistory
	tabCount
)

var tabTitles = []string{"Habits", "History"}

type Mode int

const (
	ModeBrowse Mode = iota
	ModePrompt
	ModeConfirmDelete
	ModeConfirmClear
)

type dataMsg struct {
	habits  []tracker.HabitSummary
	history []models.LogEntry
	stats   models.Stats
	err     error
}

type replyMsg struct {
	reply session.Reply
	err   error
}

type reminderMsg models.Reminder

type statusMsg struct {
	text string
	err  error
}

type Model struct {
	tracker   *tracker.Tracker
	sessions  *session.Manager
	userID    int64
	reminders <-chan models.Reminder

	tab      Tab
	mode     Mode
	keys     KeyMap
	help     help.Model
	habits   habitlist.Model
	history  history.Model
	input    textinput.Model
	prompt   string
	pending  []models.Reminder
	target   models.Habit
	status   string
	isError  bool
	quitting bool
	width    int
	height   int
}

// NewModel builds the console for one user. reminders may be nil when no
// scheduler feeds this console.
func NewModel(t *tracker.Tracker, sessions *session.Manager, userID int64, reminders <-chan models.Reminder) Model {
	in := textinput.New()
	in.Prompt = "> "
	in.CharLimit = 200

	return Model{
		tracker:   t,
		sessions:  sessions,
		userID:    userID,
		reminders: reminders,
		tab:       TabHabits,
		mode:      ModeBrowse,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		habits:    habitlist.New(nil, 0, 0),
		history:   history.New(0, 0),
		input:     in,
	}
}

func (m Model) ShortHelp() []key.Binding {
	switch m.mode {
	case ModePrompt:
		return []key.Binding{m.keys.Submit, m.keys.Cancel}
	case ModeConfirmDelete, ModeConfirmClear:
		return []key.Binding{m.keys.Confirm, m.keys.Deny}
	}
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help, m.keys.Refresh}
	if len(m.pending) > 0 {
		keys = append(keys, m.keys.Answer, m.keys.Dismiss)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	return m.keys.FullHelp()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.waitForReminder())
}

func (m Model) load() tea.Cmd {
	t, userID := m.tracker, m.userID
	return func() tea.Msg {
		ctx := context.Background()
		habits, err := t.Overview(ctx, userID)
		if err != nil {
			return dataMsg{err: err}
		}
		entries, err := t.History(ctx, userID, 0)
		if err != nil {
			return dataMsg{err: err}
		}
		stats, err := t.Stats(ctx, userID)
		if err != nil {
			return dataMsg{err: err}
		}
		return dataMsg{habits: habits, history: entries, stats: stats}
	}
}

func (m Model) waitForReminder() tea.Cmd {
	if m.reminders == nil {
		return nil
	}
	ch := m.reminders
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return reminderMsg(r)
	}
}

func (m Model) send(ev session.Event) tea.Cmd {
	sessions, userID := m.sessions, m.userID
	return func() tea.Msg {
		reply, err := sessions.Handle(context.Background(), userID, ev)
		return replyMsg{reply: reply, err: err}
	}
}

func (m Model) logOutcome(title string, status models.Status) tea.Cmd {
	t, userID := m.tracker, m.userID
	return func() tea.Msg {
		entry, err := t.LogOutcome(context.Background(), userID, title, status)
		if err != nil {
			return statusMsg{err: err}
		}
		return statusMsg{text: "Logged " + string(entry.Status) + " for " + entry.HabitTitle}
	}
}

func (m Model) deleteHabit(h models.Habit) tea.Cmd {
	t := m.tracker
	return func() tea.Msg {
		if err := t.DeleteByID(context.Background(), h.ID); err != nil {
			return statusMsg{err: err}
		}
		return statusMsg{text: "Deleted " + h.Title}
	}
}

func (m Model) clearHistory() tea.Cmd {
	t, userID := m.tracker, m.userID
	return func() tea.Msg {
		if err := t.ClearHistory(context.Background(), userID); err != nil {
			return statusMsg{err: err}
		}
		return statusMsg{text: "History cleared"}
	}
}
