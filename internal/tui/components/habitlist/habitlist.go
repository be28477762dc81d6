package habitlist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitbell/internal/models"
	"github.com/julianstephens/habitbell/internal/tracker"
)

type AddHabitMsg struct{}

type RenameHabitMsg struct {
	Habit models.Habit
}

type RetimeHabitMsg struct {
	Habit models.Habit
}

type DeleteHabitMsg struct {
	Habit models.Habit
}

type LogHabitMsg struct {
	Habit  models.Habit
	Status models.Status
}

type Item struct {
	Summary tracker.HabitSummary
}

func (i Item) Title() string { return i.Summary.Title }
func (i Item) Description() string {
	desc := "⏰ " + i.Summary.RemindAt
	if i.Summary.Streak > 0 {
		desc += fmt.Sprintf(" | 🔥 %d day streak", i.Summary.Streak)
	}
	return desc
}
func (i Item) FilterValue() string { return i.Summary.Title }

type KeyMap struct {
	Add    key.Binding
	Rename key.Binding
	Retime key.Binding
	Delete key.Binding
	Done   key.Binding
	Missed key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Rename: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "rename"),
		),
		Retime: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "change time"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Done: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "done today"),
		),
		Missed: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "missed today"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(habits []tracker.HabitSummary, width, height int) Model {
	l := list.New(toItems(habits), list.NewDefaultDelegate(), width, height)
	l.Title = "Habits"
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Done, keys.Missed}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Rename, keys.Retime, keys.Delete, keys.Done, keys.Missed}
	}

	return Model{list: l, keys: keys}
}

func toItems(habits []tracker.HabitSummary) []list.Item {
	items := make([]list.Item, len(habits))
	for i, h := range habits {
		items[i] = Item{Summary: h}
	}
	return items
}

func (m *Model) SetHabits(habits []tracker.HabitSummary) {
	m.list.SetItems(toItems(habits))
}

func (m Model) Len() int {
	return len(m.list.Items())
}

// Selected returns the highlighted habit, if any.
func (m Model) Selected() (models.Habit, bool) {
	i, ok := m.list.SelectedItem().(Item)
	if !ok {
		return models.Habit{}, false
	}
	return i.Summary.Habit, true
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		if key.Matches(msg, m.keys.Add) {
			return m, func() tea.Msg { return AddHabitMsg{} }
		}
		if h, ok := m.Selected(); ok {
			switch {
			case key.Matches(msg, m.keys.Rename):
				return m, func() tea.Msg { return RenameHabitMsg{Habit: h} }
			case key.Matches(msg, m.keys.Retime):
				return m, func() tea.Msg { return RetimeHabitMsg{Habit: h} }
			case key.Matches(msg, m.keys.Delete):
				return m, func() tea.Msg { return DeleteHabitMsg{Habit: h} }
			case key.Matches(msg, m.keys.Done):
				return m, func() tea.Msg { return LogHabitMsg{Habit: h, Status: models.StatusDone} }
			case key.Matches(msg, m.keys.Missed):
				return m, func() tea.Msg { return LogHabitMsg{Habit: h, Status: models.StatusMissed} }
			}
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return "\n  No habits yet.\n  Press 'a' to add one."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
