package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	apperrors "github.com/julianstephens/habitbell/internal/errors"
	"github.com/julianstephens/habitbell/internal/models"
	"github.com/julianstephens/habitbell/internal/session"
	"github.com/julianstephens/habitbell/internal/tui/components/habitlist"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.input.Width = msg.Width - 4
		// tabs, status, prompt and help lines
		body := msg.Height - 8
		if body < 1 {
			body = 1
		}
		m.habits.SetSize(msg.Width-4, body)
		m.history.SetSize(msg.Width-4, body)
		return m, nil

	case dataMsg:
		if msg.err != nil {
			m.setStatus("", msg.err)
			return m, nil
		}
		m.habits.SetHabits(msg.habits)
		m.history.SetHistory(msg.history, msg.stats, m.tracker.HistoryDays())
		return m, nil

	case replyMsg:
		return m.handleReply(msg)

	case statusMsg:
		m.setStatus(msg.text, msg.err)
		return m, m.load()

	case reminderMsg:
		m.pending = append(m.pending, models.Reminder(msg))
		return m, m.waitForReminder()

	case habitlist.AddHabitMsg:
		return m, m.send(session.Event{Kind: session.StartAdd})
	case habitlist.RenameHabitMsg:
		return m, m.send(session.Event{Kind: session.StartEditTitle, HabitID: msg.Habit.ID})
	case habitlist.RetimeHabitMsg:
		return m, m.send(session.Event{Kind: session.StartEditTime, HabitID: msg.Habit.ID})
	case habitlist.DeleteHabitMsg:
		m.target = msg.Habit
		m.mode = ModeConfirmDelete
		return m, nil
	case habitlist.LogHabitMsg:
		return m, m.logOutcome(msg.Habit.Title, msg.Status)

	case tea.KeyMsg:
		switch m.mode {
		case ModePrompt:
			return m.updatePrompt(msg)
		case ModeConfirmDelete, ModeConfirmClear:
			return m.updateConfirm(msg)
		}
		return m.updateBrowse(msg)
	}

	return m.updateActive(msg)
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Tab):
		m.tab = (m.tab + 1) % tabCount
		return m, nil
	case key.Matches(msg, m.keys.ShiftTab):
		m.tab = (m.tab - 1 + tabCount) % tabCount
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.load()
	case key.Matches(msg, m.keys.Clear):
		m.mode = ModeConfirmClear
		return m, nil
	case len(m.pending) > 0 && key.Matches(msg, m.keys.Answer):
		r := m.pending[0]
		m.pending = m.pending[1:]
		status := models.StatusDone
		if msg.String() == "2" {
			status = models.StatusMissed
		}
		return m, m.logOutcome(r.HabitTitle, status)
	case len(m.pending) > 0 && key.Matches(msg, m.keys.Dismiss):
		m.pending = m.pending[1:]
		return m, nil
	}
	return m.updateActive(msg)
}

func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.tab {
	case TabHabits:
		m.habits, cmd = m.habits.Update(msg)
	case TabHistory:
		m.history, cmd = m.history.Update(msg)
	}
	return m, cmd
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		return m, m.send(session.Event{Kind: session.Cancel})
	case key.Matches(msg, m.keys.Submit):
		text := m.input.Value()
		m.input.Reset()
		return m, m.send(session.Event{Kind: session.Input, Text: text})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		mode := m.mode
		m.mode = ModeBrowse
		if mode == ModeConfirmDelete {
			return m, m.deleteHabit(m.target)
		}
		return m, m.clearHistory()
	case key.Matches(msg, m.keys.Deny):
		m.mode = ModeBrowse
		m.target = models.Habit{}
	}
	return m, nil
}

func (m Model) handleReply(msg replyMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.mode = ModeBrowse
		m.input.Blur()
		m.setStatus("", msg.err)
		return m, nil
	}

	text := replyText(msg.reply)
	if msg.reply.State == session.Idle {
		m.mode = ModeBrowse
		m.prompt = ""
		m.input.Blur()
		m.setStatus(text, nil)
		m.isError = failed(msg.reply.Outcome)
		return m, m.load()
	}

	m.mode = ModePrompt
	m.prompt = text
	m.status = ""
	m.input.Focus()
	return m, nil
}

func (m *Model) setStatus(text string, err error) {
	if err != nil {
		m.status = apperrors.Format(err)
		m.isError = true
		return
	}
	m.status = text
	m.isError = false
}
