package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.mode {
	case ModeConfirmDelete:
		content = m.viewConfirm(fmt.Sprintf("Delete %q and its history?", m.target.Title))
	case ModeConfirmClear:
		content = m.viewConfirm("Clear your entire history? A backup is taken first.")
	default:
		switch m.tab {
		case TabHabits:
			content = docStyle.Render(m.habits.View())
		case TabHistory:
			content = docStyle.Render(m.history.View())
		}
	}

	parts := []string{m.viewTabs()}
	if r := m.viewReminder(); r != "" {
		parts = append(parts, r)
	}
	parts = append(parts, content)
	if m.mode == ModePrompt {
		parts = append(parts, promptStyle.Render(m.prompt), m.input.View())
	}
	if m.status != "" {
		style := okStyle
		if m.isError {
			style = warningStyle
		}
		parts = append(parts, style.Render(m.status))
	}
	parts = append(parts, m.help.View(m))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range tabTitles {
		if m.tab == Tab(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewReminder() string {
	if len(m.pending) == 0 {
		return ""
	}
	r := m.pending[0]
	body := lipgloss.JoinVertical(lipgloss.Left,
		r.Text,
		"[1] Done  [2] Missed  [0] Dismiss",
	)
	if n := len(m.pending) - 1; n > 0 {
		body = lipgloss.JoinVertical(lipgloss.Left, body, fmt.Sprintf("(+%d more)", n))
	}
	return reminderStyle.Render(body)
}

func (m Model) viewConfirm(question string) string {
	return lipgloss.Place(m.width, m.height-4,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(question),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}
