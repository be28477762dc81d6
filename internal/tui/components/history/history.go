package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitbell/internal/models"
)

var (
	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(12)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	missedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Italic(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			MarginBottom(1)
)

type Model struct {
	viewport viewport.Model
	entries  []models.LogEntry
	stats    models.Stats
	days     int
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) SetHistory(entries []models.LogEntry, stats models.Stats, days int) {
	m.entries = entries
	m.stats = stats
	m.days = days
	m.viewport.SetContent(m.render())
}

func (m Model) render() string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf(
		"Done %d | Missed %d | %.1f%% completion",
		m.stats.Done, m.stats.Missed, m.stats.Percent)))
	sb.WriteString("\n")

	if len(m.entries) == 0 {
		sb.WriteString(fmt.Sprintf("No entries in the last %d days.", m.days))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Last %d days:\n", m.days))
	for _, e := range m.entries {
		status := doneStyle.Render("✓ done")
		if e.Status == models.StatusMissed {
			status = missedStyle.Render("✗ missed")
		}
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			dateStyle.Render(e.Date),
			titleStyle.Render(e.HabitTitle),
			"  ",
			status,
		))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) View() string {
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
	m.viewport.SetContent(m.render())
}
