package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/habitbell/internal/backup"
	"github.com/julianstephens/habitbell/internal/config"
	apperrors "github.com/julianstephens/habitbell/internal/errors"
	"github.com/julianstephens/habitbell/internal/storage"
	"github.com/julianstephens/habitbell/internal/tracker"
)

// Context is handed to every command's Run method.
type Context struct {
	Config     config.Config
	ConfigPath string
	Store      storage.Provider
	Tracker    *tracker.Tracker
	// Backups is nil when the store is PostgreSQL.
	Backups *backup.Manager
	Clock   clockwork.Clock
	UserID  int64
	Out     io.Writer
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) println(args ...interface{}) {
	fmt.Fprintln(c.out(), args...)
}

// requireUser fails commands that act on one user's habits when no user was given.
func (c *Context) requireUser() error {
	if c.UserID == 0 {
		return apperrors.Validation("user", "set --user or HABITBELL_USER")
	}
	return nil
}

func (c *Context) requireBackups() error {
	if c.Backups == nil {
		return fmt.Errorf("backups are only supported for SQLite databases")
	}
	return nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// renderTable formats rows with a rounded border and a highlighted header.
func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
