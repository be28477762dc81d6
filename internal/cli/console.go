package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitbell/internal/lockfile"
	"github.com/julianstephens/habitbell/internal/logger"
	"github.com/julianstephens/habitbell/internal/models"
	"github.com/julianstephens/habitbell/internal/notifier"
	"github.com/julianstephens/habitbell/internal/scheduler"
	"github.com/julianstephens/habitbell/internal/session"
	"github.com/julianstephens/habitbell/internal/tui"
)

// ConsoleCmd opens the interactive console for one user. Reminders for that
// user arrive in the console when no other scheduler holds the lock.
type ConsoleCmd struct{}

func (c *ConsoleCmd) Run(ctx *Context) error {
	if err := ctx.requireUser(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbox := tui.NewInbox(16)
	stopScheduler := c.startScheduler(runCtx, ctx, inbox)
	defer stopScheduler()

	model := tui.NewModel(ctx.Tracker, session.NewManager(ctx.Tracker), ctx.UserID, inbox.Reminders())
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(runCtx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

// startScheduler runs an in-process scheduler delivering this user's
// reminders to inbox. Other users' reminders are left for the running service.
func (c *ConsoleCmd) startScheduler(runCtx context.Context, ctx *Context, inbox *tui.Inbox) func() {
	noop := func() {}

	lock, err := lockfile.Acquire(ctx.Config.Dir, "console")
	if err != nil {
		if info, ok := lockfile.Running(ctx.Config.Dir); ok {
			logger.Info("Scheduler already running elsewhere", "pid", info.PID, "addr", info.Addr)
		} else {
			logger.Warn("Could not acquire scheduler lock", "error", err)
		}
		return noop
	}

	userID := ctx.UserID
	deliver := notifier.Func(func(sctx context.Context, r models.Reminder) error {
		if r.UserID != userID {
			return nil
		}
		return inbox.Send(sctx, r)
	})
	sched, err := scheduler.New(userHabits{ctx.Store, userID}, deliver,
		scheduler.WithClock(ctx.Clock),
		scheduler.WithCron(ctx.Config.ReminderCron),
	)
	if err != nil {
		logger.Warn("Console scheduler disabled", "error", err)
		_ = lock.Release()
		return noop
	}
	sched.Start(runCtx)

	return func() {
		if err := sched.Stop(); err != nil {
			logger.Debug("Console scheduler stop", "error", err)
		}
		if err := lock.Release(); err != nil {
			logger.Warn("Failed to release lockfile", "error", err)
		}
	}
}

// userHabits narrows the scheduler's view to a single user.
type userHabits struct {
	source interface {
		scheduler.HabitSource
		ListHabits(ctx context.Context, userID int64) ([]models.Habit, error)
	}
	userID int64
}

func (u userHabits) ListAllHabits(ctx context.Context) ([]models.Habit, error) {
	return u.source.ListHabits(ctx, u.userID)
}

func (u userHabits) LogExists(ctx context.Context, userID int64, title, date string) (bool, error) {
	return u.source.LogExists(ctx, userID, title, date)
}
