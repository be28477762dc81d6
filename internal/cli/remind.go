package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/habitbell/internal/lockfile"
	"github.com/julianstephens/habitbell/internal/logger"
	"github.com/julianstephens/habitbell/internal/models"
	"github.com/julianstephens/habitbell/internal/notifier"
	"github.com/julianstephens/habitbell/internal/scheduler"
)

// RemindCmd runs the reminder scheduler without the HTTP API.
type RemindCmd struct {
	Once   bool `help:"Evaluate the current minute once and exit."`
	DryRun bool `name:"dry-run" help:"Print reminders instead of dispatching them."`
}

func (c *RemindCmd) Run(ctx *Context) error {
	dispatcher, closeDispatcher, err := c.dispatcher(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDispatcher(); err != nil {
			logger.Warn("Failed to close dispatcher", "error", err)
		}
	}()

	sched, err := scheduler.New(ctx.Store, dispatcher,
		scheduler.WithClock(ctx.Clock),
		scheduler.WithCron(ctx.Config.ReminderCron),
	)
	if err != nil {
		return err
	}

	if c.Once {
		report, err := sched.Tick(context.Background())
		printReport(ctx.out(), report)
		return err
	}

	lock, err := lockfile.Acquire(ctx.Config.Dir, "")
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("Failed to release lockfile", "error", err)
		}
	}()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Start(runCtx)
	ctx.println("Reminder scheduler running. Press Ctrl+C to stop.")
	<-runCtx.Done()

	if err := sched.Stop(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (c *RemindCmd) dispatcher(ctx *Context) (notifier.Dispatcher, func() error, error) {
	if c.DryRun {
		return notifier.Func(func(_ context.Context, r models.Reminder) error {
			ctx.printf("[dry-run] user %d: %s\n", r.UserID, r.Text)
			return nil
		}), func() error { return nil }, nil
	}
	d, _, closer, err := ctx.dispatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("dispatcher: %w", err)
	}
	return d, closer, nil
}
