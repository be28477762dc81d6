package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	apperrors "github.com/julianstephens/habitbell/internal/errors"
	"github.com/julianstephens/habitbell/internal/models"
	"github.com/julianstephens/habitbell/internal/validation"
)

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}

type LogCmd struct {
	Title  string `arg:"" help:"Habit title."`
	Status string `arg:"" enum:"done,missed" help:"Outcome for today (done|missed)."`
}

func (c *LogCmd) Run(ctx *Context) error {
	if err := ctx.requireUser(); err != nil {
		return err
	}
	status, err := validation.Status(c.Status)
	if err != nil {
		return err
	}
	entry, err := ctx.Tracker.LogOutcome(context.Background(), ctx.UserID, c.Title, status)
	if err != nil {
		return err
	}
	ctx.printf("Logged %s for %q on %s\n", entry.Status, entry.HabitTitle, entry.Date)
	return nil
}

type StatsCmd struct{}

func (c *StatsCmd) Run(ctx *Context) error {
	if err := ctx.requireUser(); err != nil {
		return err
	}
	stats, err := ctx.Tracker.Stats(context.Background(), ctx.UserID)
	if err != nil {
		return err
	}
	ctx.printf("Done: %d\nMissed: %d\nCompletion: %.1f%%\n", stats.Done, stats.Missed, stats.Percent)
	return nil
}

type HistoryCmd struct {
	Days int `short:"d" help:"Window length in days (default from config)."`
}

func (c *HistoryCmd) Run(ctx *Context) error {
	if err := ctx.requireUser(); err != nil {
		return err
	}
	days := c.Days
	if days == 0 {
		days = ctx.Tracker.HistoryDays()
	}
	if err := validation.Days(days); err != nil {
		return err
	}

	entries, err := ctx.Tracker.History(context.Background(), ctx.UserID, days)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ctx.printf("No entries in the last %d days.\n", days)
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := okStyle.Render(string(e.Status))
		if e.Status == models.StatusMissed {
			status = failStyle.Render(string(e.Status))
		}
		rows = append(rows, []string{e.Date, e.HabitTitle, status})
	}
	ctx.printf("Last %d days:\n", days)
	ctx.println(renderTable([]string{"Date", "Habit", "Status"}, rows))
	return nil
}

type StreakCmd struct {
	Title string `arg:"" help:"Habit title."`
}

func (c *StreakCmd) Run(ctx *Context) error {
	if err := ctx.requireUser(); err != nil {
		return err
	}
	streak, err := ctx.Tracker.Streak(context.Background(), ctx.UserID, c.Title)
	if err != nil {
		return err
	}
	ctx.printf("%s: %d day streak\n", c.Title, streak)
	return nil
}

type ClearCmd struct {
	Yes bool `short:"y" help:"Skip the confirmation prompt."`
}

func (c *ClearCmd) Run(ctx *Context) error {
	if err := ctx.requireUser(); err != nil {
		return err
	}
	if !c.Yes {
		confirmed := false
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Clear your entire habit history?").
					Description("Habits are kept. A backup is taken first for SQLite databases.").
					Affirmative("Clear").
					Negative("Cancel").
					Value(&confirmed),
			),
		).WithTheme(huh.ThemeDracula()).Run()
		if err != nil {
			return err
		}
		if !confirmed {
			ctx.println("Clear cancelled.")
			return nil
		}
	}

	if err := ctx.Tracker.ClearHistory(context.Background(), ctx.UserID); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	ctx.println("✓ History cleared")
	return nil
}
