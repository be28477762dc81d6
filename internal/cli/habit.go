package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	apperrors "github.com/julianstephens/habitbell/internal/errors"
	"github.com/julianstephens/habitbell/internal/validation"
)

type HabitCmd struct {
	Add    HabitAddCmd    `cmd:"" help:"Add a new habit."`
	List   HabitListCmd   `cmd:"" help:"List habits with their streaks."`
	Edit   HabitEditCmd   `cmd:"" help:"Rename a habit or change its reminder time."`
	Delete HabitDeleteCmd `cmd:"" help:"Delete a habit and its history."`
}

type HabitAddCmd struct {
	Title string `arg:"" optional:"" help:"Habit title. Prompted for when omitted."`
	Time  string `arg:"" optional:"" help:"Reminder time (HH:MM). Prompted for when omitted."`
}

// form asks for whichever of title and time is missing.
func (c *HabitAddCmd) form() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit").
				Value(&c.Title).
				Validate(func(s string) error {
					_, err := validation.Title(s)
					return err
				}),
			huh.NewInput().
				Title("Reminder time (HH:MM)").
				Value(&c.Time).
				Validate(func(s string) error {
					_, err := validation.Time(s)
					return err
				}),
		),
	).WithTheme(huh.ThemeDracula())
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	if err := ctx.requireUser(); err != nil {
		return err
	}
	bg := context.Background()

	if c.Title == "" || c.Time == "" {
		if err := ctx.Tracker.CheckCapacity(bg, ctx.UserID); err != nil {
			return err
		}
		if err := c.form().Run(); err != nil {
			return err
		}
	}

	habit, err := ctx.Tracker.AddHabit(bg, ctx.UserID, c.Title, c.Time)
	if err != nil {
		return err
	}
	ctx.printf("Added habit: %s at %s (ID: %d)\n", habit.Title, habit.RemindAt, habit.ID)
	return nil
}

type HabitListCmd struct{}

func (c *HabitListCmd) Run(ctx *Context) error {
	if err := ctx.requireUser(); err != nil {
		return err
	}
	habits, err := ctx.Tracker.Overview(context.Background(), ctx.UserID)
	if err != nil {
		return err
	}
	if len(habits) == 0 {
		ctx.println("No habits found.")
		return nil
	}

	rows := make([][]string, 0, len(habits))
	for _, h := range habits {
		rows = append(rows, []string{itoa(h.ID), h.Title, h.RemindAt, strconv.Itoa(h.Streak)})
	}
	ctx.println(renderTable([]string{"ID", "Habit", "Time", "Streak"}, rows))
	ctx.printf("%d of %d habits\n", len(habits), ctx.Tracker.MaxHabits())
	return nil
}

type HabitEditCmd struct {
	ID    int64  `arg:"" help:"Habit ID (see 'habit list')."`
	Title string `help:"New title."`
	Time  string `help:"New reminder time (HH:MM)."`
}

func (c *HabitEditCmd) Validate() error {
	if c.Title == "" && c.Time == "" {
		return fmt.Errorf("nothing to change: pass --title and/or --time")
	}
	return nil
}

func (c *HabitEditCmd) Run(ctx *Context) error {
	if err := ctx.requireUser(); err != nil {
		return err
	}
	bg := context.Background()

	habit, err := ctx.Tracker.GetHabit(bg, c.ID)
	if err != nil {
		return err
	}
	if habit.UserID != ctx.UserID {
		return fmt.Errorf("%w: habit %d", apperrors.ErrNotFound, c.ID)
	}

	if c.Title != "" {
		if err := ctx.Tracker.UpdateTitle(bg, c.ID, c.Title); err != nil {
			return err
		}
	}
	if c.Time != "" {
		if err := ctx.Tracker.UpdateTime(bg, c.ID, c.Time); err != nil {
			return err
		}
	}

	habit, err = ctx.Tracker.GetHabit(bg, c.ID)
	if err != nil {
		return err
	}
	ctx.printf("Updated habit %d: %s at %s\n", habit.ID, habit.Title, habit.RemindAt)
	return nil
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit ID or title."`
}

func (c *HabitDeleteCmd) Run(ctx *Context) error {
	if err := ctx.requireUser(); err != nil {
		return err
	}
	bg := context.Background()

	id, err := strconv.ParseInt(c.Habit, 10, 64)
	if err != nil {
		if err := ctx.Tracker.DeleteByTitle(bg, ctx.UserID, c.Habit); err != nil {
			return err
		}
		ctx.printf("Deleted habit: %s\n", c.Habit)
		return nil
	}

	habit, err := ctx.Tracker.GetHabit(bg, id)
	switch {
	case err == nil && habit.UserID != ctx.UserID:
		return fmt.Errorf("%w: habit %d", apperrors.ErrNotFound, id)
	case err != nil && !isNotFound(err):
		return err
	}
	if err := ctx.Tracker.DeleteByID(bg, id); err != nil {
		return err
	}
	ctx.printf("Deleted habit %d\n", id)
	return nil
}
