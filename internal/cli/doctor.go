package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/habitbell/internal/keyring"
	"github.com/julianstephens/habitbell/internal/lockfile"
	"github.com/julianstephens/habitbell/internal/validation"
)

type DoctorCmd struct{}

type checkLevel int

const (
	levelFail checkLevel = iota
	levelWarn
)

type check struct {
	name  string
	level checkLevel
	run   func(ctx *Context) error
	// needsDB skips the check when the database could not be loaded.
	needsDB bool
}

var doctorChecks = []check{
	{name: "Configuration", level: levelFail, run: checkConfig},
	{name: "Database reachable", level: levelFail, run: checkDBReachable},
	{name: "Schema version", level: levelFail, run: checkSchema, needsDB: true},
	{name: "Data validation", level: levelFail, run: checkHabitData, needsDB: true},
	{name: "Backups present", level: levelWarn, run: checkBackupsPresent},
	{name: "Scheduler", level: levelWarn, run: checkScheduler},
	{name: "Keyring", level: levelWarn, run: checkKeyring},
	{name: "Clock/timezone", level: levelFail, run: checkClockTimezone},
}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.println("Running diagnostics...")
	ctx.println()

	hasError := false
	dbReachable := true

	for _, c := range doctorChecks {
		if c.needsDB && !dbReachable {
			ctx.printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			ctx.printf("%s %s: OK\n", okStyle.Render("✓"), c.name)
		case c.level == levelWarn:
			ctx.printf("%s %s: WARNING\n", warnStyle.Render("⚠"), c.name)
			ctx.printf("   %v\n", err)
		default:
			ctx.printf("%s %s: FAIL\n", failStyle.Render("✗"), c.name)
			ctx.printf("   Error: %v\n", err)
			hasError = true
			if c.name == "Database reachable" {
				dbReachable = false
			}
		}
	}

	ctx.println()
	if hasError {
		ctx.println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.println("All diagnostics passed!")
	return nil
}

func checkConfig(ctx *Context) error {
	return ctx.Config.Validate()
}

// checkDBReachable loads the store, which also verifies the schema version.
func checkDBReachable(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	_, err := ctx.Store.CountHabits(context.Background(), 0)
	return err
}

func checkSchema(ctx *Context) error {
	st, err := ctx.Store.SchemaStatus(context.Background())
	if err != nil {
		return err
	}
	if !st.UpToDate() {
		return fmt.Errorf("schema at version %d, latest %d (%d pending) - run 'habitbell migrate'", st.Current, st.Latest, len(st.Pending))
	}
	ctx.printf("   Schema at version %d\n", st.Current)
	return nil
}

func checkHabitData(ctx *Context) error {
	habits, err := ctx.Store.ListAllHabits(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list habits: %w", err)
	}

	perUser := make(map[int64]int)
	titles := make(map[string]bool)
	for _, h := range habits {
		if _, err := validation.Title(h.Title); err != nil {
			return fmt.Errorf("habit %d: %w", h.ID, err)
		}
		if _, err := validation.Time(h.RemindAt); err != nil {
			return fmt.Errorf("habit %d: %w", h.ID, err)
		}
		key := fmt.Sprintf("%d/%s", h.UserID, h.Title)
		if titles[key] {
			return fmt.Errorf("duplicate title %q for user %d", h.Title, h.UserID)
		}
		titles[key] = true
		perUser[h.UserID]++
	}

	limit := ctx.Config.MaxHabits
	for user, n := range perUser {
		if limit > 0 && n > limit {
			return fmt.Errorf("user %d has %d habits, more than max_habits (%d)", user, n, limit)
		}
	}
	return nil
}

func checkBackupsPresent(ctx *Context) error {
	if ctx.Backups == nil {
		return nil
	}
	backups, err := ctx.Backups.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'habitbell backup'")
	}
	return nil
}

func checkScheduler(ctx *Context) error {
	if info, ok := lockfile.Running(ctx.Config.Dir); ok {
		ctx.printf("   Scheduler running (pid %d, %s)\n", info.PID, info.Addr)
		return nil
	}
	return fmt.Errorf("no scheduler is running - reminders are sent only by 'habitbell serve' or 'habitbell remind'")
}

func checkKeyring(_ *Context) error {
	if !keyring.IsAvailable() {
		return fmt.Errorf("system keyring unavailable - secrets must come from the config file or environment")
	}
	return nil
}

func checkClockTimezone(ctx *Context) error {
	now := ctx.Clock.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	if _, offset := now.Zone(); offset == 0 && now.Location() == time.UTC {
		ctx.printf("   Note: timezone is UTC; reminder times are read in UTC\n")
	}
	return nil
}
