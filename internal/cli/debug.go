package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/julianstephens/habitbell/internal/models"
)

type DebugCmd struct {
	DBPath      *DebugDBPathCmd      `cmd:"" name:"db-path" help:"Show database location."`
	DumpHabits  *DebugDumpHabitsCmd  `cmd:"" name:"dump-habits" help:"Dump a user's habits as JSON."`
	DumpHistory *DebugDumpHistoryCmd `cmd:"" name:"dump-history" help:"Dump a user's history window as JSON."`
}

func (ctx *Context) printJSON(v interface{}) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	ctx.println(string(jsonBytes))
	return nil
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *Context) error {
	output := map[string]string{
		"path": displayDSN(ctx.Store.GetConfigPath()),
	}
	if ctx.Backups != nil {
		output["backups"] = ctx.Backups.Dir()
	}
	return ctx.printJSON(output)
}

type DebugDumpHabitsCmd struct{}

func (cmd *DebugDumpHabitsCmd) Run(ctx *Context) error {
	if err := ctx.requireUser(); err != nil {
		return err
	}
	summaries, err := ctx.Tracker.Overview(context.Background(), ctx.UserID)
	if err != nil {
		return err
	}
	return ctx.printJSON(summaries)
}

type DebugDumpHistoryCmd struct {
	Days int `short:"d" help:"Window length in days (default from config)."`
}

func (cmd *DebugDumpHistoryCmd) Run(ctx *Context) error {
	if err := ctx.requireUser(); err != nil {
		return err
	}
	days := cmd.Days
	if days == 0 {
		days = ctx.Tracker.HistoryDays()
	}
	entries, err := ctx.Tracker.History(context.Background(), ctx.UserID, days)
	if err != nil {
		return err
	}
	stats, err := ctx.Tracker.Stats(context.Background(), ctx.UserID)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []models.LogEntry{}
	}
	return ctx.printJSON(struct {
		Days    int               `json:"days"`
		Stats   models.Stats      `json:"stats"`
		Entries []models.LogEntry `json:"entries"`
	}{days, stats, entries})
}
