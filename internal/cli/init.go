package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/julianstephens/habitbell/internal/config"
	"github.com/julianstephens/habitbell/internal/storage"
)

type InitCmd struct {
	Force bool `help:"Reset: snapshot and delete an existing SQLite database, and overwrite the config file."`
}

func (c *InitCmd) Run(ctx *Context) error {
	if _, err := os.Stat(ctx.ConfigPath); os.IsNotExist(err) || c.Force {
		if err := config.Write(ctx.Config, ctx.ConfigPath, c.Force); err != nil {
			return err
		}
		ctx.printf("Wrote configuration to: %s\n", ctx.ConfigPath)
	}

	dsn := ctx.Store.GetConfigPath()
	if c.Force && !storage.IsPostgres(dsn) {
		if _, err := os.Stat(dsn); err == nil {
			if info, err := ctx.Backups.Create(context.Background()); err == nil {
				ctx.printf("Backed up existing database to: %s\n", info.Path)
			} else {
				return fmt.Errorf("failed to back up existing database: %w", err)
			}
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dsn); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			for _, suffix := range []string{"-wal", "-shm"} {
				_ = os.Remove(dsn + suffix)
			}
			ctx.printf("Deleted existing database at: %s\n", dsn)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.printf("Initialized habitbell storage at: %s\n", displayDSN(dsn))
	return nil
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *Context) error {
	if err := ctx.Store.Init(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	ctx.println("Database is up to date.")
	return nil
}

// displayDSN hides PostgreSQL connection details behind the backend name.
func displayDSN(dsn string) string {
	if storage.IsPostgres(dsn) {
		return "postgresql"
	}
	return dsn
}
