package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/julianstephens/habitbell/internal/keyring"
	"github.com/julianstephens/habitbell/internal/storage"
	"github.com/julianstephens/habitbell/internal/storage/postgres"
)

type KeyringCmd struct {
	SetDB     KeyringSetDBCmd     `cmd:"" name:"set-db" help:"Store the PostgreSQL connection string in the OS keyring."`
	SetSecret KeyringSetSecretCmd `cmd:"" name:"set-secret" help:"Store the dispatch/API shared secret in the OS keyring."`
	Delete    KeyringDeleteCmd    `cmd:"" help:"Remove a stored credential."`
	Status    KeyringStatusCmd    `cmd:"" help:"Show keyring availability and stored credentials."`
}

type KeyringSetDBCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string."`
}

func (cmd *KeyringSetDBCmd) Run(ctx *Context) error {
	if !storage.IsPostgres(cmd.ConnectionString) {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}

	if _, err := postgres.ValidateConnString(cmd.ConnectionString); err != nil {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
		ctx.println(warnStyle.Render("⚠️  Connection string contains embedded credentials; they are stored as-is in the encrypted OS keyring."))
	}

	if err := keyring.SetConnectionString(cmd.ConnectionString); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}
	ctx.println("✓ Connection string stored in OS keyring")
	ctx.println("  It is used whenever the config file leaves 'database' empty")
	return nil
}

type KeyringSetSecretCmd struct {
	Secret string `arg:"" help:"Shared secret sent with webhook reminders and required on API requests."`
}

func (cmd *KeyringSetSecretCmd) Run(ctx *Context) error {
	if strings.TrimSpace(cmd.Secret) == "" {
		return errors.New("secret cannot be empty")
	}
	if err := keyring.SetDispatchSecret(cmd.Secret); err != nil {
		return fmt.Errorf("failed to store secret in keyring: %w", err)
	}
	ctx.println("✓ Secret stored in OS keyring")
	return nil
}

type KeyringDeleteCmd struct {
	What string `arg:"" enum:"db,secret" help:"Which credential to delete (db|secret)."`
}

func (cmd *KeyringDeleteCmd) Run(ctx *Context) error {
	var err error
	if cmd.What == "db" {
		err = keyring.DeleteConnectionString()
	} else {
		err = keyring.DeleteDispatchSecret()
	}
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("no %s credential found in keyring", cmd.What)
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s credential: %w", cmd.What, err)
	}
	ctx.printf("✓ %s credential deleted from OS keyring\n", cmd.What)
	return nil
}

type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *Context) error {
	if !keyring.IsAvailable() {
		ctx.println(failStyle.Render("❌ OS keyring is not available on this system"))
		return errors.New("keyring unavailable")
	}
	ctx.println(okStyle.Render("✓ OS keyring is available"))

	if connStr, err := keyring.GetConnectionString(); err == nil {
		ctx.printf("✓ Connection string: %s\n", maskPassword(connStr))
	} else {
		ctx.println("ℹ No connection string stored")
	}
	if _, err := keyring.GetDispatchSecret(); err == nil {
		ctx.println("✓ Secret is stored")
	} else {
		ctx.println("ℹ No secret stored")
	}
	return nil
}

// maskPassword hides the password in URL or key=value connection strings.
func maskPassword(connStr string) string {
	if strings.Contains(connStr, "://") {
		u, err := url.Parse(connStr)
		if err != nil {
			return "****"
		}
		return u.Redacted()
	}

	parts := strings.Fields(connStr)
	for i, part := range parts {
		if strings.HasPrefix(part, "password=") {
			parts[i] = "password=****"
		}
	}
	return strings.Join(parts, " ")
}
