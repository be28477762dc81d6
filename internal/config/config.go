package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/habitbell/internal/constants"
	apperrors "github.com/julianstephens/habitbell/internal/errors"
	"github.com/julianstephens/habitbell/internal/keyring"
)

// Config is the habitbell configuration file
type Config struct {
	Database     string         `yaml:"database"`
	MaxHabits    int            `yaml:"max_habits"`
	HistoryDays  int            `yaml:"history_days"`
	ReminderCron string         `yaml:"reminder_cron"`
	HTTP         HTTPConfig     `yaml:"http"`
	Dispatch     DispatchConfig `yaml:"dispatch"`
	Log          LogConfig      `yaml:"log"`

	// Dir holds logs, backups and the lockfile. It is the config file's directory.
	Dir string `yaml:"-"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// DispatchConfig selects how reminders leave the process
type DispatchConfig struct {
	Kind             string `yaml:"kind"` // console, webhook or nats
	WebhookURL       string `yaml:"webhook_url,omitempty"`
	Secret           string `yaml:"secret,omitempty"`
	NATSURL          string `yaml:"nats_url,omitempty"`
	Subject          string `yaml:"subject,omitempty"`
	ResponsesSubject string `yaml:"responses_subject,omitempty"`
	Stream           string `yaml:"stream,omitempty"`
}

type LogConfig struct {
	Debug bool   `yaml:"debug"`
	Dir   string `yaml:"dir,omitempty"`
}

// envOverrides maps environment variables onto config fields
var envOverrides = map[string]func(c *Config, v string) error{
	"HABITBELL_DB":             func(c *Config, v string) error { c.Database = v; return nil },
	"HABITBELL_MAX_HABITS":     intOverride(func(c *Config) *int { return &c.MaxHabits }),
	"HABITBELL_HISTORY_DAYS":   intOverride(func(c *Config) *int { return &c.HistoryDays }),
	"HABITBELL_REMINDER_CRON":  func(c *Config, v string) error { c.ReminderCron = v; return nil },
	"HABITBELL_HTTP_ADDR":      func(c *Config, v string) error { c.HTTP.Addr = v; return nil },
	"HABITBELL_DISPATCH":       func(c *Config, v string) error { c.Dispatch.Kind = v; return nil },
	"HABITBELL_WEBHOOK_URL":    func(c *Config, v string) error { c.Dispatch.WebhookURL = v; return nil },
	"HABITBELL_WEBHOOK_SECRET": func(c *Config, v string) error { c.Dispatch.Secret = v; return nil },
	"HABITBELL_NATS_URL":       func(c *Config, v string) error { c.Dispatch.NATSURL = v; return nil },
}

func intOverride(field func(c *Config) *int) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("not an integer: %q", v)
		}
		*field(c) = n
		return nil
	}
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		MaxHabits:    constants.DefaultMaxHabits,
		HistoryDays:  constants.DefaultHistoryDays,
		ReminderCron: constants.DefaultReminderCron,
		HTTP:         HTTPConfig{Addr: constants.DefaultHTTPAddr},
		Dispatch: DispatchConfig{
			Kind:             constants.DispatchConsole,
			Subject:          constants.DefaultReminderSubject,
			ResponsesSubject: constants.DefaultResponseSubject,
			Stream:           constants.DefaultReminderStream,
		},
	}
}

// LoadEnvFiles loads .env and .env.local from the working directory if present.
// Variables already set in the environment win.
func LoadEnvFiles() []string {
	var loaded []string
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err == nil {
			loaded = append(loaded, name)
		}
	}
	return loaded
}

// Load reads the config file at path over the defaults, then applies
// HABITBELL_* environment overrides. A missing file is not an error.
// ${VAR} references in the file are expanded.
func Load(path string) (Config, error) {
	cfg := Default()

	path, err := ExpandPath(path)
	if err != nil {
		return cfg, err
	}
	cfg.Dir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	for name, apply := range envOverrides {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			if err := apply(&cfg, v); err != nil {
				return cfg, fmt.Errorf("%s: %w", name, err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges and that the chosen dispatcher is configured
func (c *Config) Validate() error {
	if c.MaxHabits < 1 {
		return apperrors.Validation("max_habits", "must be at least 1, got %d", c.MaxHabits)
	}
	if c.HistoryDays < 1 {
		return apperrors.Validation("history_days", "must be at least 1, got %d", c.HistoryDays)
	}
	switch c.Dispatch.Kind {
	case constants.DispatchConsole:
	case constants.DispatchWebhook:
		if c.Dispatch.WebhookURL == "" {
			return apperrors.Validation("dispatch.webhook_url", "required for webhook dispatch")
		}
	case constants.DispatchNATS:
		if c.Dispatch.NATSURL == "" {
			return apperrors.Validation("dispatch.nats_url", "required for nats dispatch")
		}
	default:
		return apperrors.Validation("dispatch.kind", "must be console, webhook or nats, got %q", c.Dispatch.Kind)
	}
	return nil
}

// LogDir is where the log file goes; the logger adds its own "logs" subdirectory.
func (c *Config) LogDir() string {
	if c.Log.Dir != "" {
		if dir, err := ExpandPath(c.Log.Dir); err == nil {
			return dir
		}
	}
	return c.Dir
}

// DatabaseDSN resolves the database location: the config value, then the
// keyring, then the default SQLite file under Dir.
func (c *Config) DatabaseDSN() (string, error) {
	if c.Database != "" {
		return ExpandPath(c.Database)
	}
	connStr, err := keyring.GetConnectionString()
	if err == nil {
		return connStr, nil
	}
	if !errors.Is(err, keyring.ErrNotFound) && !errors.Is(err, keyring.ErrKeyringUnavailable) {
		return "", err
	}
	return filepath.Join(c.Dir, constants.AppName+".db"), nil
}

// DispatchSecret returns the configured secret or, failing that, the keyring's.
func (c *Config) DispatchSecret() string {
	if c.Dispatch.Secret != "" {
		return c.Dispatch.Secret
	}
	secret, err := keyring.GetDispatchSecret()
	if err != nil {
		return ""
	}
	return secret
}

// Write saves c to path, refusing to overwrite unless force is set.
func Write(c Config, path string, force bool) error {
	path, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ExpandPath resolves a leading "~/" against the user's home directory.
// PostgreSQL connection strings are returned unchanged.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
