package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestInit(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{ConfigDir: configDir}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	logDir := filepath.Join(configDir, "logs")
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		t.Errorf("Log directory was not created: %s", logDir)
	}

	if Logger == nil {
		t.Fatal("Logger is nil after initialization")
	}
	if Logger.GetLevel() != log.WarnLevel {
		t.Errorf("level = %v, want warn", Logger.GetLevel())
	}

	Debug("Test debug message")
	Info("Test info message")
	Warn("Test warning message")
	Error("Test error message")
}

func TestInitLevels(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want log.Level
	}{
		{name: "service", cfg: Config{Service: true}, want: log.InfoLevel},
		{name: "debug", cfg: Config{Debug: true}, want: log.DebugLevel},
		{name: "debug wins over service", cfg: Config{Debug: true, Service: true}, want: log.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ConfigDir = t.TempDir()
			if err := Init(tt.cfg); err != nil {
				t.Fatalf("Init() error: %v", err)
			}
			if Logger.GetLevel() != tt.want {
				t.Errorf("level = %v, want %v", Logger.GetLevel(), tt.want)
			}
		})
	}
}

func TestLogFunctionsWithoutInit(t *testing.T) {
	Logger = nil

	// These should not panic when Logger is nil
	Debug("Test debug message")
	Info("Test info message")
	Warn("Test warning message")
	Error("Test error message")
}

func TestInitWithUnwritableDirectory(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	// A regular file where the config dir should be makes MkdirAll fail
	if err := Init(Config{ConfigDir: blocker}); err == nil {
		t.Error("expected error when config dir is a file")
	}
}

func TestScopeTagsComponent(t *testing.T) {
	dir := t.TempDir()
	if err := Init(Config{ConfigDir: dir, Service: true}); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	For("scheduler").Info("Reminder tick", "due", 2)
	For("api").Debug("dropped below level")
	if err := Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "logs", "habitbell.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, "component=scheduler") || !strings.Contains(got, "due=2") {
		t.Errorf("log file missing scoped entry:\n%s", got)
	}
	if strings.Contains(got, "dropped below level") {
		t.Errorf("debug entry written at info level:\n%s", got)
	}
}

func TestCloseDropsLaterEntries(t *testing.T) {
	if err := Init(Config{ConfigDir: t.TempDir()}); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if err := Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if Logger != nil {
		t.Error("Logger should be nil after Close")
	}
	// Second close is a no-op
	if err := Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	For("api").Error("after close")
}
