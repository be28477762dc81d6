package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/habitbell/internal/constants"
)

var (
	// Logger is the process logger. Nil until Init; the helpers drop entries until then.
	Logger *log.Logger

	rotator *lumberjack.Logger
)

type Config struct {
	Debug bool
	// ConfigDir receives a logs/ subdirectory holding habitbell.log.
	ConfigDir string
	// Service raises the level to info and mirrors output to stderr; used by long-running commands.
	Service bool
}

func (c Config) level() log.Level {
	switch {
	case c.Debug:
		return log.DebugLevel
	case c.Service:
		return log.InfoLevel
	default:
		return log.WarnLevel
	}
}

// Init opens the rotating log file and replaces the process logger.
// Interactive commands log only to the file; debug and service mode also write to stderr.
func Init(cfg Config) error {
	logDir := filepath.Join(cfg.ConfigDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	if err := Close(); err != nil {
		return err
	}
	rotator = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, constants.AppName+".log"),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	var out io.Writer = rotator
	if cfg.Debug || cfg.Service {
		out = io.MultiWriter(os.Stderr, rotator)
	}

	Logger = log.NewWithOptions(out, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           cfg.level(),
		Prefix:          constants.AppName,
	})
	return nil
}

// Close flushes and closes the log file. Later entries are dropped until the next Init.
func Close() error {
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	Logger = nil
	return err
}

func emit(level log.Level, msg string, keyvals []interface{}) {
	if Logger == nil {
		return
	}
	// Keep emit itself out of caller reports
	Logger.Helper()
	Logger.Log(level, msg, keyvals...)
}

func Debug(msg string, keyvals ...interface{}) { emit(log.DebugLevel, msg, keyvals) }
func Info(msg string, keyvals ...interface{})  { emit(log.InfoLevel, msg, keyvals) }
func Warn(msg string, keyvals ...interface{})  { emit(log.WarnLevel, msg, keyvals) }
func Error(msg string, keyvals ...interface{}) { emit(log.ErrorLevel, msg, keyvals) }

// Fatal logs msg and exits with status 1, logger or not.
func Fatal(msg string, keyvals ...interface{}) {
	emit(log.FatalLevel, msg, keyvals)
	os.Exit(1)
}

// Scope tags every entry with a component name, e.g. component=scheduler.
// It resolves the process logger at call time, so it may be created before Init.
type Scope struct {
	keyvals []interface{}
}

func For(component string) Scope {
	return Scope{keyvals: []interface{}{"component", component}}
}

func (s Scope) with(keyvals []interface{}) []interface{} {
	out := make([]interface{}, 0, len(s.keyvals)+len(keyvals))
	return append(append(out, s.keyvals...), keyvals...)
}

func (s Scope) Debug(msg string, keyvals ...interface{}) { emit(log.DebugLevel, msg, s.with(keyvals)) }
func (s Scope) Info(msg string, keyvals ...interface{})  { emit(log.InfoLevel, msg, s.with(keyvals)) }
func (s Scope) Warn(msg string, keyvals ...interface{})  { emit(log.WarnLevel, msg, s.with(keyvals)) }
func (s Scope) Error(msg string, keyvals ...interface{}) { emit(log.ErrorLevel, msg, s.with(keyvals)) }
