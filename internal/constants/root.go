package constants

import "time"

const (
	AppName            = "habitbell"
	DefaultKeyringUser = "database-connection"
	SecretKeyringUser  = "dispatch-secret"
	DefaultConfigDir   = "~/.config/habitbell"
	DefaultConfigPath  = "~/.config/habitbell/habitbell.yaml"
	DefaultDBPath      = "~/.config/habitbell/habitbell.db"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Habit constants
	DefaultMaxHabits   = 12
	DefaultHistoryDays = 7
	MaxTitleLength     = 128

	// Reminder constants
	DefaultReminderCron = "* * * * *"
	ReminderTickPeriod  = time.Minute
	DispatchTimeout     = 10 * time.Second

	// Dispatch kinds
	DispatchConsole = "console"
	DispatchWebhook = "webhook"
	DispatchNATS    = "nats"

	// NATS defaults
	DefaultReminderSubject = "habitbell.reminders"
	DefaultResponseSubject = "habitbell.responses"
	DefaultReminderStream  = "HABITBELL_REMINDERS"
	WebhookSecretHeader    = "X-Habitbell-Secret"
	DefaultHTTPAddr        = "127.0.0.1:8085"
	LockfileName           = "habitbell.lock"
	ShutdownTimeout        = 15 * time.Second

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "habitbell-"
	BackupFileSuffix = ".db"
)
