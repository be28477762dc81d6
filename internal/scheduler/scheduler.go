package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/habitbell/internal/constants"
	apperrors "github.com/julianstephens/habitbell/internal/errors"
	"github.com/julianstephens/habitbell/internal/logger"
	"github.com/julianstephens/habitbell/internal/metrics"
	"github.com/julianstephens/habitbell/internal/models"
	"github.com/julianstephens/habitbell/internal/notifier"
)

var log = logger.For("scheduler")

// maxConcurrentDispatch bounds in-flight Send calls within one tick.
const maxConcurrentDispatch = 8

// reminderNamespace seeds deterministic reminder ids.
var reminderNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://habitbell/reminders"))

// HabitSource is the slice of the stores a tick reads.
type HabitSource interface {
	ListAllHabits(ctx context.Context) ([]models.Habit, error)
	LogExists(ctx context.Context, userID int64, title, date string) (bool, error)
}

// Report summarises one tick.
type Report struct {
	Date       string
	Minute     string
	Due        int
	Sent       int
	Suppressed int
	Failed     int
	// Duplicate is set when the minute had already been evaluated.
	Duplicate bool
}

// Scheduler wakes once a minute, finds habits due at that minute and sends
// at most one reminder per habit per day. Any log entry for the habit today
// suppresses the reminder.
type Scheduler struct {
	source     HabitSource
	dispatcher notifier.Dispatcher
	clock      clockwork.Clock
	recorder   metrics.Recorder
	cronSpec   string

	cron gocron.Scheduler

	mu         sync.Mutex
	lastMinute string
	ctx        context.Context
	cancel     context.CancelFunc
}

type Option func(*Scheduler)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = clock }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithCron overrides the tick schedule (standard five-field cron).
func WithCron(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.cronSpec = spec
		}
	}
}

// New builds a scheduler. It does not start ticking until Start.
func New(source HabitSource, dispatcher notifier.Dispatcher, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		source:     source,
		dispatcher: dispatcher,
		clock:      clockwork.NewRealClock(),
		recorder:   metrics.NoopRecorder{},
		cronSpec:   constants.DefaultReminderCron,
	}
	for _, opt := range opts {
		opt(s)
	}

	cron, err := gocron.NewScheduler(
		gocron.WithClock(s.clock),
		gocron.WithLocation(time.Local),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	_, err = cron.NewJob(
		gocron.CronJob(s.cronSpec, false),
		gocron.NewTask(s.runTick),
		gocron.WithName("habit-reminders"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = cron.Shutdown()
		return nil, fmt.Errorf("failed to schedule reminders %q: %w", s.cronSpec, err)
	}

	s.cron = cron
	return s, nil
}

// Start begins ticking. The scheduler stops when ctx is canceled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	log.Info("Starting reminder scheduler", "cron", s.cronSpec)
	s.cron.Start()
}

// Stop cancels in-flight dispatches and waits for the running tick to return.
func (s *Scheduler) Stop() error {
	log.Info("Stopping reminder scheduler")
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	return s.cron.Shutdown()
}

func (s *Scheduler) runTick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.Tick(ctx); err != nil {
		log.Error("Reminder tick skipped", "error", err)
	}
}

// Tick evaluates the current minute once. A failure to read habits skips the
// tick and is returned; dispatch failures are logged per reminder and counted
// in the report.
func (s *Scheduler) Tick(ctx context.Context) (Report, error) {
	start := s.clock.Now()
	report := Report{
		Date:   start.Format(constants.DateFormat),
		Minute: start.Format(constants.TimeFormat),
	}

	key := report.Date + " " + report.Minute
	s.mu.Lock()
	if s.lastMinute == key {
		s.mu.Unlock()
		report.Duplicate = true
		s.recorder.ObserveTick(metrics.TickDuplicate, s.clock.Since(start))
		return report, nil
	}
	s.lastMinute = key
	s.mu.Unlock()

	habits, err := s.source.ListAllHabits(ctx)
	if err != nil {
		// Let the next tick retry this minute's read
		s.mu.Lock()
		if s.lastMinute == key {
			s.lastMinute = ""
		}
		s.mu.Unlock()
		s.recorder.ObserveTick(metrics.TickSkipped, s.clock.Since(start))
		return report, fmt.Errorf("list habits: %w", err)
	}

	var due []models.Habit
	for _, h := range habits {
		if h.RemindAt == report.Minute {
			due = append(due, h)
		}
	}
	report.Due = len(due)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentDispatch)
	for _, h := range due {
		g.Go(func() error {
			outcome := s.remind(ctx, h, report.Date)
			s.recorder.IncReminder(outcome)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case metrics.ReminderSent:
				report.Sent++
			case metrics.ReminderSuppressed:
				report.Suppressed++
			case metrics.ReminderFailed:
				report.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	s.recorder.ObserveTick(metrics.TickCompleted, s.clock.Since(start))
	if report.Due > 0 {
		log.Info("Reminder tick",
			"tick", key, "due", report.Due, "sent", report.Sent,
			"suppressed", report.Suppressed, "failed", report.Failed)
	}
	return report, nil
}

func (s *Scheduler) remind(ctx context.Context, h models.Habit, date string) metrics.ReminderOutcome {
	handled, err := s.source.LogExists(ctx, h.UserID, h.Title, date)
	if err != nil {
		log.Error("Failed to check today's log", "user", h.UserID, "habit", h.Title, "error", err)
		return metrics.ReminderFailed
	}
	if handled {
		log.Debug("Reminder suppressed", "user", h.UserID, "habit", h.Title, "date", date)
		return metrics.ReminderSuppressed
	}

	reminder := NewReminder(h, date)
	sendCtx, cancel := context.WithTimeout(ctx, constants.DispatchTimeout)
	defer cancel()

	if err := s.dispatcher.Send(sendCtx, reminder); err != nil {
		derr := &apperrors.DispatchError{UserID: h.UserID, HabitTitle: h.Title, Err: err}
		log.Warn("Reminder dispatch failed", "user", h.UserID, "habit", h.Title, "error", derr)
		return metrics.ReminderFailed
	}

	log.Debug("Reminder sent", "user", h.UserID, "habit", h.Title, "date", date)
	return metrics.ReminderSent
}

// NewReminder builds the reminder for habit on date. The id is stable for a
// given (user, title, date) so transports can drop repeats.
func NewReminder(h models.Habit, date string) models.Reminder {
	key := fmt.Sprintf("%d|%s|%s", h.UserID, h.Title, date)
	return models.Reminder{
		ID:         uuid.NewSHA1(reminderNamespace, []byte(key)).String(),
		UserID:     h.UserID,
		HabitTitle: h.Title,
		Date:       date,
		Text:       "Reminder: " + h.Title,
		Actions:    models.ReminderActions(h.Title),
	}
}
