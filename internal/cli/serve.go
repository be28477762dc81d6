package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/habitbell/internal/api"
	"github.com/julianstephens/habitbell/internal/constants"
	"github.com/julianstephens/habitbell/internal/lockfile"
	"github.com/julianstephens/habitbell/internal/logger"
	"github.com/julianstephens/habitbell/internal/metrics"
	"github.com/julianstephens/habitbell/internal/models"
	"github.com/julianstephens/habitbell/internal/notifier"
	"github.com/julianstephens/habitbell/internal/scheduler"
)

type ServeCmd struct {
	Addr string `help:"Listen address (default from config)."`
}

// dispatcher builds the configured reminder transport. The returned closer is
// never nil.
func (ctx *Context) dispatcher() (notifier.Dispatcher, *notifier.NATS, func() error, error) {
	noop := func() error { return nil }
	d := ctx.Config.Dispatch
	switch d.Kind {
	case "", constants.DispatchConsole:
		return notifier.NewConsole(ctx.out()), nil, noop, nil
	case constants.DispatchWebhook:
		return notifier.NewWebhook(d.WebhookURL, ctx.Config.DispatchSecret()), nil, noop, nil
	case constants.DispatchNATS:
		n, err := notifier.NewNATS(notifier.NATSConfig{
			URL:              d.NATSURL,
			Subject:          d.Subject,
			ResponsesSubject: d.ResponsesSubject,
			Stream:           d.Stream,
		})
		if err != nil {
			return nil, nil, noop, err
		}
		return n, n, n.Close, nil
	default:
		return nil, nil, noop, fmt.Errorf("unknown dispatch kind %q", d.Kind)
	}
}

func (c *ServeCmd) Run(ctx *Context) error {
	addr := c.Addr
	if addr == "" {
		addr = ctx.Config.HTTP.Addr
	}

	lock, err := lockfile.Acquire(ctx.Config.Dir, addr)
	if err != nil {
		if errors.Is(err, lockfile.ErrLocked) {
			if info, rerr := lockfile.Read(ctx.Config.Dir); rerr == nil {
				return fmt.Errorf("%w (pid %d, %s)", err, info.PID, info.Addr)
			}
		}
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("Failed to release lockfile", "error", err)
		}
	}()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher, bus, closeDispatcher, err := ctx.dispatcher()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDispatcher(); err != nil {
			logger.Warn("Failed to close dispatcher", "error", err)
		}
	}()

	reg := metrics.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	sched, err := scheduler.New(ctx.Store, dispatcher,
		scheduler.WithClock(ctx.Clock),
		scheduler.WithRecorder(recorder),
		scheduler.WithCron(ctx.Config.ReminderCron),
	)
	if err != nil {
		return err
	}

	server := api.New(ctx.Tracker,
		api.WithRecorder(recorder),
		api.WithMetricsHandler(metrics.HTTPHandler(reg)),
		api.WithSecret(ctx.Config.DispatchSecret()),
		api.WithHealthCheck(func(hctx context.Context) error {
			_, err := ctx.Store.CountHabits(hctx, 0)
			return err
		}),
	)
	bound, err := server.Start(runCtx, addr)
	if err != nil {
		return err
	}
	ctx.printf("habitbell %s serving on %s (dispatch: %s)\n", constants.Version, bound, dispatchName(ctx.Config.Dispatch.Kind))

	sched.Start(runCtx)

	g, gctx := errgroup.WithContext(runCtx)
	if bus != nil {
		g.Go(func() error {
			return bus.SubscribeResponses(gctx, func(mctx context.Context, resp models.Response) error {
				_, err := server.RecordResponse(mctx, resp)
				return err
			})
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	runErr := g.Wait()

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	schedErr := sched.Stop()
	httpErr := server.Stop(shutdownCtx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return errors.Join(schedErr, httpErr)
}

func dispatchName(kind string) string {
	if kind == "" {
		return constants.DispatchConsole
	}
	return kind
}

// printReport writes a one-line tick summary.
func printReport(w io.Writer, r scheduler.Report) {
	if r.Duplicate {
		fmt.Fprintf(w, "%s %s already evaluated\n", r.Date, r.Minute)
		return
	}
	fmt.Fprintf(w, "%s %s: %d due, %d sent, %d suppressed, %d failed\n",
		r.Date, r.Minute, r.Due, r.Sent, r.Suppressed, r.Failed)
}
