package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/julianstephens/habitbell/internal/constants"
	"github.com/julianstephens/habitbell/internal/logger"
	"github.com/julianstephens/habitbell/internal/models"
)

// NATS publishes reminders to a JetStream subject and listens for responses
// on a plain subject. Reminder ids double as JetStream message ids, so a
// reminder republished within the stream's duplicate window is dropped.
type NATS struct {
	conn      *nats.Conn
	js        jetstream.JetStream
	subject   string
	responses string
}

type NATSConfig struct {
	URL              string
	Subject          string
	ResponsesSubject string
	Stream           string
}

func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.Subject == "" {
		cfg.Subject = constants.DefaultReminderSubject
	}
	if cfg.ResponsesSubject == "" {
		cfg.ResponsesSubject = constants.DefaultResponseSubject
	}
	if cfg.Stream == "" {
		cfg.Stream = constants.DefaultReminderStream
	}

	conn, err := nats.Connect(cfg.URL, nats.Name(constants.AppName))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	n := &NATS{
		conn:      conn,
		js:        js,
		subject:   cfg.Subject,
		responses: cfg.ResponsesSubject,
	}

	if err := n.ensureStream(cfg.Stream); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("NATS dispatcher initialized", "subject", cfg.Subject, "responses", cfg.ResponsesSubject)
	return n, nil
}

func (n *NATS) ensureStream(name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DispatchTimeout)
	defer cancel()

	_, err := n.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        name,
		Description: "Habit reminders awaiting delivery",
		Subjects:    []string{n.subject},
		MaxAge:      24 * time.Hour,
		Duplicates:  2 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("failed to create reminder stream: %w", err)
	}
	return nil
}

func (n *NATS) Send(ctx context.Context, reminder models.Reminder) error {
	data, err := json.Marshal(reminder)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder: %w", err)
	}

	ack, err := n.js.Publish(ctx, n.subject, data, jetstream.WithMsgID(reminder.ID))
	if err != nil {
		return fmt.Errorf("failed to publish reminder: %w", err)
	}
	if ack.Duplicate {
		logger.Debug("Reminder already in stream", "id", reminder.ID)
	}
	return nil
}

// SubscribeResponses calls handle for every response message until ctx is done.
// Requests with a reply subject get "ok" or the handler error back.
func (n *NATS) SubscribeResponses(ctx context.Context, handle func(context.Context, models.Response) error) error {
	sub, err := n.conn.Subscribe(n.responses, func(msg *nats.Msg) {
		reply := "ok"
		resp, err := DecodeResponse(msg.Data)
		if err == nil {
			err = handle(ctx, resp)
		}
		if err != nil {
			logger.Warn("Failed to record response", "subject", msg.Subject, "error", err)
			reply = err.Error()
		}
		if msg.Reply != "" {
			if err := msg.Respond([]byte(reply)); err != nil {
				logger.Warn("Failed to answer response request", "error", err)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", n.responses, err)
	}

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			logger.Debug("Unsubscribe failed", "error", err)
		}
	}()
	return nil
}

func (n *NATS) Close() error {
	if n.conn != nil {
		if err := n.conn.Drain(); err != nil {
			n.conn.Close()
			return err
		}
	}
	return nil
}
