package tui

import (
	"context"

	"github.com/julianstephens/habitbell/internal/models"
)

// Inbox is a reminder dispatcher that delivers into a running console.
type Inbox struct {
	ch chan models.Reminder
}

func NewInbox(size int) *Inbox {
	return &Inbox{ch: make(chan models.Reminder, size)}
}

// Send blocks until the console takes the reminder or ctx is done.
func (in *Inbox) Send(ctx context.Context, reminder models.Reminder) error {
	select {
	case in.ch <- reminder:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (in *Inbox) Reminders() <-chan models.Reminder {
	return in.ch
}
