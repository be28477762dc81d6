package notifier

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/julianstephens/habitbell/internal/models"
)

// Console writes reminders as text lines. It backs dry runs and local use.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Send(_ context.Context, reminder models.Reminder) error {
	labels := make([]string, 0, len(reminder.Actions))
	for _, a := range reminder.Actions {
		labels = append(labels, fmt.Sprintf("[%s]", a.Label))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "%s user=%d %s %s\n",
		reminder.Date, reminder.UserID, reminder.Text, strings.Join(labels, " "))
	return err
}
