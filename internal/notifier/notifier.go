package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/julianstephens/habitbell/internal/models"
)

// Dispatcher delivers a reminder to the user's chat transport.
// A returned error is treated as a transport failure for that reminder only.
type Dispatcher interface {
	Send(ctx context.Context, reminder models.Reminder) error
}

// Func adapts a function to Dispatcher
type Func func(ctx context.Context, reminder models.Reminder) error

func (f Func) Send(ctx context.Context, reminder models.Reminder) error {
	return f(ctx, reminder)
}

// ResponseMessage is the wire form of a user's answer. Transports either
// forward the action data attached to the reminder ("done:Read") or the
// decoded title and status.
type ResponseMessage struct {
	UserID     int64  `json:"user_id"`
	Data       string `json:"data,omitempty"`
	HabitTitle string `json:"habit_title,omitempty"`
	Status     string `json:"status,omitempty"`
}

// DecodeResponse parses a ResponseMessage body into a Response.
func DecodeResponse(body []byte) (models.Response, error) {
	var msg ResponseMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return models.Response{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return msg.Response()
}

func (m ResponseMessage) Response() (models.Response, error) {
	if m.UserID == 0 {
		return models.Response{}, fmt.Errorf("response is missing user_id")
	}
	if m.Data != "" {
		status, title, err := models.ParseAction(m.Data)
		if err != nil {
			return models.Response{}, err
		}
		return models.Response{UserID: m.UserID, HabitTitle: title, Status: status}, nil
	}
	status := models.Status(m.Status)
	if !status.Valid() || m.HabitTitle == "" {
		return models.Response{}, fmt.Errorf("response needs data or habit_title and status")
	}
	return models.Response{UserID: m.UserID, HabitTitle: m.HabitTitle, Status: status}, nil
}
