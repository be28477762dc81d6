package models

import (
	"fmt"
	"strings"
)

// Action is a response affordance attached to a reminder, e.g. an inline button
type Action struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Reminder is what the scheduler hands to a dispatcher
type Reminder struct {
	ID         string   `json:"id"`
	UserID     int64    `json:"user_id"`
	HabitTitle string   `json:"habit_title"`
	Date       string   `json:"date"`
	Text       string   `json:"text"`
	Actions    []Action `json:"actions,omitempty"`
}

// Response is a user's answer to a reminder
type Response struct {
	UserID     int64  `json:"user_id"`
	HabitTitle string `json:"habit_title"`
	Status     Status `json:"status"`
}

// ActionData encodes the callback payload for a status ("done:<title>")
func ActionData(status Status, title string) string {
	return string(status) + ":" + title
}

// ReminderActions returns the done/missed affordances for a habit
func ReminderActions(title string) []Action {
	return []Action{
		{Label: "Done", Data: ActionData(StatusDone, title)},
		{Label: "Missed", Data: ActionData(StatusMissed, title)},
	}
}

// legacyMiss is the "missed" button prefix older chat keyboards still send
const legacyMiss = "miss"

// ParseAction decodes callback data produced by ActionData. The short
// "miss:<title>" form is read as missed.
func ParseAction(data string) (Status, string, error) {
	prefix, title, ok := strings.Cut(data, ":")
	if !ok || title == "" {
		return "", "", fmt.Errorf("malformed action data %q", data)
	}
	if prefix == legacyMiss {
		return StatusMissed, title, nil
	}
	status := Status(prefix)
	if !status.Valid() {
		return "", "", fmt.Errorf("unknown action %q", prefix)
	}
	return status, title, nil
}
