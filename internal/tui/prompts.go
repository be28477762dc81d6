package tui

import (
	"fmt"

	"github.com/julianstephens/habitbell/internal/session"
)

// replyText renders a conversation reply as the console's next line.
func replyText(r session.Reply) string {
	var title, at string
	if r.Habit != nil {
		title, at = r.Habit.Title, r.Habit.Time
	}
	switch r.Outcome {
	case session.AskTitle:
		return "What habit do you want to track?"
	case session.AskTime:
		return fmt.Sprintf("What time should I remind you about %q? (HH:MM)", title)
	case session.AskNewTitle:
		return fmt.Sprintf("New name for %q:", title)
	case session.AskNewTime:
		return fmt.Sprintf("New reminder time for %q (HH:MM):", title)
	case session.Added:
		return fmt.Sprintf("Habit %q added, reminder at %s.", title, at)
	case session.Renamed:
		return fmt.Sprintf("Habit renamed to %q.", title)
	case session.Rescheduled:
		return fmt.Sprintf("Reminder for %q moved to %s.", title, at)
	case session.InvalidTitle:
		return "That name can't be used. Try another:"
	case session.InvalidTime:
		return "Invalid time format, use HH:MM:"
	case session.DuplicateName:
		return "You already have a habit with that name. Try another:"
	case session.AtCapacity:
		return "You've reached the habit limit. Delete one first."
	case session.HabitNotFound:
		return "That habit no longer exists."
	case session.Canceled:
		return "Canceled."
	default:
		return ""
	}
}

// failed reports whether the outcome ends or blocks a flow unsuccessfully.
func failed(o session.Outcome) bool {
	switch o {
	case session.InvalidTitle, session.InvalidTime, session.DuplicateName, session.AtCapacity, session.HabitNotFound:
		return true
	}
	return false
}
