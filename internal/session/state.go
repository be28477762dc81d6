package session

import "fmt"

// State is where a user's add/edit conversation currently stands.
type State int

const (
	Idle State = iota
	AwaitingTitle
	AwaitingTime
	AwaitingNewTitle
	AwaitingNewTime
)

var stateNames = map[State]string{
	Idle:             "idle",
	AwaitingTitle:    "awaiting_title",
	AwaitingTime:     "awaiting_time",
	AwaitingNewTitle: "awaiting_new_title",
	AwaitingNewTime:  "awaiting_new_time",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// EventKind is what the user did.
type EventKind int

const (
	StartAdd EventKind = iota
	StartEditTitle
	StartEditTime
	Input
	Cancel
)

var eventNames = map[EventKind]string{
	StartAdd:       "start_add",
	StartEditTitle: "start_edit_title",
	StartEditTime:  "start_edit_time",
	Input:          "input",
	Cancel:         "cancel",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(k))
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(b []byte) error {
	for kind, name := range eventNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown event %q", b)
}

// Event is one user action. HabitID is set for the edit starts, Text for Input.
type Event struct {
	Kind    EventKind `json:"event"`
	HabitID int64     `json:"habit_id,omitempty"`
	Text    string    `json:"text,omitempty"`
}

// Outcome tells the presentation layer what to say.
type Outcome string

const (
	AskTitle      Outcome = "ask_title"
	AskTime       Outcome = "ask_time"
	AskNewTitle   Outcome = "ask_new_title"
	AskNewTime    Outcome = "ask_new_time"
	Added         Outcome = "added"
	Renamed       Outcome = "renamed"
	Rescheduled   Outcome = "rescheduled"
	InvalidTitle  Outcome = "invalid_title"
	InvalidTime   Outcome = "invalid_time"
	DuplicateName Outcome = "duplicate_title"
	AtCapacity    Outcome = "capacity_exceeded"
	HabitNotFound Outcome = "not_found"
	Canceled      Outcome = "canceled"
	Ignored       Outcome = "ignored"
)

// Reply is the result of handling an event. Habit is set once a flow has
// a habit to talk about.
type Reply struct {
	State   State         `json:"state"`
	Outcome Outcome       `json:"outcome"`
	Habit   *HabitSnippet `json:"habit,omitempty"`
	Detail  string        `json:"detail,omitempty"`
}

// HabitSnippet is the part of a habit a reply shows.
type HabitSnippet struct {
	ID    int64  `json:"id,omitempty"`
	Title string `json:"title"`
	Time  string `json:"time,omitempty"`
}
