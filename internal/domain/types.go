package domain

import "time"

// Priority is the urgency level attached to tasks and deadlines
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority normalizes a user-supplied level, defaulting to medium
func ParsePriority(s string) Priority {
	switch Priority(normalize(s)) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// Task represents a to-do item
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Priority    Priority  `json:"priority"`
	DueDate     *string   `json:"due_date,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

// Deadline represents a dated obligation such as an exam or a fee payment
type Deadline struct {
	ID          string    `json:"id"`
	Kind        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Priority    Priority  `json:"priority"`
	DueDate     *string   `json:"due_date,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

// ClassEntry is one timetable slot
type ClassEntry struct {
	ID       string `json:"id"`
	Day      string `json:"day"`
	Time     string `json:"time"`
	Subject  string `json:"subject"`
	Location string `json:"location,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// ConversationTurn records one processed utterance and the reply it produced
type ConversationTurn struct {
	ID                string    `json:"id"`
	SessionID         string    `json:"session_id"`
	UserInput         string    `json:"user_input"`
	AssistantResponse string    `json:"assistant_response"`
	Intent            string    `json:"intent"`
	Timestamp         time.Time `json:"timestamp"`
}
