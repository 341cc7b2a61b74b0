// Package handlers implements the per-intent responders the dispatcher
// routes to. Each handler returns the reply text, or an error when the
// request could not be served at all.
package handlers

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/pbaille/campusecho/internal/domain"
	"github.com/pbaille/campusecho/internal/session"
	"github.com/pbaille/campusecho/internal/store"
)

// Request is what a handler receives for one utterance.
type Request struct {
	Text     string
	Entities domain.EntityMap
	Session  *session.Session
}

// Handler answers one intent.
type Handler interface {
	Handle(ctx context.Context, req Request) (string, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) (string, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Format hints returned when an add or complete request is not in a shape
// the handler can parse.
const (
	HintAddClass    = "To add a class, please use format: 'Add class: [subject] on [day] at [time]'"
	HintAddDeadline = "To add a deadline, use: 'Add deadline: [type] - [title] on [date]'"
	HintAddTask     = "To add a task, use: 'Add task: [task name] - priority: [high/medium/low]'"
	HintComplete    = "To complete a task, use: 'Complete task [id]'"
)

// ScheduleStore is the timetable storage a Schedule handler needs.
type ScheduleStore interface {
	AddClass(ctx context.Context, c domain.ClassEntry) (*domain.ClassEntry, error)
	ListClasses(ctx context.Context, day string) ([]domain.ClassEntry, error)
}

// DeadlineStore is the deadline storage a Deadline handler needs.
type DeadlineStore interface {
	AddDeadline(ctx context.Context, kind, title, description string, priority domain.Priority, dueDate *string) (*domain.Deadline, error)
	ListDeadlines(ctx context.Context, f store.DeadlineFilter) ([]domain.Deadline, error)
}

// TaskStore is the task storage a Task handler needs.
type TaskStore interface {
	AddTask(ctx context.Context, title, description string, priority domain.Priority, dueDate *string) (*domain.Task, error)
	ListTasks(ctx context.Context, completed bool) ([]domain.Task, error)
	CompleteTask(ctx context.Context, idPrefix string) (*domain.Task, error)
}

var addVerb = regexp.MustCompile(`(?i)\b(add|create)\b`)

const rule = "=================================================="

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
