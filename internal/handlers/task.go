package handlers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pbaille/campusecho/internal/dates"
	"github.com/pbaille/campusecho/internal/domain"
	"github.com/pbaille/campusecho/internal/priority"
	"github.com/pbaille/campusecho/internal/store"
)

var (
	addTaskPattern      = regexp.MustCompile(`(?i)(?:add|create)\s+task:\s*(.+)$`)
	taskPriorityPattern = regexp.MustCompile(`(?i)\s*-\s*priority:?\s*(high|medium|low)\b`)
	taskDuePattern      = regexp.MustCompile(`(?i)\s+due\s+(\d{1,4}[-/]\d{1,2}[-/]\d{1,4})\s*$`)
	completeTaskPattern = regexp.MustCompile(`(?i)\b(?:complete|done|finish(?:ed)?)\s+task\s+([0-9a-f][0-9a-f-]*)`)
	completeVerb        = regexp.MustCompile(`(?i)\b(complete|done|finish(?:ed)?)\b`)
)

// Task lists, adds and completes tasks.
type Task struct {
	Store TaskStore
	Now   func() time.Time
}

// Handle implements Handler.
func (h *Task) Handle(ctx context.Context, req Request) (string, error) {
	text := strings.TrimSpace(req.Text)

	switch {
	case addVerb.MatchString(text):
		return h.add(ctx, text)
	case completeVerb.MatchString(text):
		return h.complete(ctx, text)
	}

	tasks, err := h.Store.ListTasks(ctx, false)
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		return "No pending tasks. You're all caught up! ✅", nil
	}

	priority.SortTasks(tasks, clock(h.Now))
	return FormatTasks(tasks), nil
}

func (h *Task) add(ctx context.Context, text string) (string, error) {
	m := addTaskPattern.FindStringSubmatch(text)
	if m == nil {
		return HintAddTask, nil
	}
	title := m[1]

	level := domain.PriorityMedium
	if pm := taskPriorityPattern.FindStringSubmatch(title); pm != nil {
		level = domain.ParsePriority(pm[1])
		title = taskPriorityPattern.ReplaceAllString(title, "")
	}

	var due *string
	if dm := taskDuePattern.FindStringSubmatch(title); dm != nil {
		d := dates.ParseDate(dm[1])
		due = &d
		title = taskDuePattern.ReplaceAllString(title, "")
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return HintAddTask, nil
	}

	t, err := h.Store.AddTask(ctx, title, "", level, due)
	if err != nil {
		return "", fmt.Errorf("add task: %w", err)
	}

	reply := fmt.Sprintf("✅ Added task: %s (%s priority", t.Title, t.Priority)
	if t.DueDate != nil {
		reply += ", due " + *t.DueDate
	}
	return reply + ") [" + shortID(t.ID) + "]", nil
}

func (h *Task) complete(ctx context.Context, text string) (string, error) {
	m := completeTaskPattern.FindStringSubmatch(text)
	if m == nil {
		return HintComplete, nil
	}

	t, err := h.Store.CompleteTask(ctx, m[1])
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Sprintf("I couldn't find a task with id %s.", m[1]), nil
	case errors.Is(err, store.ErrAmbiguous):
		return fmt.Sprintf("Several tasks start with %s. Please use more of the id.", m[1]), nil
	case err != nil:
		return "", fmt.Errorf("complete task: %w", err)
	}
	return fmt.Sprintf("✅ Completed task: %s", t.Title), nil
}

var priorityMarks = map[domain.Priority]string{
	domain.PriorityHigh:   "🔴",
	domain.PriorityMedium: "🟡",
	domain.PriorityLow:    "🟢",
}

// FormatTasks renders tasks in the order given, with their short ids.
func FormatTasks(tasks []domain.Task) string {
	var sb strings.Builder
	sb.WriteString("📝 Tasks:\n" + rule + "\n")

	for _, t := range tasks {
		status := "⬜"
		if t.Completed {
			status = "✅"
		}
		mark, ok := priorityMarks[t.Priority]
		if !ok {
			mark = "⚪"
		}

		fmt.Fprintf(&sb, "%s %s %s", status, mark, t.Title)
		if t.DueDate != nil {
			fmt.Fprintf(&sb, " - Due: %s", *t.DueDate)
		}
		fmt.Fprintf(&sb, " [%s]", shortID(t.ID))
		if t.Description != "" {
			fmt.Fprintf(&sb, "\n   %s", t.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
