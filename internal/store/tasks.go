package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pbaille/campusecho/internal/domain"
)

// priorityOrder sorts high before medium before low
const priorityOrder = `CASE priority WHEN 'high' THEN 3 WHEN 'low' THEN 1 ELSE 2 END DESC`

// AddTask creates a new task and returns it
func (s *Store) AddTask(ctx context.Context, title, description string, priority domain.Priority, dueDate *string) (*domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("add task: title is required")
	}

	task := &domain.Task{
		ID:          uuid.New().String(),
		Title:       title,
		Description: strings.TrimSpace(description),
		Priority:    domain.ParsePriority(string(priority)),
		DueDate:     fromNull(sql.NullString{String: deref(dueDate), Valid: dueDate != nil}),
		CreatedAt:   time.Now(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tasks (id, title, description, priority, due_date, completed, created_at) VALUES (?, ?, ?, ?, ?, 0, ?)",
		task.ID, task.Title, task.Description, string(task.Priority), nullable(task.DueDate), task.CreatedAt,
	)
	if err != nil {
		return nil, unavailable("insert task", err)
	}

	return task, nil
}

// ListTasks returns tasks by completion state, ordered by priority then due date
func (s *Store) ListTasks(ctx context.Context, completed bool) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, priority, due_date, completed, created_at
		FROM tasks
		WHERE completed = ?
		ORDER BY `+priorityOrder+`, due_date IS NULL, due_date, created_at`,
		completed,
	)
	if err != nil {
		return nil, unavailable("list tasks", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		var t domain.Task
		var priority string
		var due sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &priority, &due, &t.Completed, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Priority = domain.Priority(priority)
		t.DueDate = fromNull(due)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list tasks", err)
	}

	return tasks, nil
}

// CompleteTask marks the task matching an id or unique id prefix as done
func (s *Store) CompleteTask(ctx context.Context, idPrefix string) (*domain.Task, error) {
	id, err := s.resolveID(ctx, "tasks", idPrefix)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, "UPDATE tasks SET completed = 1 WHERE id = ?", id); err != nil {
		return nil, unavailable("complete task", err)
	}

	return s.getTask(ctx, id)
}

// DeleteTask removes the task matching an id or unique id prefix
func (s *Store) DeleteTask(ctx context.Context, idPrefix string) error {
	id, err := s.resolveID(ctx, "tasks", idPrefix)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
		return unavailable("delete task", err)
	}
	return nil
}

func (s *Store) getTask(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	var priority string
	var due sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, description, priority, due_date, completed, created_at FROM tasks WHERE id = ?",
		id,
	).Scan(&t.ID, &t.Title, &t.Description, &priority, &due, &t.Completed, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("get task", err)
	}
	t.Priority = domain.Priority(priority)
	t.DueDate = fromNull(due)
	return &t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
