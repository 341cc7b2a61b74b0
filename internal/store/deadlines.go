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

// DeadlineFilter narrows ListDeadlines
type DeadlineFilter struct {
	Completed bool
	Kind      string // empty matches every type
}

// AddDeadline creates a new deadline and returns it
func (s *Store) AddDeadline(ctx context.Context, kind, title, description string, priority domain.Priority, dueDate *string) (*domain.Deadline, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("add deadline: title is required")
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = "other"
	}

	d := &domain.Deadline{
		ID:          uuid.New().String(),
		Kind:        kind,
		Title:       title,
		Description: strings.TrimSpace(description),
		Priority:    domain.ParsePriority(string(priority)),
		DueDate:     fromNull(sql.NullString{String: deref(dueDate), Valid: dueDate != nil}),
		CreatedAt:   time.Now(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO deadlines (id, type, title, description, priority, due_date, completed, created_at) VALUES (?, ?, ?, ?, ?, ?, 0, ?)",
		d.ID, d.Kind, d.Title, d.Description, string(d.Priority), nullable(d.DueDate), d.CreatedAt,
	)
	if err != nil {
		return nil, unavailable("insert deadline", err)
	}

	return d, nil
}

// ListDeadlines returns deadlines ordered by due date
func (s *Store) ListDeadlines(ctx context.Context, f DeadlineFilter) ([]domain.Deadline, error) {
	query := `
		SELECT id, type, title, description, priority, due_date, completed, created_at
		FROM deadlines
		WHERE completed = ?`
	args := []any{f.Completed}

	if kind := strings.TrimSpace(f.Kind); kind != "" {
		query += " AND lower(type) = ?"
		args = append(args, strings.ToLower(kind))
	}
	query += " ORDER BY due_date IS NULL, due_date, created_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list deadlines", err)
	}
	defer rows.Close()

	var deadlines []domain.Deadline
	for rows.Next() {
		var d domain.Deadline
		var priority string
		var due sql.NullString
		if err := rows.Scan(&d.ID, &d.Kind, &d.Title, &d.Description, &priority, &due, &d.Completed, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan deadline: %w", err)
		}
		d.Priority = domain.Priority(priority)
		d.DueDate = fromNull(due)
		deadlines = append(deadlines, d)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list deadlines", err)
	}

	return deadlines, nil
}

// CompleteDeadline marks the deadline matching an id or unique id prefix as done
func (s *Store) CompleteDeadline(ctx context.Context, idPrefix string) error {
	id, err := s.resolveID(ctx, "deadlines", idPrefix)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE deadlines SET completed = 1 WHERE id = ?", id); err != nil {
		return unavailable("complete deadline", err)
	}
	return nil
}

// DeleteDeadline removes the deadline matching an id or unique id prefix
func (s *Store) DeleteDeadline(ctx context.Context, idPrefix string) error {
	id, err := s.resolveID(ctx, "deadlines", idPrefix)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM deadlines WHERE id = ?", id); err != nil {
		return unavailable("delete deadline", err)
	}
	return nil
}
