package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pbaille/campusecho/internal/domain"
)

const weekdayOrder = `CASE lower(day)
	WHEN 'monday' THEN 1 WHEN 'tuesday' THEN 2 WHEN 'wednesday' THEN 3
	WHEN 'thursday' THEN 4 WHEN 'friday' THEN 5 WHEN 'saturday' THEN 6
	WHEN 'sunday' THEN 7 ELSE 8 END`

// AddClass adds a timetable entry
func (s *Store) AddClass(ctx context.Context, c domain.ClassEntry) (*domain.ClassEntry, error) {
	c.Subject = strings.TrimSpace(c.Subject)
	c.Day = capitalize(c.Day)
	if c.Subject == "" || c.Day == "" {
		return nil, fmt.Errorf("add class: subject and day are required")
	}
	c.ID = uuid.New().String()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO timetable (id, day, time, subject, location, notes, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.Day, strings.TrimSpace(c.Time), c.Subject, strings.TrimSpace(c.Location), strings.TrimSpace(c.Notes), time.Now(),
	)
	if err != nil {
		return nil, unavailable("insert class", err)
	}

	return &c, nil
}

// ListClasses returns the timetable for one day, or the whole week when day is empty
func (s *Store) ListClasses(ctx context.Context, day string) ([]domain.ClassEntry, error) {
	query := "SELECT id, day, time, subject, location, notes FROM timetable"
	var args []any
	if day = strings.TrimSpace(day); day != "" {
		query += " WHERE lower(day) = ?"
		args = append(args, strings.ToLower(day))
	}
	query += " ORDER BY " + weekdayOrder + ", time"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list classes", err)
	}
	defer rows.Close()

	var classes []domain.ClassEntry
	for rows.Next() {
		var c domain.ClassEntry
		if err := rows.Scan(&c.ID, &c.Day, &c.Time, &c.Subject, &c.Location, &c.Notes); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list classes", err)
	}

	return classes, nil
}

// DeleteClass removes the timetable entry matching an id or unique id prefix
func (s *Store) DeleteClass(ctx context.Context, idPrefix string) error {
	id, err := s.resolveID(ctx, "timetable", idPrefix)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM timetable WHERE id = ?", id); err != nil {
		return unavailable("delete class", err)
	}
	return nil
}

func capitalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
