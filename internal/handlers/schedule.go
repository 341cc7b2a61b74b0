package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pbaille/campusecho/internal/dates"
	"github.com/pbaille/campusecho/internal/domain"
)

var addClassPattern = regexp.MustCompile(
	`(?i)add\s+class:?\s*(.+?)\s+on\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\s+at\s+([0-9:]+\s*(?:am|pm)?)(?:\s*@\s*(.+))?\s*$`,
)

// Schedule lists and adds timetable entries.
type Schedule struct {
	Store ScheduleStore
	Now   func() time.Time
}

// Handle implements Handler.
func (h *Schedule) Handle(ctx context.Context, req Request) (string, error) {
	if addVerb.MatchString(req.Text) {
		return h.add(ctx, req.Text)
	}

	day, ok := req.Entities.Get(domain.EntityDay)
	if !ok {
		day = clock(h.Now).Weekday().String()
	}

	classes, err := h.Store.ListClasses(ctx, day)
	if err != nil {
		return "", fmt.Errorf("list classes: %w", err)
	}
	if len(classes) == 0 {
		return fmt.Sprintf("No classes scheduled for %s.", capitalize(strings.ToLower(day))), nil
	}
	return FormatSchedule(classes), nil
}

func (h *Schedule) add(ctx context.Context, text string) (string, error) {
	m := addClassPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return HintAddClass, nil
	}

	c, err := h.Store.AddClass(ctx, domain.ClassEntry{
		Subject:  strings.TrimSpace(m[1]),
		Day:      m[2],
		Time:     dates.ParseTime(m[3]),
		Location: strings.TrimSpace(m[4]),
	})
	if err != nil {
		return "", fmt.Errorf("add class: %w", err)
	}
	return fmt.Sprintf("✅ Added %s on %s at %s.", c.Subject, c.Day, c.Time), nil
}

// FormatSchedule renders classes grouped by day, in the order given.
func FormatSchedule(classes []domain.ClassEntry) string {
	var sb strings.Builder
	sb.WriteString("📅 Schedule:\n" + rule + "\n")

	current := ""
	for _, c := range classes {
		if c.Day != current {
			current = c.Day
			fmt.Fprintf(&sb, "\n%s:\n", current)
		}
		fmt.Fprintf(&sb, "  %s - %s", c.Time, c.Subject)
		if c.Location != "" {
			fmt.Fprintf(&sb, " @ %s", c.Location)
		}
		if c.Notes != "" {
			fmt.Fprintf(&sb, " (%s)", c.Notes)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
