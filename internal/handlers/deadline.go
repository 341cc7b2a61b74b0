package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/pbaille/campusecho/internal/dates"
	"github.com/pbaille/campusecho/internal/domain"
	"github.com/pbaille/campusecho/internal/priority"
	"github.com/pbaille/campusecho/internal/store"
)

var addDeadlinePattern = regexp.MustCompile(`(?i)add\s+deadline:?\s*(\w+)\s*-\s*(.+?)\s+(?:on|due|by)\s+(\S+)\s*$`)

// Deadline lists and adds deadlines.
type Deadline struct {
	Store DeadlineStore
	Now   func() time.Time
}

// Handle implements Handler.
func (h *Deadline) Handle(ctx context.Context, req Request) (string, error) {
	if addVerb.MatchString(req.Text) {
		return h.add(ctx, req.Text)
	}

	kind, _ := req.Entities.Get(domain.EntityType)
	deadlines, err := h.Store.ListDeadlines(ctx, store.DeadlineFilter{Kind: kind})
	if err != nil {
		return "", fmt.Errorf("list deadlines: %w", err)
	}
	if len(deadlines) == 0 {
		return "No deadlines found.", nil
	}

	now := clock(h.Now)
	priority.SortDeadlines(deadlines, now)
	return FormatDeadlines(deadlines, now), nil
}

func (h *Deadline) add(ctx context.Context, text string) (string, error) {
	m := addDeadlinePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return HintAddDeadline, nil
	}

	due := dates.ParseDate(m[3])
	d, err := h.Store.AddDeadline(ctx, m[1], strings.TrimSpace(m[2]), "", domain.PriorityMedium, &due)
	if err != nil {
		return "", fmt.Errorf("add deadline: %w", err)
	}
	return fmt.Sprintf("✅ Added %s deadline: %s (due %s).", d.Kind, d.Title, due), nil
}

// FormatDeadlines renders deadlines grouped by type. Groups appear in the
// order of their most urgent item.
func FormatDeadlines(deadlines []domain.Deadline, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("⏰ Deadlines:\n" + rule + "\n")

	groups := lo.GroupBy(deadlines, func(d domain.Deadline) string { return d.Kind })
	order := lo.Uniq(lo.Map(deadlines, func(d domain.Deadline, _ int) string { return d.Kind }))

	for _, kind := range order {
		fmt.Fprintf(&sb, "\n%s:\n", strings.ToUpper(kind))
		for _, d := range groups[kind] {
			status := "⏳"
			if d.Completed {
				status = "✅"
			}
			fmt.Fprintf(&sb, "  %s %s - Due: %s", status, d.Title, dueLabel(d.DueDate, now))
			if d.Description != "" {
				fmt.Fprintf(&sb, " (%s)", d.Description)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// dueLabel renders "2026-10-20 (2 days from now)" or "none".
func dueLabel(due *string, now time.Time) string {
	if due == nil {
		return "none"
	}
	t, err := time.Parse(dates.ISOLayout, *due)
	if err != nil {
		return *due
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if t.Equal(today) {
		return *due + " (today)"
	}
	return fmt.Sprintf("%s (%s)", *due, humanize.RelTime(t, today, "ago", "from now"))
}
