package priority

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pbaille/campusecho/internal/domain"
)

var now = time.Date(2026, 10, 18, 14, 0, 0, 0, time.UTC)

func date(s string) *string { return &s }

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		level domain.Priority
		due   *string
		want  int
	}{
		{"high no date", domain.PriorityHigh, nil, 3},
		{"medium no date", domain.PriorityMedium, nil, 2},
		{"low no date", domain.PriorityLow, nil, 1},
		{"unknown level", domain.Priority("urgent"), nil, 2},
		{"overdue", domain.PriorityLow, date("2026-10-10"), 11},
		{"due today", domain.PriorityMedium, date("2026-10-18"), 7},
		{"due tomorrow", domain.PriorityMedium, date("2026-10-19"), 7},
		{"due in two days", domain.PriorityHigh, date("2026-10-20"), 5},
		{"due in a week", domain.PriorityHigh, date("2026-10-25"), 5},
		{"due in eight days", domain.PriorityHigh, date("2026-10-26"), 3},
		{"unparseable date", domain.PriorityHigh, date("soon"), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.level, tt.due, now))
		})
	}
}

func TestScoreMonotonicInUrgency(t *testing.T) {
	for _, level := range []domain.Priority{domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow} {
		overdue := Score(level, date("2026-10-01"), now)
		imminent := Score(level, date("2026-10-19"), now)
		thisWeek := Score(level, date("2026-10-23"), now)
		nextMonth := Score(level, date("2026-11-20"), now)

		assert.Greater(t, overdue, imminent, level)
		assert.Greater(t, imminent, thisWeek, level)
		assert.Greater(t, thisWeek, nextMonth, level)
	}
}

func TestSortTasksStable(t *testing.T) {
	tasks := []domain.Task{
		{ID: "a", Title: "read chapter", Priority: domain.PriorityMedium},
		{ID: "b", Title: "lab report", Priority: domain.PriorityLow, DueDate: date("2026-10-01")},
		{ID: "c", Title: "buy notebook", Priority: domain.PriorityMedium},
		{ID: "d", Title: "essay", Priority: domain.PriorityHigh, DueDate: date("2026-10-19")},
		{ID: "e", Title: "", Priority: domain.PriorityMedium},
	}

	SortTasks(tasks, now)

	var ids []string
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"b", "d", "a", "c", "e"}, ids)
}

func TestSortDeadlines(t *testing.T) {
	deadlines := []domain.Deadline{
		{ID: "1", Kind: "library", Priority: domain.PriorityMedium, DueDate: date("2026-12-01")},
		{ID: "2", Kind: "exam", Priority: domain.PriorityHigh, DueDate: date("2026-10-20")},
		{ID: "3", Kind: "fee", Priority: domain.PriorityMedium, DueDate: date("2026-10-15")},
	}

	SortDeadlines(deadlines, now)

	assert.Equal(t, "3", deadlines[0].ID)
	assert.Equal(t, "2", deadlines[1].ID)
	assert.Equal(t, "1", deadlines[2].ID)
}
