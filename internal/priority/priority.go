// Package priority orders tasks and deadlines by urgency.
package priority

import (
	"sort"
	"time"

	"github.com/pbaille/campusecho/internal/dates"
	"github.com/pbaille/campusecho/internal/domain"
)

// Urgency bonuses added on top of the base level score
const (
	OverdueBonus  = 10
	ImminentBonus = 5
	ThisWeekBonus = 2
)

// Base returns the score of a priority level alone. Unknown levels score
// like medium.
func Base(level domain.Priority) int {
	switch domain.ParsePriority(string(level)) {
	case domain.PriorityHigh:
		return 3
	case domain.PriorityLow:
		return 1
	default:
		return 2
	}
}

// Score combines the level with an urgency bonus derived from the due date.
// Missing or unparseable dates earn no bonus.
func Score(level domain.Priority, dueDate *string, now time.Time) int {
	score := Base(level)
	if dueDate == nil {
		return score
	}

	days, ok := dates.DaysUntil(*dueDate, now)
	if !ok {
		return score
	}

	switch {
	case days < 0:
		score += OverdueBonus
	case days <= 1:
		score += ImminentBonus
	case days <= 7:
		score += ThisWeekBonus
	}
	return score
}

// SortTasks orders tasks by descending score. Ties keep their input order.
func SortTasks(tasks []domain.Task, now time.Time) {
	sortByScore(tasks, func(t domain.Task) int {
		return Score(t.Priority, t.DueDate, now)
	})
}

// SortDeadlines orders deadlines by descending score. Ties keep their input order.
func SortDeadlines(deadlines []domain.Deadline, now time.Time) {
	sortByScore(deadlines, func(d domain.Deadline) int {
		return Score(d.Priority, d.DueDate, now)
	})
}

func sortByScore[T any](items []T, score func(T) int) {
	scores := make([]int, len(items))
	order := make([]int, len(items))
	for i, it := range items {
		scores[i] = score(it)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	sorted := make([]T, len(items))
	for i, idx := range order {
		sorted[i] = items[idx]
	}
	copy(items, sorted)
}
