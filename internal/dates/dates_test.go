package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12/25/2025", "2025-12-25"},
		{"1/5/2026", "2026-01-05"},
		{"2026-3-9", "2026-03-09"},
		{"2026-03-09", "2026-03-09"},
		{"09-03-2026", "2026-03-09"},
		{" next friday ", "next friday"},
		{"13/45/2026", "13/45/2026"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDate(tt.in))
		})
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"9am", "09:00"},
		{"9 AM", "09:00"},
		{"2:30 pm", "14:30"},
		{"12pm", "12:00"},
		{"12:15am", "00:15"},
		{"14:00", "14:00"},
		{"noon", "noon"},
		{"99", "99"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTime(tt.in))
		})
	}
}

func TestDayOfWeek(t *testing.T) {
	now := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC) // Sunday

	assert.Equal(t, "Monday", DayOfWeek("2026-10-19", now))
	assert.Equal(t, "Sunday", DayOfWeek("", now))
	assert.Equal(t, "Sunday", DayOfWeek("not a date", now))
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 10, 18, 23, 30, 0, 0, time.UTC)

	d, ok := DaysUntil("2026-10-18", now)
	assert.True(t, ok)
	assert.Equal(t, 0, d)

	d, ok = DaysUntil("2026-10-17", now)
	assert.True(t, ok)
	assert.Equal(t, -1, d)

	d, ok = DaysUntil("2026-11-18", now)
	assert.True(t, ok)
	assert.Equal(t, 31, d)

	_, ok = DaysUntil("someday", now)
	assert.False(t, ok)
}

func TestApproachingAndOverdue(t *testing.T) {
	now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

	assert.True(t, IsApproaching("2026-10-18", 7, now))
	assert.True(t, IsApproaching("2026-10-25", 7, now))
	assert.False(t, IsApproaching("2026-10-26", 7, now))
	assert.False(t, IsApproaching("2026-10-17", 7, now))

	assert.True(t, IsOverdue("2026-10-17", now))
	assert.False(t, IsOverdue("2026-10-18", now))
	assert.False(t, IsOverdue("garbage", now))
}
