// Package dates parses the loose date and time formats users type and
// answers calendar questions relative to a reference time.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISOLayout is the storage format for due dates.
const ISOLayout = "2006-01-02"

var dateFormats = []struct {
	pattern *regexp.Regexp
	layout  string
}{
	{regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), "1/2/2006"},
	{regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`), "2006-1-2"},
	{regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`), "2-1-2006"},
}

var timePattern = regexp.MustCompile(`^(\d{1,2}):?(\d{2})?\s*(am|pm)?`)

// ParseDate converts MM/DD/YYYY, YYYY-MM-DD or DD-MM-YYYY into ISO form.
// Anything else is returned trimmed but otherwise unchanged.
func ParseDate(s string) string {
	s = strings.TrimSpace(s)
	for _, f := range dateFormats {
		if !f.pattern.MatchString(s) {
			continue
		}
		if t, err := time.Parse(f.layout, s); err == nil {
			return t.Format(ISOLayout)
		}
	}
	return s
}

// ParseTime converts "9am", "2:30 pm" or "14:00" into HH:MM.
// Unrecognized input is returned lower-cased and trimmed.
func ParseTime(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	m := timePattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}

	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}

	switch {
	case m[3] == "pm" && hour != 12:
		hour += 12
	case m[3] == "am" && hour == 12:
		hour = 0
	}

	if hour > 23 || minute > 59 {
		return s
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// DayOfWeek returns the weekday name of an ISO date, or of now when the
// date is empty or unparseable.
func DayOfWeek(iso string, now time.Time) string {
	if t, err := time.Parse(ISOLayout, strings.TrimSpace(iso)); err == nil {
		return t.Weekday().String()
	}
	return now.Weekday().String()
}

// DaysUntil returns the number of calendar days from now's date to the ISO
// date. Negative values mean the date is in the past.
func DaysUntil(iso string, now time.Time) (int, bool) {
	due, err := time.Parse(ISOLayout, strings.TrimSpace(iso))
	if err != nil {
		return 0, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(due.Sub(today).Hours() / 24), true
}

// IsApproaching reports whether the ISO date falls within the next days
// days, today included.
func IsApproaching(iso string, days int, now time.Time) bool {
	d, ok := DaysUntil(iso, now)
	return ok && d >= 0 && d <= days
}

// IsOverdue reports whether the ISO date is before today.
func IsOverdue(iso string, now time.Time) bool {
	d, ok := DaysUntil(iso, now)
	return ok && d < 0
}
