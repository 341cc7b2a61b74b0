package intent

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pbaille/campusecho/internal/domain"
)

var (
	weekdays      = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	deadlineKinds = []string{"exam", "fee", "library", "assignment"}

	calcLeadIn     = regexp.MustCompile(`(?i)\b(calculate|compute|what is|solve)\b`)
	operatorSpaces = regexp.MustCompile(`\s*([-+*/^()])\s*`)
	cityPattern    = regexp.MustCompile(`(?:weather (?:in|for) |in )([a-zA-Z ]+?)(?:\?|$| weather)`)
	videoPattern   = regexp.MustCompile(`(?:search|find|play|open) (?:youtube for |on youtube )?(.*?)(?:\?|$)`)
)

// Extract pulls the entities defined for in out of text. It is pure and
// never fails: a rule that finds nothing leaves its key out.
func Extract(text string, in domain.Intent) domain.EntityMap {
	entities := domain.EntityMap{}
	lower := strings.ToLower(text)

	switch in {
	case domain.IntentSchedule:
		for _, day := range weekdays {
			if strings.Contains(lower, day) {
				entities[domain.EntityDay] = titleCase(day)
				break
			}
		}

	case domain.IntentDeadline:
		for _, kind := range deadlineKinds {
			if strings.Contains(lower, kind) {
				entities[domain.EntityType] = kind
				break
			}
		}

	case domain.IntentCalculate:
		expr := calcLeadIn.ReplaceAllString(lower, "")
		expr = operatorSpaces.ReplaceAllString(strings.TrimSpace(expr), "$1")
		if expr != "" {
			entities[domain.EntityExpression] = expr
		}

	case domain.IntentWeather:
		if m := cityPattern.FindStringSubmatch(lower); m != nil {
			if city := strings.TrimSpace(m[1]); city != "" {
				entities[domain.EntityCity] = titleCase(city)
			}
		}

	case domain.IntentVideoSearch:
		if m := videoPattern.FindStringSubmatch(lower); m != nil {
			if q := strings.TrimSpace(m[1]); q != "" {
				entities[domain.EntityQuery] = q
			}
		}
	}

	return entities
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
