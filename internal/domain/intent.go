package domain

import (
	"fmt"
	"strings"
)

// Intent is the closed set of domains an utterance can be routed to.
type Intent int

const (
	IntentSchedule Intent = iota
	IntentDeadline
	IntentTask
	IntentWeather
	IntentCalculate
	IntentSummarize
	IntentVideoSearch
	IntentJoke
	IntentConversation

	intentCount
)

var intentNames = [intentCount]string{
	IntentSchedule:     "schedule",
	IntentDeadline:     "deadline",
	IntentTask:         "task",
	IntentWeather:      "weather",
	IntentCalculate:    "calculate",
	IntentSummarize:    "summarize",
	IntentVideoSearch:  "video_search",
	IntentJoke:         "joke",
	IntentConversation: "conversation",
}

// String returns the wire name of the intent.
func (i Intent) String() string {
	if !i.IsValid() {
		return fmt.Sprintf("intent(%d)", int(i))
	}
	return intentNames[i]
}

// IsValid reports whether i is one of the declared intents.
func (i Intent) IsValid() bool {
	return i >= 0 && i < intentCount
}

// Cacheable reports whether responses for this intent may be memoized.
// Conversation is stateful per session and never cached.
func (i Intent) Cacheable() bool {
	switch i {
	case IntentWeather, IntentCalculate, IntentJoke:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (i Intent) MarshalText() ([]byte, error) {
	if !i.IsValid() {
		return nil, fmt.Errorf("invalid intent %d", int(i))
	}
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Intent) UnmarshalText(b []byte) error {
	parsed, err := ParseIntent(string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// ParseIntent maps a wire name back to an Intent. "youtube" is accepted as
// an alias of video_search.
func ParseIntent(s string) (Intent, error) {
	s = normalize(s)
	if s == "youtube" {
		return IntentVideoSearch, nil
	}
	for i, name := range intentNames {
		if name == s {
			return Intent(i), nil
		}
	}
	return 0, fmt.Errorf("unknown intent %q", s)
}

// AllIntents returns every intent in routing order.
func AllIntents() []Intent {
	out := make([]Intent, 0, intentCount)
	for i := Intent(0); i < intentCount; i++ {
		out = append(out, i)
	}
	return out
}

// EntityName identifies a structured field pulled out of an utterance.
type EntityName string

const (
	EntityDay        EntityName = "day"
	EntityType       EntityName = "type"
	EntityExpression EntityName = "expression"
	EntityCity       EntityName = "city"
	EntityQuery      EntityName = "query"
)

// EntityMap holds the entities extracted for a single request.
type EntityMap map[EntityName]string

// Get returns the value for name, if present.
func (m EntityMap) Get(name EntityName) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// EntityNames returns the entity names an intent's extraction rules may emit.
func (i Intent) EntityNames() []EntityName {
	switch i {
	case IntentSchedule:
		return []EntityName{EntityDay}
	case IntentDeadline:
		return []EntityName{EntityType}
	case IntentCalculate:
		return []EntityName{EntityExpression}
	case IntentWeather:
		return []EntityName{EntityCity}
	case IntentVideoSearch:
		return []EntityName{EntityQuery}
	default:
		return nil
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
