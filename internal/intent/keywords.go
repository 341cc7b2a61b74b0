package intent

import "github.com/pbaille/campusecho/internal/domain"

// Rule pairs an intent with the keywords that route to it.
type Rule struct {
	Intent   domain.Intent
	Keywords []string
}

// DefaultRules is the routing table. Order matters: the first rule with a
// matching keyword wins, so broader sets sit lower in the list.
var DefaultRules = []Rule{
	{domain.IntentSchedule, []string{"schedule", "timetable", "class", "classes", "today schedule", "my schedule"}},
	{domain.IntentDeadline, []string{"deadline", "exam", "fee", "library", "due date", "assignment", "submit"}},
	{domain.IntentTask, []string{"task", "todo", "reminder", "remind me", "add task", "complete task"}},
	{domain.IntentWeather, []string{"weather", "temperature", "forecast", "climate", "rain", "sunny"}},
	{domain.IntentCalculate, []string{"calculate", "compute", "math", "add", "subtract", "multiply", "divide", "average", "plus", "minus"}},
	{domain.IntentSummarize, []string{"summarize", "summary", "key points", "brief", "main idea", "tldr"}},
	{domain.IntentVideoSearch, []string{"youtube", "open youtube", "search youtube", "play video", "watch"}},
	{domain.IntentJoke, []string{"joke", "tell me a joke", "funny", "make me laugh", "humor"}},
	{domain.IntentConversation, []string{"hello", "hi", "how are you", "what's up", "hey", "good morning", "good evening"}},
}
