package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/campusecho/internal/docparse"
	"github.com/pbaille/campusecho/internal/domain"
	"github.com/pbaille/campusecho/internal/session"
	"github.com/pbaille/campusecho/internal/store"
	"github.com/pbaille/campusecho/internal/weather"
)

// Sunday 18 October 2026, mid-morning.
var testNow = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func req(text string, entities domain.EntityMap) Request {
	return Request{Text: text, Entities: entities}
}

func TestScheduleHandler(t *testing.T) {
	ctx := context.Background()
	h := &Schedule{Store: newStore(t), Now: fixedNow}

	out, err := h.Handle(ctx, req("what's my schedule", nil))
	require.NoError(t, err)
	assert.Equal(t, "No classes scheduled for Sunday.", out)

	out, err = h.Handle(ctx, req("add a class please", nil))
	require.NoError(t, err)
	assert.Equal(t, HintAddClass, out)

	out, err = h.Handle(ctx, req("Add class: Linear Algebra on monday at 9am @ Room 101", nil))
	require.NoError(t, err)
	assert.Equal(t, "✅ Added Linear Algebra on Monday at 09:00.", out)

	out, err = h.Handle(ctx, req("classes on monday", domain.EntityMap{domain.EntityDay: "Monday"}))
	require.NoError(t, err)
	assert.Contains(t, out, "📅 Schedule:")
	assert.Contains(t, out, "\nMonday:\n  09:00 - Linear Algebra @ Room 101\n")
}

func TestDeadlineHandler(t *testing.T) {
	ctx := context.Background()
	h := &Deadline{Store: newStore(t), Now: fixedNow}

	out, err := h.Handle(ctx, req("show deadlines", nil))
	require.NoError(t, err)
	assert.Equal(t, "No deadlines found.", out)

	out, err = h.Handle(ctx, req("add deadline for my exam", nil))
	require.NoError(t, err)
	assert.Equal(t, HintAddDeadline, out)

	out, err = h.Handle(ctx, req("Add deadline: exam - Calculus final on 12/10/2026", nil))
	require.NoError(t, err)
	assert.Equal(t, "✅ Added exam deadline: Calculus final (due 2026-12-10).", out)

	_, err = h.Handle(ctx, req("add deadline: fee - Tuition on 2026-10-20", nil))
	require.NoError(t, err)

	out, err = h.Handle(ctx, req("show deadlines", nil))
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "FEE:"), strings.Index(out, "EXAM:"), "most urgent group first")
	assert.Contains(t, out, "⏳ Tuition - Due: 2026-10-20 (2 days from now)")

	out, err = h.Handle(ctx, req("when is my exam", domain.EntityMap{domain.EntityType: "exam"}))
	require.NoError(t, err)
	assert.NotContains(t, out, "Tuition")
	assert.Contains(t, out, "Calculus final")
}

func TestTaskHandler(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	h := &Task{Store: s, Now: fixedNow}

	out, err := h.Handle(ctx, req("show my tasks", nil))
	require.NoError(t, err)
	assert.Equal(t, "No pending tasks. You're all caught up! ✅", out)

	out, err = h.Handle(ctx, req("add task", nil))
	require.NoError(t, err)
	assert.Equal(t, HintAddTask, out)

	out, err = h.Handle(ctx, req("mark task as done", nil))
	require.NoError(t, err)
	assert.Equal(t, HintComplete, out)

	out, err = h.Handle(ctx, req("Add task: Read chapter 4 - priority: low", nil))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "✅ Added task: Read chapter 4 (low priority) ["), out)

	out, err = h.Handle(ctx, req("add task: Lab report due 10/19/2026 - priority: high", nil))
	require.NoError(t, err)
	assert.Contains(t, out, "Lab report (high priority, due 2026-10-19)")

	tasks, err := s.ListTasks(ctx, false)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	out, err = h.Handle(ctx, req("list tasks", nil))
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "Lab report"), strings.Index(out, "Read chapter 4"))
	assert.Contains(t, out, "⬜ 🔴 Lab report - Due: 2026-10-19")

	var lab domain.Task
	for _, tk := range tasks {
		if tk.Title == "Lab report" {
			lab = tk
		}
	}
	out, err = h.Handle(ctx, req("complete task "+lab.ID[:8], nil))
	require.NoError(t, err)
	assert.Equal(t, "✅ Completed task: Lab report", out)

	out, err = h.Handle(ctx, req("done task abcdef12", nil))
	require.NoError(t, err)
	assert.Equal(t, "I couldn't find a task with id abcdef12.", out)
}

func TestTaskDueNeedsTrailingDate(t *testing.T) {
	tests := []struct {
		text  string
		title string
		due   string
	}{
		{"add task: review due process", "review due process", ""},
		{"add task: due diligence notes due 2026-11-02", "due diligence notes", "2026-11-02"},
		{"add task: essay due 11/02/2026 - priority: low", "essay", "2026-11-02"},
		{"add task: pay dues", "pay dues", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			h := &Task{Store: s, Now: fixedNow}

			_, err := h.Handle(ctx, req(tt.text, nil))
			require.NoError(t, err)

			tasks, err := s.ListTasks(ctx, false)
			require.NoError(t, err)
			require.Len(t, tasks, 1)
			assert.Equal(t, tt.title, tasks[0].Title)
			if tt.due == "" {
				assert.Nil(t, tasks[0].DueDate)
			} else {
				require.NotNil(t, tasks[0].DueDate)
				assert.Equal(t, tt.due, *tasks[0].DueDate)
			}
		})
	}
}

func TestStorageFailureIsAnError(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = (&Task{Store: s}).Handle(context.Background(), req("list tasks", nil))
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

type fakeWeather struct {
	city string
	err  error
}

func (f *fakeWeather) Current(_ context.Context, city string) (*weather.Report, error) {
	f.city = city
	if f.err != nil {
		return nil, f.err
	}
	return &weather.Report{City: city, Country: "GB", Temperature: 11, FeelsLike: 9, Description: "overcast clouds"}, nil
}

func TestWeatherHandler(t *testing.T) {
	ctx := context.Background()
	src := &fakeWeather{}
	h := &Weather{Source: src, DefaultCity: "London"}

	out, err := h.Handle(ctx, req("weather in paris", domain.EntityMap{domain.EntityCity: "Paris"}))
	require.NoError(t, err)
	assert.Equal(t, "Paris", src.city)
	assert.Contains(t, out, "Weather in Paris, GB:")

	_, err = h.Handle(ctx, req("is it sunny", nil))
	require.NoError(t, err)
	assert.Equal(t, "London", src.city)

	src.err = weather.ErrNotConfigured
	_, err = h.Handle(ctx, req("weather", nil))
	assert.ErrorIs(t, err, weather.ErrNotConfigured)
}

func TestCalculateHandler(t *testing.T) {
	tests := []struct {
		name string
		r    Request
		want string
	}{
		{"entity", req("Calculate 25 + 17", domain.EntityMap{domain.EntityExpression: "25+17"}), "📊 Result: 42"},
		{"raw text", req("what is 10 divided by 4", nil), "📊 Result: 2.5"},
		{"invalid", req("calculate my grades", domain.EntityMap{domain.EntityExpression: "my grades"}), CalculateFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Calculate{}.Handle(context.Background(), tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

type fakeSummarizer struct {
	ready bool
	got   string
}

func (f *fakeSummarizer) Ready() bool { return f.ready }

func (f *fakeSummarizer) Summarize(_ context.Context, text string) (string, error) {
	f.got = text
	return "A short summary.", nil
}

func TestSummarizeHandler(t *testing.T) {
	ctx := context.Background()
	sum := &fakeSummarizer{ready: true}
	h := &Summarize{
		Summarizer: sum,
		Parse: func(_ context.Context, source string) (string, error) {
			switch source {
			case "notes.txt":
				return "The exam covers chapters one through five of the course book.", nil
			case "slides.pdf":
				return "", docparse.ErrUnsupported
			case "broken.html":
				return "", errors.New("read failure")
			}
			return "", docparse.ErrNotFound
		},
	}

	out, err := h.Handle(ctx, req("summarize document: notes.txt", nil))
	require.NoError(t, err)
	assert.Equal(t, "📄 Summary:\nA short summary.", out)
	assert.Contains(t, sum.got, "chapters one through five")

	out, err = h.Handle(ctx, req("summarize 'missing.txt'", nil))
	require.NoError(t, err)
	assert.Equal(t, "File not found: missing.txt", out)

	out, err = h.Handle(ctx, req("summarize", nil))
	require.NoError(t, err)
	assert.Equal(t, SummarizeNoPath, out)

	out, err = h.Handle(ctx, req("summarize file slides.pdf", nil))
	require.NoError(t, err)
	assert.Contains(t, out, "can't read that kind of document")

	_, err = h.Handle(ctx, req("summarize broken.html", nil))
	assert.Error(t, err)

	h.KeyPoints = 2
	out, err = h.Handle(ctx, req("summarize notes.txt", nil))
	require.NoError(t, err)
	assert.Contains(t, out, "Key points:\n• The exam covers chapters one through five of the course book")

	sum.ready = false
	out, err = h.Handle(ctx, req("summarize notes.txt", nil))
	require.NoError(t, err)
	assert.Equal(t, SummarizeUnavailable, out)
}

func TestVideoHandler(t *testing.T) {
	ctx := context.Background()

	headless := &Video{Headless: true}
	out, err := headless.Handle(ctx, req("search youtube for go tutorials", domain.EntityMap{domain.EntityQuery: "go tutorials"}))
	require.NoError(t, err)
	assert.Equal(t, "🎥 YouTube search link: https://www.youtube.com/results?search_query=go+tutorials", out)

	out, err = headless.Handle(ctx, req("open youtube", domain.EntityMap{domain.EntityQuery: "youtube"}))
	require.NoError(t, err)
	assert.Equal(t, "🎥 YouTube link: https://www.youtube.com", out)

	var opened string
	desktop := &Video{Open: func(u string) error { opened = u; return nil }}
	out, err = desktop.Handle(ctx, req("play lofi", domain.EntityMap{domain.EntityQuery: "lofi"}))
	require.NoError(t, err)
	assert.Equal(t, "🎥 Opening YouTube search for: lofi", out)
	assert.Equal(t, "https://www.youtube.com/results?search_query=lofi", opened)

	noBrowser := &Video{Open: func(string) error { return errors.New("no display") }}
	out, err = noBrowser.Handle(ctx, req("watch", nil))
	require.NoError(t, err)
	assert.Equal(t, "🎥 YouTube link: https://www.youtube.com", out)
}

func TestJokeHandler(t *testing.T) {
	out, err := Joke{Pick: func(int) int { return 3 }}.Handle(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, Jokes[3], out)

	out, err = Joke{}.Handle(context.Background(), Request{})
	require.NoError(t, err)
	assert.Contains(t, Jokes, out)
	assert.Len(t, Jokes, 10)
}

type scriptedGen struct {
	replies []string
	windows [][]string
	err     error
}

func (g *scriptedGen) Generate(_ context.Context, window []string) (string, error) {
	g.windows = append(g.windows, window)
	if g.err != nil {
		return "", g.err
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r, nil
}

func TestConversationHandler(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGen{replies: []string{"Hi there!", "  ", "Sure."}}
	h := &Conversation{Generator: gen}
	sess := session.New("u1", 5)

	out, err := h.Handle(ctx, Request{Text: "hello", Session: sess})
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", out)

	out, err = h.Handle(ctx, Request{Text: "hmm", Session: sess})
	require.NoError(t, err)
	assert.Equal(t, NoReply, out)

	out, err = h.Handle(ctx, Request{Text: "can you help", Session: sess})
	require.NoError(t, err)
	assert.Equal(t, "Sure.", out)
	assert.Equal(t, []string{"hello", "Hi there!", "can you help"}, gen.windows[2])

	gen.err = errors.New("backend down")
	_, err = h.Handle(ctx, Request{Text: "still there?", Session: sess})
	assert.Error(t, err)
}
