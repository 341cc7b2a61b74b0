package handlers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pbaille/campusecho/internal/calc"
	"github.com/pbaille/campusecho/internal/docparse"
	"github.com/pbaille/campusecho/internal/domain"
	"github.com/pbaille/campusecho/internal/summarize"
	"github.com/pbaille/campusecho/internal/weather"
)

// WeatherSource looks up current conditions.
type WeatherSource interface {
	Current(ctx context.Context, city string) (*weather.Report, error)
}

// Weather reports current conditions for the requested or default city.
type Weather struct {
	Source      WeatherSource
	DefaultCity string
}

// Handle implements Handler. Lookup failures are errors so that the
// dispatcher does not cache them.
func (h *Weather) Handle(ctx context.Context, req Request) (string, error) {
	city, ok := req.Entities.Get(domain.EntityCity)
	if !ok {
		city = h.DefaultCity
	}
	if city == "" {
		city = "London"
	}

	r, err := h.Source.Current(ctx, city)
	if err != nil {
		return "", fmt.Errorf("weather for %s: %w", city, err)
	}
	return r.Format(), nil
}

// CalculateFailed is the reply for input that is not valid arithmetic.
const CalculateFailed = "I couldn't calculate that. Please check your expression."

// Calculate evaluates arithmetic.
type Calculate struct{}

// Handle implements Handler.
func (Calculate) Handle(_ context.Context, req Request) (string, error) {
	expression, ok := req.Entities.Get(domain.EntityExpression)
	if !ok {
		expression = req.Text
	}

	v, err := calc.Evaluate(expression)
	if err != nil {
		return CalculateFailed, nil
	}
	return "📊 Result: " + calc.Format(v), nil
}

// Replies for the summarize handler.
const (
	SummarizeUnavailable = "Summarization feature is unavailable at the moment."
	SummarizeNoPath      = "Please specify a document path to summarize."
)

var summarizeTarget = regexp.MustCompile(`(?i)summari[sz]e\s+(?:(?:the\s+)?(?:document|file|page|url)\s*)?:?\s*(.+)`)

// Summarizer condenses text.
type Summarizer interface {
	Ready() bool
	Summarize(ctx context.Context, text string) (string, error)
}

// Summarize extracts a document's text and summarizes it.
type Summarize struct {
	Summarizer Summarizer
	Parse      func(ctx context.Context, source string) (string, error)
	KeyPoints  int
}

// Handle implements Handler.
func (h *Summarize) Handle(ctx context.Context, req Request) (string, error) {
	if h.Summarizer == nil || !h.Summarizer.Ready() {
		return SummarizeUnavailable, nil
	}

	m := summarizeTarget.FindStringSubmatch(strings.TrimSpace(req.Text))
	if m == nil {
		return SummarizeNoPath, nil
	}
	source := strings.Trim(strings.TrimSpace(m[1]), `"'`)

	parse := h.Parse
	if parse == nil {
		parse = docparse.Parse
	}

	text, err := parse(ctx, source)
	switch {
	case errors.Is(err, docparse.ErrNotFound):
		return "File not found: " + source, nil
	case errors.Is(err, docparse.ErrUnsupported):
		return "I can't read that kind of document yet. Try a .txt, .md, .html or .docx file.", nil
	case errors.Is(err, docparse.ErrEmpty):
		return "Failed to extract text from document.", nil
	case err != nil:
		return "", fmt.Errorf("parse %s: %w", source, err)
	}

	summary, err := h.Summarizer.Summarize(ctx, text)
	if err != nil {
		return "", fmt.Errorf("summarize %s: %w", source, err)
	}
	if summary == summarize.TooShort {
		return summary, nil
	}

	var sb strings.Builder
	sb.WriteString("📄 Summary:\n")
	sb.WriteString(summary)
	if h.KeyPoints > 0 {
		if points := summarize.KeyPoints(text, h.KeyPoints); len(points) > 0 {
			sb.WriteString("\n\nKey points:")
			for _, p := range points {
				sb.WriteString("\n• ")
				sb.WriteString(p)
			}
		}
	}
	return sb.String(), nil
}
