package handlers

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/url"
	"strings"

	"github.com/pkg/browser"

	"github.com/pbaille/campusecho/internal/domain"
	"github.com/pbaille/campusecho/internal/generation"
	"github.com/pbaille/campusecho/internal/session"
)

const (
	youtubeHome   = "https://www.youtube.com"
	youtubeSearch = "https://www.youtube.com/results?search_query="
)

// SearchURL returns the YouTube URL for query, or the homepage when the
// query is empty or just names the site.
func SearchURL(query string) string {
	q := strings.TrimSpace(query)
	if q == "" || strings.EqualFold(q, "youtube") {
		return youtubeHome
	}
	return youtubeSearch + url.QueryEscape(q)
}

// Video opens YouTube searches. In headless mode it only returns the link.
type Video struct {
	Headless bool
	Open     func(url string) error
}

// Handle implements Handler.
func (h *Video) Handle(_ context.Context, req Request) (string, error) {
	query, _ := req.Entities.Get(domain.EntityQuery)
	query = strings.TrimSpace(query)
	link := SearchURL(query)
	home := link == youtubeHome

	if !h.Headless {
		open := h.Open
		if open == nil {
			open = browser.OpenURL
		}
		if err := open(link); err == nil {
			if home {
				return "🎥 Opening YouTube...", nil
			}
			return "🎥 Opening YouTube search for: " + query, nil
		}
		// no browser available; hand the link back instead
	}

	if home {
		return "🎥 YouTube link: " + link, nil
	}
	return "🎥 YouTube search link: " + link, nil
}

// Jokes is the fixed joke list.
var Jokes = []string{
	"Why do programmers prefer dark mode? Because light attracts bugs!",
	"Why did the student eat their homework? Because the teacher said it was a piece of cake!",
	"What did the calculator say to the student? You can count on me!",
	"Why was the math book sad? It had too many problems.",
	"What's the best thing about Switzerland? The flag is a big plus!",
	"Why do Java developers wear glasses? Because they don't C#!",
	"How does a computer get drunk? It takes screenshots!",
	"Why did the PowerPoint presentation cross the road? To get to the other slide!",
	"What do you call a bear with no teeth? A gummy bear!",
	"Why don't scientists trust atoms? Because they make up everything!",
}

// Joke tells a random joke.
type Joke struct {
	// Pick returns an index in [0, n); nil picks at random.
	Pick func(n int) int
}

// Handle implements Handler.
func (h Joke) Handle(context.Context, Request) (string, error) {
	pick := h.Pick
	if pick == nil {
		pick = rand.IntN
	}
	return Jokes[pick(len(Jokes))], nil
}

// NoReply is returned when generation produces nothing.
const NoReply = "I'm not sure how to respond to that. Can you rephrase?"

var errEmptyReply = errors.New("empty reply")

// Conversation answers free-form chat through a Generator, keeping the
// session's history window.
type Conversation struct {
	Generator generation.Generator
}

// Handle implements Handler.
func (h *Conversation) Handle(ctx context.Context, req Request) (string, error) {
	sess := req.Session
	if sess == nil {
		sess = session.New("", session.DefaultPairs)
	}

	reply, err := sess.Exchange(ctx, req.Text, func(ctx context.Context, window []string) (string, error) {
		out, err := h.Generator.Generate(ctx, window)
		if err != nil {
			return "", err
		}
		if out = strings.TrimSpace(out); out == "" {
			return "", errEmptyReply
		}
		return out, nil
	})
	if errors.Is(err, errEmptyReply) {
		return NoReply, nil
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}
