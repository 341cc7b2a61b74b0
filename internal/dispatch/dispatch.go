// Package dispatch ties classification, entity extraction, the response
// cache, the intent handlers and conversation history together. A request
// that reaches Handle always completes with a reply: handler errors become
// a fixed fallback sentence.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pbaille/campusecho/internal/cache"
	"github.com/pbaille/campusecho/internal/domain"
	"github.com/pbaille/campusecho/internal/handlers"
	"github.com/pbaille/campusecho/internal/intent"
	"github.com/pbaille/campusecho/internal/metrics"
	"github.com/pbaille/campusecho/internal/session"
)

const (
	// Fallback is the reply for any request whose handler failed.
	Fallback = "I encountered an error processing your request. Could you try rephrasing?"

	// DefaultResponseTTL is how long cacheable replies are kept.
	DefaultResponseTTL = time.Hour

	// DefaultHandlerTimeout bounds a single handler call.
	DefaultHandlerTimeout = 30 * time.Second
)

// Classifier decides the intent of an utterance.
type Classifier interface {
	Decide(ctx context.Context, text string) intent.Decision
}

// HistoryStore records processed utterances.
type HistoryStore interface {
	AddConversation(ctx context.Context, turn domain.ConversationTurn) error
}

// Handlers binds one handler to every intent. New rejects a table with a
// missing entry.
type Handlers struct {
	Schedule     handlers.Handler
	Deadline     handlers.Handler
	Task         handlers.Handler
	Weather      handlers.Handler
	Calculate    handlers.Handler
	Summarize    handlers.Handler
	VideoSearch  handlers.Handler
	Joke         handlers.Handler
	Conversation handlers.Handler
}

// For returns the handler bound to in.
func (h *Handlers) For(in domain.Intent) handlers.Handler {
	switch in {
	case domain.IntentSchedule:
		return h.Schedule
	case domain.IntentDeadline:
		return h.Deadline
	case domain.IntentTask:
		return h.Task
	case domain.IntentWeather:
		return h.Weather
	case domain.IntentCalculate:
		return h.Calculate
	case domain.IntentSummarize:
		return h.Summarize
	case domain.IntentVideoSearch:
		return h.VideoSearch
	case domain.IntentJoke:
		return h.Joke
	case domain.IntentConversation:
		return h.Conversation
	default:
		return nil
	}
}

func (h *Handlers) validate() error {
	var missing []string
	for _, in := range domain.AllIntents() {
		if h.For(in) == nil {
			missing = append(missing, in.String())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("no handler for intents: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Config holds the Dispatcher's collaborators.
type Config struct {
	Classifier     Classifier
	Handlers       Handlers
	Cache          cache.Store  // nil uses an in-memory cache
	History        HistoryStore // nil disables history recording
	ResponseTTL    time.Duration
	HandlerTimeout time.Duration
	Logger         zerolog.Logger
}

// Result is the outcome of one processed utterance.
type Result struct {
	Response string           `json:"response"`
	Intent   domain.Intent    `json:"intent"`
	Entities domain.EntityMap `json:"entities,omitempty"`
	Cached   bool             `json:"cached"`
	// Code is the failure code when the handler failed, empty otherwise.
	Code Code `json:"code,omitempty"`
}

// Dispatcher routes utterances to handlers. It is safe for concurrent use;
// per-conversation state lives in the session passed to Handle.
type Dispatcher struct {
	classifier Classifier
	handlers   Handlers
	cache      cache.Store
	history    HistoryStore
	ttl        time.Duration
	timeout    time.Duration
	log        zerolog.Logger
}

// New validates cfg and builds a Dispatcher.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Classifier == nil {
		return nil, errors.New("dispatch: classifier is required")
	}
	if err := cfg.Handlers.validate(); err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	d := &Dispatcher{
		classifier: cfg.Classifier,
		handlers:   cfg.Handlers,
		cache:      cfg.Cache,
		history:    cfg.History,
		ttl:        cfg.ResponseTTL,
		timeout:    cfg.HandlerTimeout,
		log:        cfg.Logger.With().Str("component", "dispatch").Logger(),
	}
	if d.cache == nil {
		d.cache = cache.NewMemory()
	}
	if d.ttl <= 0 {
		d.ttl = DefaultResponseTTL
	}
	if d.timeout <= 0 {
		d.timeout = DefaultHandlerTimeout
	}
	return d, nil
}

// Handle processes one utterance. It returns false, with no side effects,
// when text is blank.
func (d *Dispatcher) Handle(ctx context.Context, sess *session.Session, text string) (Result, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, false
	}

	dec := d.classifier.Decide(ctx, text)
	res := Result{
		Intent:   dec.Intent,
		Entities: intent.Extract(text, dec.Intent),
	}
	metrics.Queries.WithLabelValues(dec.Intent.String()).Inc()
	metrics.ClassificationStage.WithLabelValues(string(dec.Stage)).Inc()

	log := d.log.With().
		Str("intent", dec.Intent.String()).
		Str("stage", string(dec.Stage)).
		Logger()
	if sess != nil {
		log = log.With().Str("session", sess.ID).Logger()
	}

	cacheable := dec.Intent.Cacheable()
	if cacheable {
		if v, ok := d.lookup(ctx, log, text); ok {
			res.Response = v
			res.Cached = true
		}
	} else {
		metrics.CacheLookups.WithLabelValues("bypass").Inc()
	}

	if !res.Cached {
		resp, err := d.invoke(ctx, dec.Intent, handlers.Request{
			Text:     text,
			Entities: res.Entities,
			Session:  sess,
		})
		if err != nil {
			res.Code = codeOf(err)
			metrics.HandlerFailures.WithLabelValues(dec.Intent.String(), string(res.Code)).Inc()
			log.Error().Err(err).Str("code", string(res.Code)).Msg("handler failed")
			resp = Fallback
		} else if cacheable {
			if err := d.cache.Set(ctx, text, resp, d.ttl); err != nil {
				log.Warn().Err(err).Msg("cache write failed")
			}
		}
		res.Response = resp
	}

	d.record(ctx, log, sess, text, res)
	return res, true
}

func (d *Dispatcher) lookup(ctx context.Context, log zerolog.Logger, text string) (string, bool) {
	v, ok, err := d.cache.Get(ctx, text)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		log.Warn().Err(err).Msg("cache read failed")
		return "", false
	case ok:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		log.Debug().Msg("cache hit")
		return v, true
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return "", false
	}
}

func (d *Dispatcher) invoke(ctx context.Context, in domain.Intent, req handlers.Request) (resp string, err error) {
	h := d.handlers.For(in)
	if h == nil {
		return "", fmt.Errorf("no handler for intent %s", in)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.HandlerDuration.WithLabelValues(in.String()).Observe(time.Since(start).Seconds())
	}()

	// A panicking handler fails only its own request.
	defer func() {
		if v := recover(); v != nil {
			d.log.Error().
				Str("intent", in.String()).
				Interface("panic", v).
				Str("stack", string(debug.Stack())).
				Msg("handler panicked")
			resp, err = "", &panicError{value: v}
		}
	}()

	return h.Handle(ctx, req)
}

func (d *Dispatcher) record(ctx context.Context, log zerolog.Logger, sess *session.Session, text string, res Result) {
	if d.history == nil {
		return
	}

	turn := domain.ConversationTurn{
		UserInput:         text,
		AssistantResponse: res.Response,
		Intent:            res.Intent.String(),
		Timestamp:         time.Now(),
	}
	if sess != nil {
		turn.SessionID = sess.ID
	}

	// Recording outlives a cancelled request context.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := d.history.AddConversation(ctx, turn); err != nil {
		log.Warn().Err(err).Msg("history write failed")
	}
}
