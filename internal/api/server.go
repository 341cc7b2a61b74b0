package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pbaille/campusecho/internal/dispatch"
	"github.com/pbaille/campusecho/internal/session"
)

// DefaultUser keys the session of requests that carry no user id.
const DefaultUser = "default"

// Processor handles one utterance. *dispatch.Dispatcher implements it.
type Processor interface {
	Handle(ctx context.Context, sess *session.Session, text string) (dispatch.Result, bool)
}

// Server exposes the assistant over HTTP
type Server struct {
	proc     Processor
	sessions *session.Manager
	addr     string
	log      zerolog.Logger
}

// New creates a new API server
func New(p Processor, sessions *session.Manager, addr string, log zerolog.Logger) *Server {
	if sessions == nil {
		sessions = session.NewManager(session.DefaultPairs)
	}
	return &Server{
		proc:     p,
		sessions: sessions,
		addr:     addr,
		log:      log.With().Str("component", "api").Logger(),
	}
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /query", s.query)
	mux.HandleFunc("GET /ws", s.chat)
	mux.Handle("GET /metrics", metricsHandler())
	mux.HandleFunc("/", s.notFound)

	return withCORS(withMetrics(s.withRecover(mux)))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts, websocket loops included, end with ctx.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("server listening")
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info().Msg("server stopped")
	return nil
}

// withCORS adds CORS headers to every response
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			writeJSON(w, http.StatusOK, envelope{Success: true})
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) withRecover(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				stack := string(debug.Stack())
				s.log.Error().Interface("panic", v).Str("path", r.URL.Path).Msg("request panicked")
				writeJSON(w, http.StatusInternalServerError, envelope{
					Message: fmt.Sprint(v),
					Stack:   stack,
				})
			}
		}()
		h.ServeHTTP(w, r)
	})
}

// envelope is the response shape of every JSON endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "CampusEcho service is running"})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

// QueryRequest is the body of POST /query. UserID may be any JSON value.
type QueryRequest struct {
	Query  json.RawMessage `json:"query"`
	UserID json.RawMessage `json:"userId"`
}

// QueryResponse is the data of a successful POST /query.
type QueryResponse struct {
	Response string          `json:"response"`
	Intent   string          `json:"intent"`
	UserID   json.RawMessage `json:"userId"`
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	text := strings.TrimSpace(stringify(req.Query))
	if text == "" {
		writeError(w, http.StatusBadRequest, "'query' is required")
		return
	}

	sess := s.session(stringify(req.UserID))
	res, _ := s.proc.Handle(r.Context(), sess, text)

	userID := req.UserID
	if len(userID) == 0 {
		userID = json.RawMessage("null")
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: QueryResponse{
			Response: res.Response,
			Intent:   res.Intent.String(),
			UserID:   userID,
		},
	})
}

func (s *Server) session(userID string) *session.Session {
	if userID == "" {
		userID = DefaultUser
	}
	sess := s.sessions.Get(userID)
	activeSessions(s.sessions.Len())
	return sess
}

// stringify renders a raw JSON value as text: strings lose their quotes,
// null and absent values become empty, anything else keeps its JSON form.
func stringify(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Message: message})
}
