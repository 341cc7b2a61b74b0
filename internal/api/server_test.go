package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/campusecho/internal/dispatch"
	"github.com/pbaille/campusecho/internal/domain"
	"github.com/pbaille/campusecho/internal/session"
)

type call struct {
	session string
	text    string
}

type fakeProcessor struct {
	mu    sync.Mutex
	calls []call
	panic bool
}

func (p *fakeProcessor) Handle(_ context.Context, sess *session.Session, text string) (dispatch.Result, bool) {
	if p.panic {
		panic("classifier exploded")
	}
	p.mu.Lock()
	p.calls = append(p.calls, call{session: sess.ID, text: text})
	p.mu.Unlock()

	if strings.Contains(text, "weather") {
		return dispatch.Result{Response: "sunny", Intent: domain.IntentWeather}, true
	}
	return dispatch.Result{Response: "echo: " + text, Intent: domain.IntentVideoSearch}, true
}

func (p *fakeProcessor) recorded() []call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]call(nil), p.calls...)
}

func newTestServer(p Processor) *Server {
	return New(p, session.NewManager(5), "127.0.0.1:0", zerolog.Nop())
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	h := newTestServer(&fakeProcessor{}).Handler()

	rec, body := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["message"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOptionsPreflight(t *testing.T) {
	h := newTestServer(&fakeProcessor{}).Handler()

	rec, body := do(t, h, http.MethodOptions, "/query", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestQuery(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantSession string
		wantUserID  any
	}{
		{"string user", `{"query":"weather in London","userId":"u-1"}`, "u-1", "u-1"},
		{"numeric user", `{"query":"weather in London","userId":42}`, "42", float64(42)},
		{"no user", `{"query":"weather in London"}`, DefaultUser, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProcessor{}
			h := newTestServer(p).Handler()

			rec, body := do(t, h, http.MethodPost, "/query", tt.body)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, true, body["success"])

			data := body["data"].(map[string]any)
			assert.Equal(t, "sunny", data["response"])
			assert.Equal(t, "weather", data["intent"])
			assert.Equal(t, tt.wantUserID, data["userId"])
			assert.Contains(t, data, "userId")

			calls := p.recorded()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.wantSession, calls[0].session)
			assert.Equal(t, "weather in London", calls[0].text)
		})
	}
}

func TestQueryIntentIsRawCategory(t *testing.T) {
	h := newTestServer(&fakeProcessor{}).Handler()

	_, body := do(t, h, http.MethodPost, "/query", `{"query":"open youtube"}`)
	data := body["data"].(map[string]any)
	assert.Equal(t, "video_search", data["intent"])
}

func TestQueryBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"query":`},
		{"empty body", ``},
		{"missing query", `{"userId":"u"}`},
		{"blank query", `{"query":"   "}`},
		{"null query", `{"query":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProcessor{}
			h := newTestServer(p).Handler()

			rec, body := do(t, h, http.MethodPost, "/query", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["message"])
			assert.Empty(t, p.recorded())
		})
	}
}

func TestPanicBecomes500(t *testing.T) {
	h := newTestServer(&fakeProcessor{panic: true}).Handler()

	rec, body := do(t, h, http.MethodPost, "/query", `{"query":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "classifier exploded", body["message"])
	assert.Contains(t, body["stack"], "goroutine")
}

func TestNotFound(t *testing.T) {
	h := newTestServer(&fakeProcessor{}).Handler()

	rec, body := do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(&fakeProcessor{}).Handler()
	do(t, h, http.MethodGet, "/health", "")

	rec, _ := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "campusecho_http_requests_total")
}

func TestSessionsAreKeptPerUser(t *testing.T) {
	srv := newTestServer(&fakeProcessor{})
	h := srv.Handler()

	do(t, h, http.MethodPost, "/query", `{"query":"hi","userId":"a"}`)
	do(t, h, http.MethodPost, "/query", `{"query":"hi","userId":"b"}`)
	do(t, h, http.MethodPost, "/query", `{"query":"hi again","userId":"a"}`)
	assert.Equal(t, 2, srv.sessions.Len())
}

func TestWebsocketChat(t *testing.T) {
	p := &fakeProcessor{}
	ts := httptest.NewServer(newTestServer(p).Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?user_id=alice"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "message", Content: "open youtube"}))
	var reply WSMessage
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, WSMessage{Type: "message", Content: "echo: open youtube", Intent: "video_search"}, reply)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "message", Content: "  "}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)

	calls := p.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "alice", calls[0].session)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := newTestServer(&fakeProcessor{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
