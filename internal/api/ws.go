package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// WSMessage is the frame exchanged on /ws.
type WSMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Intent  string `json:"intent,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chat runs a websocket chat loop. Each "message" frame is answered with a
// "message" frame carrying the reply and its intent; the session is chosen
// by the user_id query parameter.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	userID := r.URL.Query().Get("user_id")
	sess := s.session(userID)
	log := s.log.With().Str("session", sess.ID).Logger()

	// A blocked read ends when the server shuts down.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				log.Debug().Err(err).Msg("websocket read ended")
			}
			return
		}

		if msg.Type != "message" {
			continue
		}
		text := strings.TrimSpace(msg.Content)
		if text == "" {
			if err := conn.WriteJSON(WSMessage{Type: "error", Content: "empty message"}); err != nil {
				return
			}
			continue
		}

		res, _ := s.proc.Handle(ctx, sess, text)
		reply := WSMessage{Type: "message", Content: res.Response, Intent: res.Intent.String()}
		if err := conn.WriteJSON(reply); err != nil {
			log.Debug().Err(err).Msg("websocket write failed")
			return
		}
	}
}
