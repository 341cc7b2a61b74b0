package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pbaille/campusecho/internal/domain"
)

// AddConversation appends one processed utterance to the history
func (s *Store) AddConversation(ctx context.Context, turn domain.ConversationTurn) error {
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO conversation_history (id, session_id, user_input, assistant_response, intent, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		turn.ID, turn.SessionID, turn.UserInput, turn.AssistantResponse, turn.Intent, turn.Timestamp,
	)
	if err != nil {
		return unavailable("insert conversation", err)
	}
	return nil
}

// RecentConversation returns the last limit turns, oldest first. An empty
// session id covers every session.
func (s *Store) RecentConversation(ctx context.Context, sessionID string, limit int) ([]domain.ConversationTurn, error) {
	if limit <= 0 {
		limit = 20
	}

	query := "SELECT id, session_id, user_input, assistant_response, intent, timestamp FROM conversation_history"
	var args []any
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY timestamp DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list conversation", err)
	}
	defer rows.Close()

	var turns []domain.ConversationTurn
	for rows.Next() {
		var t domain.ConversationTurn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserInput, &t.AssistantResponse, &t.Intent, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list conversation", err)
	}

	// Newest first from the query; flip to chronological
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// ClearConversation deletes the history of one session, or all history
// when sessionID is empty
func (s *Store) ClearConversation(ctx context.Context, sessionID string) error {
	var err error
	if sessionID == "" {
		_, err = s.db.ExecContext(ctx, "DELETE FROM conversation_history")
	} else {
		_, err = s.db.ExecContext(ctx, "DELETE FROM conversation_history WHERE session_id = ?", sessionID)
	}
	if err != nil {
		return unavailable("clear conversation", err)
	}
	return nil
}
