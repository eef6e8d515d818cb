package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Exchange is one completed conversational turn.
type Exchange struct {
	UserMessage      string `json:"user_message"`
	AssistantMessage string `json:"assistant_message"`
}

// Summary describes a session for inspection endpoints.
type Summary struct {
	SessionId    string `json:"session_id"`
	MessageCount int    `json:"message_count"`
	LastUpdated  string `json:"last_updated"`
	Preview      string `json:"preview"`
}

// Export is the JSON-serializable form of a session's history.
type Export struct {
	SessionId  string    `json:"session_id"`
	ExportedAt string    `json:"exported_at"`
	Messages   []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store keeps per-session short-term conversation history. Exchanges are
// append-only and chronological; a session is only ever emptied by an
// explicit clear.
type Store struct {
	sessions map[string][]Exchange
	mtx      sync.RWMutex
}

// Append records a (user, assistant) pair after a successful generation.
func (s *Store) Append(sessionId string, userMessage string, assistantMessage string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.sessions[sessionId] = append(s.sessions[sessionId], Exchange{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
	})
}

// History returns the session's exchanges formatted one line per message,
// oldest first. An unknown session yields an empty string.
func (s *Store) History(sessionId string) string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var sb strings.Builder
	for _, ex := range s.sessions[sessionId] {
		sb.WriteString(fmt.Sprintf("User: %s\n", ex.UserMessage))
		sb.WriteString(fmt.Sprintf("Assistant: %s\n", ex.AssistantMessage))
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

func (s *Store) Exchanges(sessionId string) []Exchange {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	exchanges := s.sessions[sessionId]

	cpy := make([]Exchange, len(exchanges))
	copy(cpy, exchanges)

	return cpy
}

// Clear drops a session's history. It reports whether the session existed.
func (s *Store) Clear(sessionId string) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.sessions[sessionId]; !ok {
		return false
	}

	delete(s.sessions, sessionId)

	return true
}

func (s *Store) ClearAll() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.sessions = map[string][]Exchange{}
}

func (s *Store) Summarize(sessionId string) Summary {
	history := s.History(sessionId)

	preview := history
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	if len(preview) == 0 {
		preview = "No messages yet"
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return Summary{
		SessionId:    sessionId,
		MessageCount: len(s.sessions[sessionId]) * 2,
		LastUpdated:  time.Now().UTC().Format(time.RFC3339),
		Preview:      preview,
	}
}

func (s *Store) ExportSession(sessionId string) Export {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	export := Export{
		SessionId:  sessionId,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Messages:   []Message{},
	}

	for _, ex := range s.sessions[sessionId] {
		export.Messages = append(export.Messages,
			Message{Role: "user", Content: ex.UserMessage},
			Message{Role: "assistant", Content: ex.AssistantMessage},
		)
	}

	return export
}

func NewStore() *Store {
	s := &Store{
		sessions: map[string][]Exchange{},
		mtx:      sync.RWMutex{},
	}

	return s
}
