package chatstore

import (
	"context"
	"time"
)

// Record is one durable chat message.
type Record struct {
	Id        string    `json:"id"`
	SessionId string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Provider  string    `json:"provider,omitempty"`
	Model     string    `json:"model,omitempty"`
	Score     float32   `json:"score,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is a durable chat session header.
type Session struct {
	SessionId string    `json:"session_id"`
	UserId    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UserContext is the cross-session signal derived on demand from durable
// history: a formatted blob of the user's recent messages plus any facts
// worth carrying forward. It has no identity of its own.
type UserContext struct {
	PreviousContext string `json:"previous_context"`
	Name            string `json:"name,omitempty"`
}

// Store is the durable chat history the engine reads cross-session context
// from and the HTTP layer records completed turns into.
type Store interface {
	SaveSession(ctx context.Context, userId string, sessionId string) error
	SaveMessage(ctx context.Context, userId string, sessionId string, role string, content string, vector []float32) error
	Sessions(ctx context.Context, userId string) ([]Session, error)
	Messages(ctx context.Context, sessionId string) ([]Record, error)
	DeleteSession(ctx context.Context, sessionId string) error
	LastUserContext(ctx context.Context, userId string) (UserContext, error)
	SearchMessages(ctx context.Context, userId string, vector []float32, limit int) ([]Record, error)
}
