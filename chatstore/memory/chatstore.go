package memory

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/ragchat/chatstore"
	"github.com/w-h-a/ragchat/index"
)

var namePattern = regexp.MustCompile(`(?i)\bmy name is\s+([A-Za-z][A-Za-z'-]*)`)

type storedMessage struct {
	record    chatstore.Record
	userId    string
	embedding []float32
}

// memoryStore is the non-durable chat store used when no database is
// configured.
type memoryStore struct {
	options  chatstore.Options
	sessions map[string]chatstore.Session
	messages []storedMessage
	mtx      sync.RWMutex
}

func (s *memoryStore) SaveSession(ctx context.Context, userId string, sessionId string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.sessions[sessionId]; ok {
		return nil
	}

	s.sessions[sessionId] = chatstore.Session{
		SessionId: sessionId,
		UserId:    userId,
		CreatedAt: time.Now().UTC(),
	}

	return nil
}

func (s *memoryStore) SaveMessage(ctx context.Context, userId string, sessionId string, role string, content string, vector []float32) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	cpy := make([]float32, len(vector))
	copy(cpy, vector)

	s.messages = append(s.messages, storedMessage{
		record: chatstore.Record{
			Id:        uuid.New().String(),
			SessionId: sessionId,
			Role:      role,
			Content:   content,
			CreatedAt: time.Now().UTC(),
		},
		userId:    userId,
		embedding: cpy,
	})

	return nil
}

func (s *memoryStore) Sessions(ctx context.Context, userId string) ([]chatstore.Session, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var sessions []chatstore.Session
	for _, session := range s.sessions {
		if session.UserId == userId {
			sessions = append(sessions, session)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	return sessions, nil
}

func (s *memoryStore) Messages(ctx context.Context, sessionId string) ([]chatstore.Record, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var records []chatstore.Record
	for _, msg := range s.messages {
		if msg.record.SessionId == sessionId {
			records = append(records, msg.record)
		}
	}

	return records, nil
}

func (s *memoryStore) DeleteSession(ctx context.Context, sessionId string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.sessions, sessionId)

	kept := s.messages[:0]
	for _, msg := range s.messages {
		if msg.record.SessionId != sessionId {
			kept = append(kept, msg)
		}
	}
	s.messages = kept

	return nil
}

func (s *memoryStore) LastUserContext(ctx context.Context, userId string) (chatstore.UserContext, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var recent []chatstore.Record
	for _, msg := range s.messages {
		if msg.userId == userId && msg.record.Role == "user" {
			recent = append(recent, msg.record)
		}
	}

	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	uc := chatstore.UserContext{}

	var sb strings.Builder
	for _, rec := range recent {
		sb.WriteString("User: " + rec.Content + "\n")

		if m := namePattern.FindStringSubmatch(rec.Content); m != nil {
			uc.Name = m[1]
		}
	}

	uc.PreviousContext = strings.TrimSuffix(sb.String(), "\n")

	return uc, nil
}

func (s *memoryStore) SearchMessages(ctx context.Context, userId string, vector []float32, limit int) ([]chatstore.Record, error) {
	if limit < 1 {
		return nil, nil
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var records []chatstore.Record
	for _, msg := range s.messages {
		if msg.userId != userId {
			continue
		}
		rec := msg.record
		rec.Score = float32(index.CosineSimilarity(vector, msg.embedding))
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Score > records[j].Score
	})

	if len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

func NewStore(opts ...chatstore.Option) chatstore.Store {
	options := chatstore.NewOptions(opts...)

	s := &memoryStore{
		options:  options,
		sessions: map[string]chatstore.Session{},
		mtx:      sync.RWMutex{},
	}

	return s
}
