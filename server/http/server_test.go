package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/ragchat"
	"github.com/w-h-a/ragchat/calendar"
	localcalendar "github.com/w-h-a/ragchat/calendar/local"
	"github.com/w-h-a/ragchat/chatstore"
	memorychatstore "github.com/w-h-a/ragchat/chatstore/memory"
	"github.com/w-h-a/ragchat/docstore"
	"github.com/w-h-a/ragchat/document"
	localembedder "github.com/w-h-a/ragchat/embedder/local"
	"github.com/w-h-a/ragchat/generator"
	"github.com/w-h-a/ragchat/memory"
	"github.com/w-h-a/ragchat/moderator"
	"github.com/w-h-a/ragchat/provider"
	"github.com/w-h-a/ragchat/retriever"
)

type stubGenerator struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func (g *stubGenerator) ListModels(ctx context.Context) (map[string]generator.Model, error) {
	return map[string]generator.Model{
		"gpt-4o": {Id: "gpt-4o", Name: "GPT-4o"},
	}, nil
}

func (g *stubGenerator) ValidateKey(ctx context.Context) (bool, error) {
	return true, nil
}

type nilCrawler struct{}

func (c *nilCrawler) Crawl(ctx context.Context, baseURL string) ([]document.Chunk, error) {
	return nil, nil
}

func newTestServer(t *testing.T, gen *stubGenerator, chats chatstore.Store) *Server {
	t.Helper()

	original := resolve
	resolve = func(providerId string, modelId string, apiKey string) (generator.Generator, error) {
		return gen, nil
	}
	t.Cleanup(func() { resolve = original })

	e := localembedder.NewEmbedder()
	store := docstore.NewStore(e)
	r := retriever.NewRetriever(store, e, &nilCrawler{})

	engine := ragchat.New(store, memory.NewStore(), r, ragchat.WithResolver(
		func(providerId string, modelId string, apiKey string) (generator.Generator, error) {
			return gen, nil
		},
	))

	return NewServer(
		engine,
		moderator.NewModerator(),
		chats,
		calendar.NewScheduler(localcalendar.NewClient()),
		e,
	)
}

func do(t *testing.T, s *Server, method string, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &stubGenerator{}, memorychatstore.NewStore())

	rec := do(t, s, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, float64(0), out["documents_loaded"])
}

func TestChat(t *testing.T) {
	gen := &stubGenerator{response: "<think>x</think>The notice period is **thirty** days."}
	s := newTestServer(t, gen, memorychatstore.NewStore())

	rec := do(t, s, http.MethodPost, "/api/chat", map[string]any{
		"question": "What is the notice period?",
		"provider": "openai",
		"model":    "gpt-4o",
		"api_key":  "key",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "The notice period is thirty days.", out["answer"])
	assert.Equal(t, "openai", out["provider_used"])
	assert.Equal(t, "general", out["source_type"])
}

func TestChatMissingQuestion(t *testing.T) {
	s := newTestServer(t, &stubGenerator{}, memorychatstore.NewStore())

	rec := do(t, s, http.MethodPost, "/api/chat", map[string]any{
		"provider": "openai",
		"api_key":  "key",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatUnknownProvider(t *testing.T) {
	s := newTestServer(t, &stubGenerator{}, memorychatstore.NewStore())

	// real resolution so the unknown provider id is rejected
	resolve = provider.Resolve

	rec := do(t, s, http.MethodPost, "/api/chat", map[string]any{
		"question": "q",
		"provider": "nope",
		"api_key":  "key",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatModerationGate(t *testing.T) {
	gen := &stubGenerator{response: "Let's keep it respectful."}
	s := newTestServer(t, gen, memorychatstore.NewStore())

	rec := do(t, s, http.MethodPost, "/api/chat", map[string]any{
		"question": "you are a worthless assistant",
		"provider": "openai",
		"api_key":  "key",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "system", out["provider_used"])
	assert.Equal(t, "content-moderator", out["model_used"])
	assert.NotEmpty(t, out["answer"])
}

func TestChatDuplicateSuppression(t *testing.T) {
	gen := &stubGenerator{response: "Answer."}
	s := newTestServer(t, gen, memorychatstore.NewStore())

	body := map[string]any{
		"question":   "same question",
		"provider":   "openai",
		"api_key":    "key",
		"session_id": "s1",
	}

	first := do(t, s, http.MethodPost, "/api/chat", body)
	second := do(t, s, http.MethodPost, "/api/chat", body)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, decode(t, first)["answer"], decode(t, second)["answer"])

	// the second request was served from cache, not generated again
	assert.Equal(t, 1, gen.calls)
	assert.Len(t, s.engine.Memory().Exchanges("s1"), 1)
}

func TestChatCacheScopedToUser(t *testing.T) {
	gen := &stubGenerator{response: "Answer."}
	s := newTestServer(t, gen, memorychatstore.NewStore())

	ask := func(userId string) *httptest.ResponseRecorder {
		return do(t, s, http.MethodPost, "/api/chat", map[string]any{
			"question":   "same question",
			"provider":   "openai",
			"api_key":    "key",
			"session_id": "s1",
			"user_id":    userId,
		})
	}

	require.Equal(t, http.StatusOK, ask("alice").Code)
	require.Equal(t, http.StatusOK, ask("bob").Code)

	// identical questions from different users are never served from each
	// other's cache entry
	assert.Equal(t, 2, gen.calls)
}

func TestChatCrossSessionRecall(t *testing.T) {
	gen := &stubGenerator{response: "Nice to meet you."}
	s := newTestServer(t, gen, memorychatstore.NewStore())

	rec := do(t, s, http.MethodPost, "/api/chat", map[string]any{
		"question":   "my name is Pat",
		"provider":   "openai",
		"api_key":    "key",
		"session_id": "s1",
		"user_id":    "u1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/chat", map[string]any{
		"question":   "what is my name?",
		"provider":   "openai",
		"api_key":    "key",
		"session_id": "s2",
		"user_id":    "u1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// the second session's prompt carries durable history from the first
	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[1], "LONG-TERM CONTEXT (from previous sessions):")
	assert.Contains(t, gen.prompts[1], "my name is Pat")
}

func TestChatPersistsTurns(t *testing.T) {
	gen := &stubGenerator{response: "Answer."}
	chats := memorychatstore.NewStore()
	s := newTestServer(t, gen, chats)

	rec := do(t, s, http.MethodPost, "/api/chat", map[string]any{
		"question":   "hello",
		"provider":   "openai",
		"api_key":    "key",
		"session_id": "s1",
		"user_id":    "u1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	sessions, err := chats.Sessions(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	records, err := chats.Messages(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "user", records[0].Role)
	assert.Equal(t, "assistant", records[1].Role)

	// both turns were stored with embeddings and are reachable by search
	vec, err := localembedder.NewEmbedder().Embed(context.Background(), "hello")
	require.NoError(t, err)
	related, err := chats.SearchMessages(context.Background(), "u1", vec, 2)
	require.NoError(t, err)
	assert.Len(t, related, 2)
}

func TestMessagesAndSessionDelete(t *testing.T) {
	gen := &stubGenerator{response: "Answer."}
	chats := memorychatstore.NewStore()
	s := newTestServer(t, gen, chats)

	rec := do(t, s, http.MethodPost, "/api/chat", map[string]any{
		"question":   "hello",
		"provider":   "openai",
		"api_key":    "key",
		"session_id": "s1",
		"user_id":    "u1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/messages/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "s1", out["session_id"])
	assert.Equal(t, float64(2), out["count"])
	assert.Len(t, out["messages"], 2)

	rec = do(t, s, http.MethodDelete, "/api/sessions/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["deleted"])

	rec = do(t, s, http.MethodGet, "/api/messages/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["count"])

	sessions, err := chats.Sessions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestChatGenerationFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("429 rate limit exceeded")}
	s := newTestServer(t, gen, memorychatstore.NewStore())

	body := map[string]any{
		"question": "q",
		"provider": "openai",
		"model":    "gpt-4o",
		"api_key":  "key",
	}

	rec := do(t, s, http.MethodPost, "/api/chat", body)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// the failure put the triple on cooldown
	rec = do(t, s, http.MethodPost, "/api/chat", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestIngestAndDocumentLifecycle(t *testing.T) {
	s := newTestServer(t, &stubGenerator{response: "x"}, memorychatstore.NewStore())

	chunks := []map[string]any{
		{"content": "Either party may terminate with thirty days notice.", "metadata": map[string]any{"filename": "contract.pdf", "source_type": "document"}},
	}

	rec := do(t, s, http.MethodPost, "/api/ingest", map[string]any{"chunks": chunks})
	require.Equal(t, http.StatusOK, rec.Code)

	documentId := decode(t, rec)["document_id"].(string)
	require.NotEmpty(t, documentId)

	rec = do(t, s, http.MethodGet, "/api/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, float64(1), out["count"])

	rec = do(t, s, http.MethodDelete, "/api/documents/"+documentId, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/documents/"+documentId, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngestWithoutChunks(t *testing.T) {
	s := newTestServer(t, &stubGenerator{}, memorychatstore.NewStore())

	rec := do(t, s, http.MethodPost, "/api/ingest", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMemoryEndpoints(t *testing.T) {
	gen := &stubGenerator{response: "Remembered."}
	s := newTestServer(t, gen, memorychatstore.NewStore())

	rec := do(t, s, http.MethodPost, "/api/chat", map[string]any{
		"question":   "remember me",
		"provider":   "openai",
		"api_key":    "key",
		"session_id": "s1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/memory/history/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec)["history"], "User: remember me")

	rec = do(t, s, http.MethodGet, "/api/memory/summary/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["message_count"])

	rec = do(t, s, http.MethodPost, "/api/memory/export/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["messages"], 2)

	rec = do(t, s, http.MethodDelete, "/api/memory/clear/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["cleared"])

	rec = do(t, s, http.MethodDelete, "/api/memory/clear-all", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestModels(t *testing.T) {
	gen := &stubGenerator{}
	s := newTestServer(t, gen, memorychatstore.NewStore())

	rec := do(t, s, http.MethodPost, "/api/models", map[string]any{
		"provider": "openai",
		"api_key":  "key",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, float64(1), out["count"])
}

func TestSchedule(t *testing.T) {
	s := newTestServer(t, &stubGenerator{}, memorychatstore.NewStore())

	rec := do(t, s, http.MethodPost, "/api/calendar/schedule", map[string]any{
		"message": "schedule a meeting tomorrow from 3 to 4 pm",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, true, out["success"])
}

func TestScheduleMissingMessage(t *testing.T) {
	s := newTestServer(t, &stubGenerator{}, memorychatstore.NewStore())

	rec := do(t, s, http.MethodPost, "/api/calendar/schedule", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessions(t *testing.T) {
	chats := memorychatstore.NewStore()
	require.NoError(t, chats.SaveSession(context.Background(), "u1", "s1"))

	s := newTestServer(t, &stubGenerator{}, chats)

	rec := do(t, s, http.MethodGet, "/api/sessions/u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "u1", out["user_id"])
	assert.Len(t, out["sessions"], 1)
}
