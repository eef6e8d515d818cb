package ragchat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/w-h-a/ragchat/docstore"
	"github.com/w-h-a/ragchat/document"
	"github.com/w-h-a/ragchat/memory"
	"github.com/w-h-a/ragchat/prompt"
	"github.com/w-h-a/ragchat/provider"
	"github.com/w-h-a/ragchat/retriever"
	"github.com/w-h-a/ragchat/sanitizer"
)

// AskRequest is one question plus everything needed to ground and route it.
type AskRequest struct {
	Question            string        `json:"question"`
	Provider            string        `json:"provider"`
	Model               string        `json:"model"`
	ApiKey              string        `json:"api_key"`
	DocumentIds         []string      `json:"document_ids,omitempty"`
	URL                 string        `json:"url,omitempty"`
	SessionId           string        `json:"session_id,omitempty"`
	ConversationHistory []prompt.Turn `json:"conversation_history,omitempty"`
	UserContext         *UserContext  `json:"user_context,omitempty"`
}

// UserContext is the cross-session long-term context computed by durable
// storage, passed through as an opaque formatted blob.
type UserContext struct {
	PreviousContext string `json:"previous_context"`
}

type AskResponse struct {
	Answer         string                   `json:"answer"`
	Sources        []document.Source        `json:"sources"`
	Provider       string                   `json:"provider"`
	Model          string                   `json:"model"`
	Classification retriever.Classification `json:"source_type"`
}

// Engine composes retrieval, prompt assembly, generation, and sanitation
// into the single Ask operation. It is safe for concurrent use; only
// per-document mutation takes an exclusive lock.
type Engine struct {
	options   Options
	store     *docstore.Store
	memory    *memory.Store
	retriever *retriever.Retriever
}

// Ask answers one question. Any fatal step failure propagates without
// partial results: the caller gets either a full answer or an error.
func (e *Engine) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	if len(strings.TrimSpace(req.Question)) == 0 {
		return nil, &provider.ConfigError{Reason: "question is required"}
	}

	gen, err := e.options.Resolver(req.Provider, req.Model, req.ApiKey)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "processing question",
		"provider", req.Provider,
		"model", req.Model,
		"documents", len(req.DocumentIds),
		"url", req.URL,
	)

	// 1. Multi-source retrieval; degraded sources are logged, not fatal
	result := e.retriever.Retrieve(ctx, req.Question, req.DocumentIds, req.URL)

	for _, failure := range result.Failures {
		slog.WarnContext(ctx, "retrieval source degraded", "source", failure.Source, "error", failure.Err)
	}

	// 2. Prompt assembly
	in := prompt.Input{
		Question:            req.Question,
		Chunks:              result.Chunks,
		ConversationHistory: req.ConversationHistory,
	}

	if req.UserContext != nil {
		in.CrossSessionContext = req.UserContext.PreviousContext
	}

	if len(req.SessionId) > 0 {
		in.SessionHistory = e.memory.History(req.SessionId)
	}

	composed := prompt.Compose(in)

	// 3. Generation
	raw, err := gen.Generate(ctx, composed)
	if err != nil {
		return nil, provider.ClassifyGeneration(err)
	}

	// 4. Sanitation and attribution
	answer := sanitizer.Sanitize(raw)

	sources := document.DedupeSources(result.Chunks)

	if len(req.SessionId) > 0 {
		e.memory.Append(req.SessionId, req.Question, answer)
	}

	slog.InfoContext(ctx, "generated answer", "sources", len(sources), "classification", result.Classification)

	return &AskResponse{
		Answer:         answer,
		Sources:        sources,
		Provider:       req.Provider,
		Model:          req.Model,
		Classification: result.Classification,
	}, nil
}

// AddDocuments indexes chunks under documentId, generating an id when the
// caller supplies none. The id under which the chunks live is returned.
func (e *Engine) AddDocuments(ctx context.Context, documentId string, chunks []document.Chunk) (string, error) {
	if len(documentId) == 0 {
		documentId = uuid.New().String()
	}

	if err := e.store.AddDocuments(ctx, documentId, chunks); err != nil {
		return "", err
	}

	return documentId, nil
}

func (e *Engine) RemoveDocument(documentId string) bool {
	return e.store.RemoveDocument(documentId)
}

func (e *Engine) ListDocuments() []string {
	return e.store.ListDocuments()
}

func (e *Engine) DocumentChunks(documentId string) ([]document.Chunk, bool) {
	return e.store.Chunks(documentId)
}

func (e *Engine) Stats() docstore.Stats {
	return e.store.Stats()
}

// Memory exposes the session memory store to surrounding endpoints.
func (e *Engine) Memory() *memory.Store {
	return e.memory
}

func New(store *docstore.Store, mem *memory.Store, r *retriever.Retriever, opts ...Option) *Engine {
	options := NewOptions(opts...)

	if store == nil {
		panic("document store is required")
	}

	if mem == nil {
		panic("memory store is required")
	}

	if r == nil {
		panic("retriever is required")
	}

	return &Engine{
		options:   options,
		store:     store,
		memory:    mem,
		retriever: r,
	}
}
