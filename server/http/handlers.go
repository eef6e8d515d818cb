package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/w-h-a/ragchat"
	"github.com/w-h-a/ragchat/chatstore"
	"github.com/w-h-a/ragchat/document"
	"github.com/w-h-a/ragchat/internal/requestcache"
	"github.com/w-h-a/ragchat/provider"
)

type chatRequest struct {
	ragchat.AskRequest
	UserId string `json:"user_id,omitempty"`
}

type chatResponse struct {
	Answer       string            `json:"answer"`
	Sources      []document.Source `json:"sources"`
	SessionId    string            `json:"session_id,omitempty"`
	ModelUsed    string            `json:"model_used"`
	ProviderUsed string            `json:"provider_used"`
	SourceType   string            `json:"source_type"`
}

type ingestRequest struct {
	DocumentId string           `json:"document_id,omitempty"`
	Chunks     []document.Chunk `json:"chunks"`
}

type modelsRequest struct {
	Provider string `json:"provider"`
	ApiKey   string `json:"api_key"`
}

type scheduleRequest struct {
	Message string `json:"message"`
	Title   string `json:"title,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Stats()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"documents_loaded": stats.DocumentsLoaded,
		"chunks_created":   stats.ChunksCreated,
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	var req modelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	gen, err := resolve(req.Provider, "", req.ApiKey)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	valid, err := gen.ValidateKey(r.Context())
	if err != nil || !valid {
		writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid api key for %s", req.Provider))
		return
	}

	models, err := gen.ListModels(r.Context())
	if err != nil {
		writeDomainError(w, provider.ClassifyGeneration(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"provider": req.Provider,
		"models":   models,
		"count":    len(models),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(strings.TrimSpace(req.Question)) == 0 {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	if onCooldown, wait := s.cooldowns.OnCooldown(req.Provider, req.Model, req.ApiKey); onCooldown {
		writeError(w, http.StatusTooManyRequests, fmt.Sprintf("provider is cooling down, retry in %ds", wait))
		return
	}

	// Duplicate suppression: replaying the cached answer avoids appending
	// the same turn to session memory twice. The key carries the user id
	// and api key so answers never cross caller boundaries; Key hashes its
	// parts, so the raw key is not retained.
	cacheKey := requestcache.Key(req.UserId, req.SessionId, req.Question, req.Provider, req.Model, req.ApiKey)
	if cached, ok := s.cache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	gen, err := resolve(req.Provider, req.Model, req.ApiKey)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Moderation gate runs before the engine; flagged input gets a refusal
	// instead of an answer, with no sources and no memory append.
	if s.moderator != nil {
		if clean, message := s.moderator.Moderate(r.Context(), req.Question, gen); !clean {
			writeJSON(w, http.StatusOK, chatResponse{
				Answer:       message,
				Sources:      []document.Source{},
				SessionId:    req.SessionId,
				ModelUsed:    "content-moderator",
				ProviderUsed: "system",
				SourceType:   "general",
			})
			return
		}
	}

	// Cross-session context comes from durable storage unless the caller
	// already supplied it.
	if req.UserContext == nil && len(req.UserId) > 0 && s.chats != nil {
		req.AskRequest.UserContext = s.loadUserContext(r.Context(), req.UserId, req.Question)
	}

	rsp, err := s.engine.Ask(r.Context(), req.AskRequest)
	if err != nil {
		var genErr *provider.GenerationError
		if errors.As(err, &genErr) && genErr.Kind == provider.KindUnavailable {
			s.cooldowns.SetCooldown(req.Provider, req.Model, req.ApiKey, 30*time.Second)
		}
		writeDomainError(w, err)
		return
	}

	s.persistTurn(r, req, rsp.Answer)

	body := chatResponse{
		Answer:       rsp.Answer,
		Sources:      rsp.Sources,
		SessionId:    req.SessionId,
		ModelUsed:    rsp.Model,
		ProviderUsed: rsp.Provider,
		SourceType:   string(rsp.Classification),
	}

	s.cache.Set(cacheKey, body)

	writeJSON(w, http.StatusOK, body)
}

// loadUserContext builds the cross-session blob from durable history: the
// user's recent messages plus semantically related older ones found by
// vector search over the stored message embeddings.
func (s *Server) loadUserContext(ctx context.Context, userId string, question string) *ragchat.UserContext {
	uc, err := s.chats.LastUserContext(ctx, userId)
	if err != nil {
		slog.WarnContext(ctx, "failed to load user context", "user", userId, "error", err)
		return nil
	}

	blob := uc.PreviousContext

	if vec := s.embedText(ctx, question); vec != nil {
		related, err := s.chats.SearchMessages(ctx, userId, vec, 3)
		if err != nil {
			slog.WarnContext(ctx, "failed to search prior messages", "user", userId, "error", err)
		}

		var extra []string
		for _, rec := range related {
			label := "User"
			if rec.Role == "assistant" {
				label = "Assistant"
			}
			line := label + ": " + rec.Content
			if !strings.Contains(blob, line) {
				extra = append(extra, line)
			}
		}

		if len(extra) > 0 {
			if len(blob) > 0 {
				blob += "\n"
			}
			blob += strings.Join(extra, "\n")
		}
	}

	if len(blob) == 0 {
		return nil
	}

	return &ragchat.UserContext{PreviousContext: blob}
}

// Messages are persisted with their embeddings so the durable store can be
// searched semantically later.
func (s *Server) persistTurn(r *http.Request, req chatRequest, answer string) {
	if s.chats == nil || len(req.SessionId) == 0 {
		return
	}

	ctx := r.Context()

	if err := s.chats.SaveSession(ctx, req.UserId, req.SessionId); err != nil {
		slog.WarnContext(ctx, "failed to save session", "session", req.SessionId, "error", err)
		return
	}

	turn := []struct {
		role    string
		content string
	}{
		{"user", req.Question},
		{"assistant", answer},
	}

	for _, msg := range turn {
		vec := s.embedText(ctx, msg.content)
		if err := s.chats.SaveMessage(ctx, req.UserId, req.SessionId, msg.role, msg.content, vec); err != nil {
			slog.WarnContext(ctx, "failed to save message", "session", req.SessionId, "role", msg.role, "error", err)
		}
	}
}

func (s *Server) embedText(ctx context.Context, text string) []float32 {
	if s.embedder == nil {
		return nil
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		slog.WarnContext(ctx, "failed to embed message", "error", err)
		return nil
	}

	return vec
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Chunks) == 0 {
		writeError(w, http.StatusBadRequest, "chunks are required")
		return
	}

	documentId, err := s.engine.AddDocuments(r.Context(), req.DocumentId, req.Chunks)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document_id":    documentId,
		"chunks_created": len(req.Chunks),
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	type documentInfo struct {
		Id            string `json:"id"`
		Filename      string `json:"filename"`
		ChunksCreated int    `json:"chunks_created"`
	}

	docs := []documentInfo{}

	for _, id := range s.engine.ListDocuments() {
		info := documentInfo{Id: id, Filename: id}

		if chunks, ok := s.engine.DocumentChunks(id); ok && len(chunks) > 0 {
			if filename := chunks[0].Metadata.Filename; len(filename) > 0 {
				info.Filename = filename
			}
			info.ChunksCreated = len(chunks)
		}

		docs = append(docs, info)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentId := mux.Vars(r)["document_id"]

	if !s.engine.RemoveDocument(documentId) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("document %s not found", documentId))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": documentId,
		"removed":     true,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionId := mux.Vars(r)["session_id"]

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionId,
		"history":    s.engine.Memory().History(sessionId),
		"exchanges":  s.engine.Memory().Exchanges(sessionId),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sessionId := mux.Vars(r)["session_id"]

	writeJSON(w, http.StatusOK, s.engine.Memory().Summarize(sessionId))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sessionId := mux.Vars(r)["session_id"]

	writeJSON(w, http.StatusOK, s.engine.Memory().ExportSession(sessionId))
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	sessionId := mux.Vars(r)["session_id"]

	cleared := s.engine.Memory().Clear(sessionId)

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionId,
		"cleared":    cleared,
	})
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	s.engine.Memory().ClearAll()

	writeJSON(w, http.StatusOK, map[string]any{
		"cleared": true,
	})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusNotImplemented, "calendar is not configured")
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(strings.TrimSpace(req.Message)) == 0 {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := s.scheduler.ScheduleFromChat(r.Context(), req.Message, req.Title)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.chats == nil {
		writeError(w, http.StatusNotImplemented, "chat store is not configured")
		return
	}

	userId := mux.Vars(r)["user_id"]

	sessions, err := s.chats.Sessions(r.Context(), userId)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":  userId,
		"sessions": sessions,
	})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if s.chats == nil {
		writeError(w, http.StatusNotImplemented, "chat store is not configured")
		return
	}

	sessionId := mux.Vars(r)["session_id"]

	records, err := s.chats.Messages(r.Context(), sessionId)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if records == nil {
		records = []chatstore.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionId,
		"messages":   records,
		"count":      len(records),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if s.chats == nil {
		writeError(w, http.StatusNotImplemented, "chat store is not configured")
		return
	}

	sessionId := mux.Vars(r)["session_id"]

	if err := s.chats.DeleteSession(r.Context(), sessionId); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionId,
		"deleted":    true,
	})
}
