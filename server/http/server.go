package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/w-h-a/ragchat"
	"github.com/w-h-a/ragchat/calendar"
	"github.com/w-h-a/ragchat/chatstore"
	"github.com/w-h-a/ragchat/embedder"
	"github.com/w-h-a/ragchat/internal/cooldown"
	"github.com/w-h-a/ragchat/internal/requestcache"
	"github.com/w-h-a/ragchat/moderator"
	"github.com/w-h-a/ragchat/provider"
)

// Server is the REST surface over the engine and its collaborators.
type Server struct {
	options   Options
	engine    *ragchat.Engine
	moderator *moderator.Moderator
	chats     chatstore.Store
	scheduler *calendar.Scheduler
	embedder  embedder.Embedder
	cache     *requestcache.Cache
	cooldowns *cooldown.Tracker
	srv       *http.Server
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.Use(s.logRequests)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/models", s.handleModels).Methods(http.MethodPost)
	r.HandleFunc("/api/chat", s.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/api/ingest", s.handleIngest).Methods(http.MethodPost)
	r.HandleFunc("/api/documents", s.handleListDocuments).Methods(http.MethodGet)
	r.HandleFunc("/api/documents/{document_id}", s.handleDeleteDocument).Methods(http.MethodDelete)
	r.HandleFunc("/api/memory/history/{session_id}", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/memory/summary/{session_id}", s.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/api/memory/export/{session_id}", s.handleExport).Methods(http.MethodPost)
	r.HandleFunc("/api/memory/clear/{session_id}", s.handleClearSession).Methods(http.MethodDelete)
	r.HandleFunc("/api/memory/clear-all", s.handleClearAll).Methods(http.MethodDelete)
	r.HandleFunc("/api/calendar/schedule", s.handleSchedule).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{user_id}", s.handleSessions).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{session_id}", s.handleDeleteSession).Methods(http.MethodDelete)
	r.HandleFunc("/api/messages/{session_id}", s.handleMessages).Methods(http.MethodGet)

	return r
}

func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         s.options.Address,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	slog.Info("http server listening", "address", s.options.Address)

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}

	return s.srv.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.InfoContext(r.Context(), "handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).String(),
		)
	})
}

func NewServer(
	engine *ragchat.Engine,
	mod *moderator.Moderator,
	chats chatstore.Store,
	scheduler *calendar.Scheduler,
	e embedder.Embedder,
	opts ...Option,
) *Server {
	options := NewOptions(opts...)

	if engine == nil {
		panic("engine is required")
	}

	s := &Server{
		options:   options,
		engine:    engine,
		moderator: mod,
		chats:     chats,
		scheduler: scheduler,
		embedder:  e,
		cache:     requestcache.New(options.CacheTTL),
		cooldowns: cooldown.New(),
	}

	return s
}

// resolve is indirected so handler tests can stub the provider gateway.
var resolve = provider.Resolve
