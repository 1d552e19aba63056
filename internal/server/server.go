// Package server provides the HTTP API over the retrieval system.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/banglatutor/aparichita/internal/config"
	"github.com/banglatutor/aparichita/internal/rag"
)

// Server is the HTTP server for the question-answering API.
type Server struct {
	system       *rag.System
	config       *config.ServerConfig
	corpusPath   string
	snapshotPath string
	logger       *zap.Logger
	server       *http.Server

	// rebuildMu enforces the single-writer discipline on reindexing.
	rebuildMu sync.Mutex
}

// NewServer creates a server over the assembled system. corpusPath and
// snapshotPath are used by the reindex endpoint.
func NewServer(system *rag.System, cfg *config.ServerConfig, corpusPath, snapshotPath string, logger *zap.Logger) *Server {
	return &Server{
		system:       system,
		config:       cfg,
		corpusPath:   corpusPath,
		snapshotPath: snapshotPath,
		logger:       logger,
	}
}

// router builds the HTTP routes. Separate from Start so tests can drive the
// full middleware stack without binding a port.
func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/api/v1/query", s.handleQuery)
	r.Get("/api/v1/characters/{name}", s.handleCharacter)
	r.Get("/api/v1/words/{word}", s.handleWord)
	r.Get("/api/v1/story", s.handleStory)
	r.Get("/api/v1/stats", s.handleStats)
	r.Get("/api/v1/suggestions", s.handleSuggestions)
	r.Post("/api/v1/reindex", s.handleReindex)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Rebuild reloads the corpus and rebuilds the index wholesale. At most one
// rebuild runs at a time; used by both the reindex endpoint and the corpus watcher.
func (s *Server) Rebuild(ctx context.Context) (int, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()
	return s.system.BuildKnowledgeBase(ctx, s.corpusPath, s.snapshotPath)
}

// requestID tags each request with a response X-Request-ID header, generating
// a fresh id when the client did not send one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}
