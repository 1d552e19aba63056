package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/banglatutor/aparichita/internal/models"
)

// queryRequest is the body of POST /api/v1/query.
type queryRequest struct {
	Query                  string `json:"query"`
	UseConversationContext *bool  `json:"use_conversation_context,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query cannot be empty")
		return
	}
	useContext := true
	if req.UseConversationContext != nil {
		useContext = *req.UseConversationContext
	}
	s.logger.Debug("query request", zap.String("query", req.Query))
	resp, err := s.system.ProcessQuery(r.Context(), req.Query, useContext)
	if err != nil {
		s.respondSystemError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCharacter(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	resp, err := s.system.CharacterInfo(r.Context(), name)
	if err != nil {
		s.respondSystemError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWord(w http.ResponseWriter, r *http.Request) {
	word := chi.URLParam(r, "word")
	resp, err := s.system.WordMeaning(r.Context(), word)
	if err != nil {
		s.respondSystemError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	chunks, err := s.system.StoryContext(r.Context(), q)
	if err != nil {
		s.respondSystemError(w, err)
		return
	}
	if chunks == nil {
		chunks = []models.QueryResult{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"query": q, "chunks": chunks})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.system.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	suggestions := s.system.Memory().Usage().Suggestions(q, 5)
	if suggestions == nil {
		suggestions = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"query": q, "suggestions": suggestions})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	count, err := s.Rebuild(r.Context())
	if err != nil {
		s.logger.Error("reindex failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"status": "indexed", "chunks": count})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondSystemError maps system errors to status codes: an unbuilt knowledge
// base is the caller's provisioning problem, everything else is internal.
func (s *Server) respondSystemError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrNotInitialized) {
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.logger.Error("request failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
