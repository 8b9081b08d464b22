package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kenshulab/reportchat/internal/config"
)

type createSessionRequest struct {
	// QuestionSource overrides the configured default: "document" for
	// marker extraction, "llm" for generated questions. A session uses
	// exactly one of the two.
	QuestionSource string `json:"question_source"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	source := req.QuestionSource
	if source == "" {
		source = s.cfg.QuestionSource
	}
	if source != config.QuestionSourceDocument && source != config.QuestionSourceLLM {
		jsonError(w, "question_source must be \"document\" or \"llm\"", http.StatusBadRequest)
		return
	}

	sess := s.store.Create(source)
	s.log.Info("session created", "session_id", sess.ID, "question_source", source)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sess.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.store.Get(chi.URLParam(r, "sessionID"))
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if s.store.Get(id) == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	s.store.Delete(id)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"deleted": id})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
