package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type chatRequest struct {
	Message string `json:"message"`
}

// handleChat runs one conversational turn. With ?stream=sse the
// free-form LLM fragments are relayed as SSE data events while they
// arrive, followed by a final "done" event carrying the full turn
// result; otherwise the turn result is returned as plain JSON once the
// stream has been fully accumulated.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess := s.store.Get(chi.URLParam(r, "sessionID"))
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		jsonError(w, "message is required", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("stream") == "sse" {
		s.handleChatSSE(w, r, sess, req.Message)
		return
	}

	res, err := s.controller.HandleTurn(r.Context(), sess, req.Message, nil)
	if err != nil {
		s.log.Error("turn failed", "session_id", sess.ID, "error", err)
		jsonError(w, "llm request failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
