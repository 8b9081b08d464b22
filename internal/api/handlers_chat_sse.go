package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kenshulab/reportchat/internal/session"
)

// handleChatSSE relays free-form response fragments to the client as
// they stream in. Events:
//
//	data: {"delta":"..."}     one text fragment, in arrival order
//	event: done\ndata: {...}  the full TurnResult, after completion
//	event: error\ndata: {...} terminal failure (stream ends)
func (s *Server) handleChatSSE(w http.ResponseWriter, r *http.Request, sess *session.Session, message string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	onChunk := func(delta string) {
		payload, err := json.Marshal(map[string]string{"delta": delta})
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	res, err := s.controller.HandleTurn(r.Context(), sess, message, onChunk)
	if err != nil {
		s.log.Error("turn failed", "session_id", sess.ID, "error", err)
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
		flusher.Flush()
		return
	}

	payload, err := json.Marshal(res)
	if err != nil {
		payload = []byte(`{"error":"encode result"}`)
	}
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", payload)
	flusher.Flush()
}
