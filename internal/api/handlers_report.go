package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleReport returns the most recently drafted report. Drafts are
// regenerated through the chat completion signal; this endpoint only
// reads the stored copy.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sess := s.store.Get(chi.URLParam(r, "sessionID"))
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	snap := sess.Snapshot()
	if snap.ReportDraft == "" {
		jsonError(w, "no report drafted yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"report_draft": snap.ReportDraft,
		"title":        snap.Document.Title,
	})
}
