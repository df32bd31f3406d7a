package main

import (
	"net/http"

	"verifyengine/internal/verifier"
)

// handleVerify runs a single synchronous verify()+enrich() call — the
// demo layer's equivalent of the teacher's inline single-email check
// folded into upload's row-at-a-time path. Grounded on the teacher's
// query-parameter handlers (statusHandler, resultsHandler).
func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		http.Error(w, "Missing 'email' parameter", http.StatusBadRequest)
		return
	}

	opts := verifier.DefaultOptions()
	if r.URL.Query().Get("smtp") == "false" {
		opts.CheckSMTP = false
	}

	enriched := s.enricher.Enrich(r.Context(), email, opts)
	writeJSON(w, http.StatusOK, enriched)
}
