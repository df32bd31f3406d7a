package main

import (
	"encoding/json"
	"net/http"
)

// writeJSON is the shared JSON response helper for this package's
// handlers (handleExport writes CSV instead), grounded on the teacher's inline
// json.NewEncoder(w).Encode(resp) calls.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ownerFromRequest derives the tenant label used to scope a batch job.
// There is no authentication at this demo layer (SPEC_FULL.md §9) — the
// header is trusted as-is, with a fixed fallback for callers that omit it.
func ownerFromRequest(r *http.Request) string {
	if owner := r.Header.Get("X-Owner"); owner != "" {
		return owner
	}
	return "demo"
}
