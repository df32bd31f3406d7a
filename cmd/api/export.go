package main

import (
	"errors"
	"net/http"

	"verifyengine/internal/batch"
	"verifyengine/internal/store"
)

// handleExport streams a batch's results as CSV (spec §6), using the
// same column order and boolean formatting the engine guarantees
// everywhere results leave the process.
func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	batchID := r.URL.Query().Get("id")
	if batchID == "" {
		http.Error(w, "Missing 'id' parameter", http.StatusBadRequest)
		return
	}

	if _, err := s.executor.GetBatch(r.Context(), batchID, ownerFromRequest(r)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load job", http.StatusInternalServerError)
		return
	}

	results, err := s.executor.GetResults(r.Context(), batchID)
	if err != nil {
		http.Error(w, "Failed to fetch results", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+batchID+".csv\"")
	if err := batch.WriteCSV(w, results); err != nil {
		http.Error(w, "Failed to write CSV", http.StatusInternalServerError)
		return
	}
}
