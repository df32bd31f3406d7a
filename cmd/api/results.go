package main

import (
	"errors"
	"net/http"
	"strconv"

	"verifyengine/internal/models"
	"verifyengine/internal/store"
)

// ResultsPage wraps a page of a batch's results with the metadata a
// client needs to paginate without a separate count query. Grounded on
// the teacher's ResultsPage/ResultRow, rewired onto Executor.GetResults
// — the Job Store's ListResults loads a whole batch's rows at once
// (spec places no pagination requirement on the wire format itself), so
// this demo layer paginates in memory rather than pushing LIMIT/OFFSET
// down to SQL the way the teacher's raw query did.
type ResultsPage struct {
	BatchID    string                `json:"batch_id"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalCount int                   `json:"total_count"`
	HasMore    bool                  `json:"has_more"`
	Results    []models.EmailResult `json:"results"`
}

const (
	defaultPageSize = 500
	maxPageSize     = 2000
)

// handleResults returns a single page of verification results for a
// batch.
//
// Query parameters:
//
//	id        — batch id (required)
//	page      — 1-based page number (default: 1)
//	page_size — rows per page (default: 500, max: 2000)
func (s *server) handleResults(w http.ResponseWriter, r *http.Request) {
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

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	pageSize := defaultPageSize
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 {
			pageSize = parsed
		}
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	all, err := s.executor.GetResults(r.Context(), batchID)
	if err != nil {
		http.Error(w, "Failed to fetch results", http.StatusInternalServerError)
		return
	}

	offset := (page - 1) * pageSize
	end := offset + pageSize
	if offset > len(all) {
		offset = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	page2 := all[offset:end]

	writeJSON(w, http.StatusOK, ResultsPage{
		BatchID:    batchID,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: len(all),
		HasMore:    end < len(all),
		Results:    page2,
	})
}
