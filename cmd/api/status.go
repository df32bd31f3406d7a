package main

import (
	"errors"
	"net/http"
	"time"

	"verifyengine/internal/store"
)

// JobStatusResponse mirrors models.BatchJob's pollable fields. Grounded
// on the teacher's JobStatusResponse, extended with the valid/invalid
// split and progress percent the generalised BatchJob carries.
type JobStatusResponse struct {
	BatchID        string     `json:"batch_id"`
	Stream         string     `json:"stream"`
	Status         string     `json:"status"`
	TotalCount     int        `json:"total_count"`
	ProcessedCount int        `json:"processed_count"`
	ValidCount     int        `json:"valid_count"`
	InvalidCount   int        `json:"invalid_count"`
	ProgressPct    int        `json:"progress_percent"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// handleStatus returns the current state of a batch job, scoped to the
// caller's owner label. Grounded on the teacher's statusHandler,
// rewired from a raw SQL row-scan onto Executor.GetBatch.
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	batchID := r.URL.Query().Get("id")
	if batchID == "" {
		http.Error(w, "Missing 'id' parameter", http.StatusBadRequest)
		return
	}

	job, err := s.executor.GetBatch(r.Context(), batchID, ownerFromRequest(r))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load job", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, JobStatusResponse{
		BatchID:        job.BatchID,
		Stream:         string(job.Stream),
		Status:         string(job.Status),
		TotalCount:     job.Total,
		ProcessedCount: job.Processed,
		ValidCount:     job.Valid,
		InvalidCount:   job.Invalid,
		ProgressPct:    job.ProgressPercent(),
		Error:          job.Error,
		CreatedAt:      job.CreatedAt,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
	})
}
