package main

import (
	"encoding/csv"
	"io"
	"net/http"
)

// UploadResponse is returned once a CSV of addresses has been accepted
// and handed to the Batch Executor. Grounded on the teacher's
// UploadResponse{JobID,TotalRows,Message}.
type UploadResponse struct {
	BatchID   string `json:"batch_id"`
	TotalRows int    `json:"total_rows"`
	Message   string `json:"message"`
}

// handleUpload accepts a multipart "file" field of one address per row
// (with an optional header row) and submits it as a bulk batch.
// Grounded on the teacher's uploadHandler CSV-parsing loop, rewired from
// raw SQL INSERT + queue.EnqueueBatch onto Executor.SubmitBulk.
func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "File too large or malformed", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing 'file' parameter", http.StatusBadRequest)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	var emails []string
	isFirstRow := true

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, "Invalid CSV format", http.StatusBadRequest)
			return
		}

		if len(record) == 0 {
			continue
		}
		val := record[0]
		if isFirstRow {
			isFirstRow = false
			if val == "email" || val == "Email" || val == "Email Address" {
				continue
			}
		}
		if val != "" {
			emails = append(emails, val)
		}
	}

	if len(emails) == 0 {
		http.Error(w, "No email addresses found in upload", http.StatusBadRequest)
		return
	}

	callbackURL := r.FormValue("callback_url")
	notifyEmail := r.FormValue("notify_email")

	batchID, err := s.executor.SubmitBulk(r.Context(), ownerFromRequest(r), emails, callbackURL, notifyEmail)
	if err != nil {
		http.Error(w, "Failed to queue batch: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, UploadResponse{
		BatchID:   batchID,
		TotalRows: len(emails),
		Message:   "Batch created and queued. Processing started.",
	})
}
