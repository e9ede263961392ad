package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethpandaops/harnessoor/pkg/classifier"
	"github.com/ethpandaops/harnessoor/pkg/datastore"
	"github.com/go-chi/chi/v5"
)

type errorResponse struct {
	Error string `json:"error"`
}

type listRecordsResponse struct {
	Count   int                        `json:"count"`
	Records []classifier.HarnessRecord `json:"records"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListRecords returns every row of the dataset in insertion order.
func (s *server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListRecords(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to list records")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing records"})

		return
	}

	writeJSON(w, http.StatusOK, listRecordsResponse{
		Count:   len(records),
		Records: records,
	})
}

// handleGetRecord returns the row of a single harness file.
func (s *server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	fileName := chi.URLParam(r, "fileName")

	rec, err := s.store.GetRecord(r.Context(), fileName)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			writeJSON(w, http.StatusNotFound,
				errorResponse{"record not found"})

			return
		}

		s.log.WithError(err).WithField("file", fileName).
			Error("Failed to get record")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"getting record"})

		return
	}

	writeJSON(w, http.StatusOK, rec)
}
