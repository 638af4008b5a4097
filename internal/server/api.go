package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/TobiSchelling/wonderpick/internal/metrics"
	"github.com/TobiSchelling/wonderpick/internal/recommend"
)

const maxBodyBytes = 1 << 16

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is the body of every JSON API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: Version})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	history, err := s.readAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch wonder data")
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleAppendRecord(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body")
		return
	}

	var rec recommend.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := rec.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.appendRecord(r.Context(), rec, metrics.SourceAPI); err != nil {
		if errors.Is(err, recommend.ErrInvalidPosition) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update wonder data")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("start")
	start, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be an integer 1-5")
		return
	}
	if err := recommend.ValidatePosition(start); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.suggestFor(r.Context(), start)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute recommendation")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
