// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"
)

// PercentileDependencies defines the interface for percentile operations.
type PercentileDependencies interface {
	Percentile(ctx context.Context, candidateID string) (float64, error)
}

// PercentileHandler handles percentile standing requests.
type PercentileHandler struct {
	deps PercentileDependencies
}

// NewPercentileHandler creates a new percentile handler.
func NewPercentileHandler(deps PercentileDependencies) *PercentileHandler {
	return &PercentileHandler{deps: deps}
}

type percentileResponse struct {
	CandidateID string  `json:"candidate_id"`
	Percentile  float64 `json:"percentile"`
}

// HandleGetPercentile handles GET /percentile/{candidate_id} requests.
func (h *PercentileHandler) HandleGetPercentile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/percentile/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	p, err := h.deps.Percentile(r.Context(), path)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, percentileResponse{CandidateID: path, Percentile: p})
}
