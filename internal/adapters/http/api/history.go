// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/purrank/internal/domain/analytics"
)

// HistoryDependencies defines the interface for ranking history operations.
type HistoryDependencies interface {
	History(ctx context.Context, buckets int) ([]analytics.Series, error)
}

// HistoryHandler handles ranking history requests.
type HistoryHandler struct {
	deps       HistoryDependencies
	maxBuckets int
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies, maxBuckets int) *HistoryHandler {
	return &HistoryHandler{
		deps:       deps,
		maxBuckets: maxBuckets,
	}
}

// HandleGetHistory handles GET /history?buckets=N requests.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	bucketsStr := r.URL.Query().Get("buckets")
	n, err := strconv.Atoi(bucketsStr)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if n > h.maxBuckets {
		writeError(w, http.StatusBadRequest, "buckets_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	series, err := h.deps.History(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, series)
}
