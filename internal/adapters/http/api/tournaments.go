// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/purrank/internal/domain/sorter"
	"github.com/okian/purrank/internal/domain/tournament"
	"github.com/okian/purrank/internal/domain/types"
)

// TournamentDependencies defines the interface for tournament operations.
type TournamentDependencies interface {
	StartTournament(ctx context.Context, candidates []types.Candidate) (string, error)
	NextComparison(ctx context.Context, sessionID string) (types.Comparison, bool, error)
	RecordVote(ctx context.Context, sessionID, winnerID, loserID string) error
	Abandon(ctx context.Context, sessionID string) error
	Result(ctx context.Context, sessionID string) (types.Result, tournament.State, bool, error)
}

// TournamentHandler handles tournament lifecycle requests.
type TournamentHandler struct {
	deps TournamentDependencies
}

// NewTournamentHandler creates a new tournament handler.
func NewTournamentHandler(deps TournamentDependencies) *TournamentHandler {
	return &TournamentHandler{deps: deps}
}

// startRequest mirrors the JSON schema for POST /tournaments.
type startRequest struct {
	Candidates []types.Candidate `json:"candidates"`
}

func (s startRequest) validate() error {
	for _, c := range s.Candidates {
		if strings.TrimSpace(c.ID) == "" {
			return errors.New("candidate with empty id")
		}
	}
	return nil
}

type startResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

type nextResponse struct {
	Comparison *types.Comparison `json:"comparison,omitempty"`
	Done       bool              `json:"done"`
}

type voteRequest struct {
	WinnerID string `json:"winner_id"`
	LoserID  string `json:"loser_id"`
}

func (v voteRequest) validate() error {
	switch {
	case strings.TrimSpace(v.WinnerID) == "":
		return errors.New("missing winner_id")
	case strings.TrimSpace(v.LoserID) == "":
		return errors.New("missing loser_id")
	case v.WinnerID == v.LoserID:
		return errors.New("winner_id and loser_id must differ")
	}
	return nil
}

type voteResponse struct {
	Status string `json:"status"`
	Done   bool   `json:"done"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type resultResponse struct {
	State   string              `json:"state"`
	Ranking []types.Candidate   `json:"ranking"`
	Deltas  []types.RatingDelta `json:"deltas"`
}

// HandleCreate handles POST /tournaments requests.
func (h *TournamentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_tournament"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	id, err := h.deps.StartTournament(r.Context(), req.Candidates)
	if err != nil {
		h.writeStartError(w, op, err)
		return
	}

	// A degenerate candidate set completes at start; report the state so
	// the caller knows whether to poll for comparisons.
	state := tournament.StateVoting
	if _, st, ready, rerr := h.deps.Result(r.Context(), id); rerr == nil && ready {
		state = st
	}
	writeJSON(w, http.StatusCreated, startResponse{SessionID: id, State: state.String()})
}

func (h *TournamentHandler) writeStartError(w http.ResponseWriter, op string, err error) {
	switch {
	case strings.Contains(err.Error(), "session limit"):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, tournament.ErrDuplicateCandidate):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// HandleSession routes /tournaments/{id}/{action} requests.
func (h *TournamentHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/tournaments/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	id, action := parts[0], parts[1]

	switch action {
	case "next":
		h.handleNext(w, r, id)
	case "votes":
		h.handleVote(w, r, id)
	case "abandon":
		h.handleAbandon(w, r, id)
	case "result":
		h.handleResult(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// handleNext handles GET /tournaments/{id}/next requests. Polling a
// finished session returns done=true, never an error.
func (h *TournamentHandler) handleNext(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.next_comparison"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	c, ok, err := h.deps.NextComparison(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, nextResponse{Done: true})
		return
	}
	writeJSON(w, http.StatusOK, nextResponse{Comparison: &c})
}

// handleVote handles POST /tournaments/{id}/votes requests.
func (h *TournamentHandler) handleVote(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.record_vote"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if err := h.deps.RecordVote(r.Context(), id, req.WinnerID, req.LoserID); err != nil {
		switch {
		case isNotFound(err):
			writeError(w, http.StatusNotFound, "not_found", err)
		case errors.Is(err, sorter.ErrUnexpectedVote):
			writeError(w, http.StatusConflict, "unexpected_vote", err)
		case isConflict(err):
			writeError(w, http.StatusConflict, "conflict", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}

	_, _, done, _ := h.deps.Result(r.Context(), id)
	writeJSON(w, http.StatusOK, voteResponse{Status: "recorded", Done: done})
}

// handleAbandon handles POST /tournaments/{id}/abandon requests.
func (h *TournamentHandler) handleAbandon(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.abandon_tournament"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.Abandon(r.Context(), id); err != nil {
		switch {
		case isNotFound(err):
			writeError(w, http.StatusNotFound, "not_found", err)
		case isConflict(err):
			writeError(w, http.StatusConflict, "conflict", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "abandoned"})
}

// handleResult handles GET /tournaments/{id}/result requests.
func (h *TournamentHandler) handleResult(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.tournament_result"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	res, state, ready, err := h.deps.Result(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if !ready {
		writeError(w, http.StatusConflict, "not_finished", NewKind(op, ErrConflict))
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{
		State:   state.String(),
		Ranking: res.Ranking,
		Deltas:  res.Deltas,
	})
}
