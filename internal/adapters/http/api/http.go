// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/purrank/internal/domain/analytics"
	"github.com/okian/purrank/internal/domain/tournament"
	"github.com/okian/purrank/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Tournament lifecycle.
	StartTournament(ctx context.Context, candidates []types.Candidate) (string, error)
	NextComparison(ctx context.Context, sessionID string) (types.Comparison, bool, error)
	RecordVote(ctx context.Context, sessionID, winnerID, loserID string) error
	Abandon(ctx context.Context, sessionID string) error
	Result(ctx context.Context, sessionID string) (types.Result, tournament.State, bool, error)

	// Read operations expose ranking data.
	TopN(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, candidateID string) (Entry, error)
	Percentile(ctx context.Context, candidateID string) (float64, error)
	History(ctx context.Context, buckets int) ([]analytics.Series, error)
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	tournamentHandler  *TournamentHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	percentileHandler  *PercentileHandler
	historyHandler     *HistoryHandler
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	maxLeaderboardLimit int
	maxHistoryBuckets   int
}

// WithMaxLeaderboardLimit caps GET /leaderboard?limit.
func WithMaxLeaderboardLimit(n int) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxLeaderboardLimit = n
		}
	}
}

// WithMaxHistoryBuckets caps GET /history?buckets.
func WithMaxHistoryBuckets(n int) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxHistoryBuckets = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := &serverConfig{
		maxLeaderboardLimit: 100,
		maxHistoryBuckets:   500,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		tournamentHandler:  NewTournamentHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.maxLeaderboardLimit),
		rankHandler:        NewRankHandler(deps),
		percentileHandler:  NewPercentileHandler(deps),
		historyHandler:     NewHistoryHandler(deps, cfg.maxHistoryBuckets),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/tournaments", MetricsMiddleware(s.tournamentHandler.HandleCreate, "tournaments"))
	mux.HandleFunc("/tournaments/", MetricsMiddleware(s.tournamentHandler.HandleSession, "tournaments"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/percentile/", MetricsMiddleware(s.percentileHandler.HandleGetPercentile, "percentile"))
	mux.HandleFunc("/history", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound allows the API to translate upstream not-found errors to 404.
// This stays generic to avoid tight coupling with specific packages.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// isConflict reports whether an error reflects a session in the wrong state
// rather than a malformed request.
func isConflict(err error) bool {
	return errors.Is(err, tournament.ErrNotVoting) ||
		errors.Is(err, tournament.ErrAlreadyStarted) ||
		errors.Is(err, ErrConflict)
}
