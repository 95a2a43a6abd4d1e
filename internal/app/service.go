// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	updatequeue "github.com/okian/purrank/internal/adapters/mq/queue"
	workerpool "github.com/okian/purrank/internal/adapters/mq/worker"
	repository "github.com/okian/purrank/internal/adapters/repository"
	"github.com/okian/purrank/internal/domain/analytics"
	"github.com/okian/purrank/internal/domain/dedupe"
	"github.com/okian/purrank/internal/domain/rating"
	"github.com/okian/purrank/internal/domain/sorter"
	"github.com/okian/purrank/internal/domain/tournament"
	"github.com/okian/purrank/internal/domain/types"
	"github.com/okian/purrank/pkg/logger"
	"github.com/okian/purrank/pkg/metrics"
)

// sessionHandle wraps one tournament session with the bookkeeping the
// service needs around it. The embedded mutex serializes all access to the
// session; sessions themselves are not safe for concurrent use.
type sessionHandle struct {
	mu sync.Mutex

	session   *tournament.Session
	names     map[string]string
	createdAt time.Time
	emitted   int
}

// terminal reports whether the session can no longer accept votes.
// Callers must hold h.mu.
func (h *sessionHandle) terminal() bool {
	st := h.session.State()
	return st == tournament.StateCompleted || st == tournament.StateAbandoned
}

// Service implements the API dependencies for the ranking system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	queue   updatequeue.Queue
	pool    *workerpool.Pool
	model   *rating.Model

	// Session registry. active is atomic so session completion, which runs
	// under a handle lock, never has to take s.mu.
	sessions map[string]*sessionHandle
	active   atomic.Int64

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	maxSessions     int
	historyCapacity int
	kFactor         float64
	initialRating   float64
	ratingFloor     float64
	ratingCeiling   float64

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of persistence workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the update queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxSessions bounds the number of tracked sessions.
func WithMaxSessions(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxSessions = limit
		}
	}
}

// WithHistoryCapacity bounds retained rating snapshots in the store.
func WithHistoryCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyCapacity = n
		}
	}
}

// WithKFactor sets the rating sensitivity per match.
func WithKFactor(k float64) Option {
	return func(s *Service) {
		if k > 0 {
			s.kFactor = k
		}
	}
}

// WithInitialRating sets the rating assigned to unknown candidates.
func WithInitialRating(r float64) Option {
	return func(s *Service) {
		s.initialRating = r
	}
}

// WithRatingBounds sets the clamp range for post-match ratings.
func WithRatingBounds(floor, ceiling float64) Option {
	return func(s *Service) {
		if floor < ceiling {
			s.ratingFloor = floor
			s.ratingCeiling = ceiling
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       10_000,
		dedupeSize:      50_000,
		maxSessions:     10_000,
		historyCapacity: 10_000,
		kFactor:         rating.DefaultKFactor,
		initialRating:   rating.DefaultRating,
		ratingFloor:     0,
		ratingCeiling:   1_000_000_000,
		sessions:        make(map[string]*sessionHandle),
		stopCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting ranking service...")

	s.store = repository.NewTreapStore(ctx,
		repository.WithHistoryCapacity(s.historyCapacity),
	)
	s.logger.Info(ctx, "using treap store")
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = updatequeue.NewInMemoryQueue(
		updatequeue.WithCapacity(s.queueSize),
	)
	s.model = rating.New(
		rating.WithKFactor(s.kFactor),
		rating.WithBounds(s.ratingFloor, s.ratingCeiling),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Float64("kFactor", s.kFactor),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping ranking service...")

	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
		s.pool.Stop()
	}

	select {
	case <-s.stopCh:
		// already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

// StartTournament creates a new session seeded with the store's current
// ratings and returns its id. Candidates unknown to the store start at the
// configured initial rating.
func (s *Service) StartTournament(ctx context.Context, candidates []types.Candidate) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return "", ErrNotStarted
	}
	if len(s.sessions) >= s.maxSessions {
		s.evictTerminalLocked()
		if len(s.sessions) >= s.maxSessions {
			metrics.RecordErrorByComponent("service", "session_limit")
			return "", fmt.Errorf("%w: %d sessions tracked", ErrTooManySessions, len(s.sessions))
		}
	}

	ids := make([]string, len(candidates))
	names := make(map[string]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
		names[c.ID] = c.Name
	}

	prior := s.store.PriorRatings(ctx, ids)
	known := make(map[string]struct{}, len(prior))
	for _, r := range prior {
		known[r.CandidateID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			prior = append(prior, types.Rating{CandidateID: id, Value: s.initialRating})
		}
	}

	id := uuid.NewString()
	sess := tournament.New(
		tournament.WithID(id),
		tournament.WithModel(s.model),
	)
	if err := sess.Start(candidates, prior); err != nil {
		return "", err
	}

	h := &sessionHandle{
		session:   sess,
		names:     names,
		createdAt: time.Now(),
	}
	s.sessions[id] = h

	metrics.RecordSessionStarted()
	if sess.State() == tournament.StateVoting {
		metrics.UpdateActiveSessions(int(s.active.Add(1)))
	} else {
		// Degenerate tournament, completed at start with no deltas.
		metrics.RecordSessionCompleted()
	}

	s.logger.Info(ctx, "tournament started",
		logger.String("sessionID", id),
		logger.Int("candidates", len(candidates)),
		logger.String("state", sess.State().String()),
	)
	return id, nil
}

// NextComparison returns the pending comparison for a session. A finished
// session yields ok=false; polling it is not an error.
func (s *Service) NextComparison(ctx context.Context, sessionID string) (types.Comparison, bool, error) {
	h, err := s.handle(sessionID)
	if err != nil {
		return types.Comparison{}, false, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.session.NextComparison()
	if emitted := h.session.Comparisons(); emitted > h.emitted {
		// Count each fresh comparison once, not every poll.
		for i := h.emitted; i < emitted; i++ {
			metrics.RecordComparisonEmitted()
		}
		h.emitted = emitted
	}
	return c, ok, nil
}

// RecordVote feeds one decided comparison into a session. When the vote
// completes the tournament, the resulting deltas are enqueued for
// asynchronous persistence behind the idempotency guard.
func (s *Service) RecordVote(ctx context.Context, sessionID, winnerID, loserID string) error {
	h, err := s.handle(sessionID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.session.RecordVote(winnerID, loserID); err != nil {
		if errors.Is(err, sorter.ErrUnexpectedVote) {
			metrics.RecordUnexpectedVote()
		}
		metrics.RecordErrorByComponent("service", "record_vote")
		return err
	}
	metrics.RecordVoteRecorded()

	if h.session.State() != tournament.StateCompleted {
		return nil
	}
	s.finishSession(ctx, h, true)
	return nil
}

// Abandon terminates a voting session without persisting anything.
func (s *Service) Abandon(ctx context.Context, sessionID string) error {
	h, err := s.handle(sessionID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.session.Abandon(); err != nil {
		return err
	}
	s.finishSession(ctx, h, false)
	s.logger.Info(ctx, "tournament abandoned", logger.String("sessionID", sessionID))
	return nil
}

// Result returns the session's final ranking and deltas. ready is false
// while the session is still voting.
func (s *Service) Result(ctx context.Context, sessionID string) (types.Result, tournament.State, bool, error) {
	h, err := s.handle(sessionID)
	if err != nil {
		return types.Result{}, 0, false, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	res, ready := h.session.Result()
	return res, h.session.State(), ready, nil
}

// finishSession handles the common tail of completion and abandonment:
// metrics, the active gauge, and for completions the delta enqueue.
// Callers must hold h.mu.
func (s *Service) finishSession(ctx context.Context, h *sessionHandle, completed bool) {
	metrics.UpdateActiveSessions(int(s.active.Add(-1)))

	if !completed {
		metrics.RecordSessionAbandoned()
		return
	}

	metrics.RecordSessionCompleted()
	metrics.RecordSessionDuration(float64(time.Since(h.createdAt).Milliseconds()))

	res, _ := h.session.Result()
	sessionID := h.session.ID()
	for _, d := range res.Deltas {
		updateID := sessionID + ":" + d.CandidateID
		if s.deduper.SeenAndRecord(ctx, updateID) {
			metrics.RecordDeltaDuplicate()
			continue
		}
		u := updatequeue.Update{
			ID:        updateID,
			SessionID: sessionID,
			Name:      h.names[d.CandidateID],
			Delta:     d,
		}
		if !s.queue.Enqueue(ctx, u) {
			// Allow a retry if the queue was full or closed.
			s.deduper.Unrecord(ctx, updateID)
			metrics.RecordErrorByComponent("service", "enqueue_failed")
			s.logger.Error(ctx, "failed to enqueue rating update",
				logger.String("updateID", updateID),
			)
		}
	}

	s.logger.Info(ctx, "tournament completed",
		logger.String("sessionID", sessionID),
		logger.Int("deltas", len(res.Deltas)),
		logger.Int("comparisons", h.session.Comparisons()),
	)
}

// evictTerminalLocked drops finished sessions, oldest first, to make room
// for new ones. Callers must hold s.mu.
func (s *Service) evictTerminalLocked() {
	type victim struct {
		id string
		at time.Time
	}
	var victims []victim
	for id, h := range s.sessions {
		h.mu.Lock()
		if h.terminal() {
			victims = append(victims, victim{id: id, at: h.createdAt})
		}
		h.mu.Unlock()
	}
	// Evict the oldest half of the terminal set so eviction is not
	// re-triggered on every start.
	for i := 0; i < len(victims); i++ {
		for j := i + 1; j < len(victims); j++ {
			if victims[j].at.Before(victims[i].at) {
				victims[i], victims[j] = victims[j], victims[i]
			}
		}
	}
	limit := (len(victims) + 1) / 2
	for _, v := range victims[:limit] {
		delete(s.sessions, v.id)
	}
}

// handle looks up a session by id.
func (s *Service) handle(sessionID string) (*sessionHandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	h, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
	}
	return h, nil
}

// TopN returns the top N leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store.TopN(ctx, n)
}

// Rank returns the leaderboard row for a given candidate id.
func (s *Service) Rank(ctx context.Context, candidateID string) (types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return types.Entry{}, ErrNotStarted
	}
	return s.store.Rank(ctx, candidateID)
}

// Percentile returns a candidate's percentile standing against the full
// rating population.
func (s *Service) Percentile(ctx context.Context, candidateID string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return 0, ErrNotStarted
	}
	entry, err := s.store.Rank(ctx, candidateID)
	if err != nil {
		return 0, err
	}
	return analytics.Percentile(entry.Rating, s.store.Ratings(ctx)), nil
}

// History returns per-candidate rank series over the requested number of
// time buckets.
func (s *Service) History(ctx context.Context, buckets int) ([]analytics.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	return analytics.BuildRankingHistory(s.store.History(ctx), buckets)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		totalCandidates := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["totalCandidates"] = totalCandidates
		stats["trackedSessions"] = len(s.sessions)
		stats["activeSessions"] = int(s.active.Load())
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateRepositoryRecordsTotal(totalCandidates)
		metrics.UpdateWorkerCount(s.workerCount)
		metrics.UpdateActiveSessions(int(s.active.Load()))
	}

	return stats
}
