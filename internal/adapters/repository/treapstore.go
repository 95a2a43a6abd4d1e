package repository

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/okian/purrank/internal/domain/types"
	"github.com/okian/purrank/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: rating DESC, then candidate id ASC, so an in-order traversal
// yields the leaderboard best-first and every candidate has a distinct,
// deterministic position. Ratings are compared in fixed point to keep the
// tree ordering exact.

// ratingScale controls fixed-point scaling from float64. Six decimal places
// are plenty for Elo-sized values.
const ratingScale = 1_000_000

type ratingFP int64

func toFixedPoint(x float64) ratingFP {
	if math.IsNaN(x) {
		return 0
	}
	scaled := x * ratingScale
	if scaled >= float64(math.MaxInt64) {
		return ratingFP(math.MaxInt64)
	}
	if scaled <= float64(math.MinInt64) {
		return ratingFP(math.MinInt64)
	}
	return ratingFP(math.Round(scaled))
}

func toFloat(x ratingFP) float64 {
	return float64(x) / ratingScale
}

// record holds one candidate's stored state.
type record struct {
	rating ratingFP
	name   string
	wins   int
	losses int
}

// node is one treap node; prio derives from the rating so hot candidates
// stay near the root, and size supports order-statistic rank queries.
type node struct {
	id     string
	rating ratingFP
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aRating, aID) ranks earlier than (bRating, bID).
func less(aRating ratingFP, aID string, bRating ratingFP, bID string) bool {
	if aRating != bRating {
		return aRating > bRating // higher rating ranks earlier
	}
	return aID < bID // tie-breaker by id asc
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// ratingToPriority biases the heap so higher ratings sit closer to the root.
func ratingToPriority(rating ratingFP) uint64 {
	const offset = uint64(1) << 63
	return uint64(rating) + offset
}

func insert(n *node, id string, rating ratingFP) *node {
	if n == nil {
		return &node{id: id, rating: rating, prio: ratingToPriority(rating), size: 1}
	}
	if less(rating, id, n.rating, n.id) {
		n.left = insert(n.left, id, rating)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, rating)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, id string, rating ratingFP) *node {
	if n == nil {
		return nil
	}
	if rating == n.rating && id == n.id {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, id, rating)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, id, rating)
		}
	} else if less(rating, id, n.rating, n.id) {
		n.left = remove(n.left, id, rating)
	} else {
		n.right = remove(n.right, id, rating)
	}
	fix(n)
	return n
}

// position returns the 1-based leaderboard position of (id, rating) using
// subtree sizes, O(log n) expected.
func position(n *node, id string, rating ratingFP) int {
	pos := 1
	for n != nil {
		if rating == n.rating && id == n.id {
			return pos + nsize(n.left)
		}
		if less(rating, id, n.rating, n.id) {
			n = n.left
		} else {
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0 // not present
}

// collectTop appends up to limit entries in rank order, best first.
func collectTop(n *node, limit int, records map[string]record, out *[]types.Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTop(n.left, limit, records, out)
	if len(*out) < limit {
		if rec, ok := records[n.id]; ok {
			*out = append(*out, types.Entry{
				CandidateID: n.id,
				Name:        rec.name,
				Rating:      toFloat(rec.rating),
				Wins:        rec.wins,
				Losses:      rec.losses,
			})
		}
	}
	if len(*out) < limit {
		collectTop(n.right, limit, records, out)
	}
}

// TreapStore is the in-memory Store implementation.
type TreapStore struct {
	mu         sync.RWMutex
	root       *node
	byID       map[string]record
	history    []types.Snapshot
	historyCap int
	now        func() time.Time
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		byID:       make(map[string]record),
		historyCap: defaultHistoryCap,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyDelta implements Store.ApplyDelta, last-writer-wins.
func (s *TreapStore) ApplyDelta(ctx context.Context, delta types.RatingDelta, name string) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	nr := toFixedPoint(delta.NewRating)

	s.mu.Lock()
	old, existed := s.byID[delta.CandidateID]
	if existed {
		if nr == old.rating && delta.WinsDelta == 0 && delta.LossesDelta == 0 && (name == "" || name == old.name) {
			s.mu.Unlock()
			return false, nil
		}
		s.root = remove(s.root, delta.CandidateID, old.rating)
	}
	rec := record{rating: nr, name: name, wins: delta.WinsDelta, losses: delta.LossesDelta}
	if existed {
		if name == "" {
			rec.name = old.name
		}
		rec.wins = old.wins + delta.WinsDelta
		rec.losses = old.losses + delta.LossesDelta
	}
	s.byID[delta.CandidateID] = rec
	s.root = insert(s.root, delta.CandidateID, nr)
	s.appendHistory(types.Snapshot{
		Timestamp:   s.now(),
		CandidateID: delta.CandidateID,
		Rating:      delta.NewRating,
	})
	total := len(s.byID)
	s.mu.Unlock()

	metrics.RecordRatingUpdate()
	metrics.UpdateRepositoryRecordsTotal(total)
	return true, nil
}

// appendHistory records a snapshot, trimming the oldest quarter when the
// log reaches capacity. Must be called with s.mu held.
func (s *TreapStore) appendHistory(snap types.Snapshot) {
	if s.historyCap > 0 && len(s.history) >= s.historyCap {
		keepFrom := s.historyCap / 4
		s.history = append(s.history[:0], s.history[keepFrom:]...)
	}
	s.history = append(s.history, snap)
}

// PriorRatings implements Store.PriorRatings.
func (s *TreapStore) PriorRatings(ctx context.Context, ids []string) []types.Rating {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Rating, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.byID[id]; ok {
			out = append(out, types.Rating{
				CandidateID: id,
				Value:       toFloat(rec.rating),
				Wins:        rec.wins,
				Losses:      rec.losses,
			})
		}
	}
	return out
}

// Rank returns the leaderboard row for one candidate in O(log n) expected.
func (s *TreapStore) Rank(ctx context.Context, candidateID string) (types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[candidateID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.Entry{}, ErrNotFound
	}
	return types.Entry{
		Rank:        position(s.root, candidateID, rec.rating),
		CandidateID: candidateID,
		Name:        rec.name,
		Rating:      toFloat(rec.rating),
		Wins:        rec.wins,
		Losses:      rec.losses,
	}, nil
}

// TopN returns the top N entries ordered by rating desc.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Entry, 0, n)
	collectTop(s.root, n, s.byID, &out)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// Ratings returns the full rating population.
func (s *TreapStore) Ratings(ctx context.Context) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]float64, 0, len(s.byID))
	for _, rec := range s.byID {
		out = append(out, toFloat(rec.rating))
	}
	return out
}

// History returns the recorded snapshots in time order.
func (s *TreapStore) History(ctx context.Context) []types.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Snapshot(nil), s.history...)
}

// Count returns the total number of candidates.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
