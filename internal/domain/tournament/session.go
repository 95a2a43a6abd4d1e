// Package tournament implements the session state machine that drives one
// tournament from setup through voting to completion.
//
// A session owns one sorter, feeds it the caller's votes, and on completion
// replays every directly-decided pair through the rating model to produce
// the final ranking plus one rating delta per participating candidate.
//
// Sessions are synchronous and single-threaded: NextComparison and
// RecordVote are plain calls, and the session blocks on nothing. Each
// session owns its own copy of the prior ratings taken at Start, so
// concurrent sessions share no mutable state; divergent writes for the same
// candidate are a last-writer-wins hazard at the store, not here.
package tournament

import (
	"fmt"
	"math"

	"github.com/okian/purrank/internal/domain/rating"
	"github.com/okian/purrank/internal/domain/sorter"
	"github.com/okian/purrank/internal/domain/types"
)

// State is the lifecycle phase of a session.
type State int

// Session lifecycle states. There are no transitions out of Completed or
// Abandoned.
const (
	StateSetup State = iota
	StateVoting
	StateCompleted
	StateAbandoned
)

// String returns the lowercase state name used in logs and API payloads.
func (s State) String() string {
	switch s {
	case StateSetup:
		return "setup"
	case StateVoting:
		return "voting"
	case StateCompleted:
		return "completed"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithModel sets the rating model used to score the outcome.
func WithModel(m *rating.Model) Option {
	return func(s *Session) {
		if m != nil {
			s.model = m
		}
	}
}

// WithID sets the session identifier.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// working tracks a candidate's evolving rating during delta computation.
type working struct {
	prior  types.Rating
	value  float64
	wins   int
	losses int
	voted  bool
}

// Session is the state machine for one tournament.
type Session struct {
	id     string
	state  State
	model  *rating.Model
	sorter *sorter.Sorter

	candidates []types.Candidate
	prior      map[string]types.Rating
	result     *types.Result
}

// New creates a session in the Setup state.
func New(opts ...Option) *Session {
	s := &Session{
		state: StateSetup,
		model: rating.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier, if one was set.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Start validates the candidate set, snapshots the prior ratings, and moves
// the session into Voting. Candidates with no prior record default to
// rating.DefaultRating. Duplicate candidate ids and non-finite prior
// ratings are input errors reported here, not later. Zero or one candidates
// complete the session immediately with no comparisons and no deltas.
func (s *Session) Start(candidates []types.Candidate, prior []types.Rating) error {
	if s.state != StateSetup {
		return fmt.Errorf("%w: session is %s", ErrAlreadyStarted, s.state)
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateCandidate, c.ID)
		}
		seen[c.ID] = struct{}{}
	}

	s.prior = make(map[string]types.Rating, len(prior))
	for _, r := range prior {
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			return fmt.Errorf("%w: prior rating for %q", rating.ErrInvalidRating, r.CandidateID)
		}
		s.prior[r.CandidateID] = r
	}

	s.candidates = append([]types.Candidate(nil), candidates...)
	s.sorter = sorter.New(s.candidates)

	if s.sorter.Done() {
		// Nothing to vote on; no pairs were decided, so no deltas either.
		s.result = &types.Result{Ranking: s.sorter.Ranking(), Deltas: []types.RatingDelta{}}
		s.state = StateCompleted
		return nil
	}
	s.state = StateVoting
	return nil
}

// NextComparison returns the pending comparison. Once the session is
// terminal it returns false; polling a finished session is legal and
// idempotent, not an error.
func (s *Session) NextComparison() (types.Comparison, bool) {
	if s.state != StateVoting {
		return types.Comparison{}, false
	}
	return s.sorter.Next()
}

// RecordVote feeds the answer for the pending comparison. A vote that does
// not match the pending pair is rejected with sorter.ErrUnexpectedVote so a
// stale caller cannot corrupt the ranking. When the sorter finishes, the
// session computes the rating deltas and transitions to Completed.
func (s *Session) RecordVote(winnerID, loserID string) error {
	if s.state != StateVoting {
		return fmt.Errorf("%w: session is %s", ErrNotVoting, s.state)
	}
	if err := s.sorter.Apply(types.Vote{WinnerID: winnerID, LoserID: loserID}); err != nil {
		return err
	}
	if !s.sorter.Done() {
		return nil
	}

	deltas, err := s.computeDeltas()
	if err != nil {
		return err
	}
	s.result = &types.Result{Ranking: s.sorter.Ranking(), Deltas: deltas}
	s.state = StateCompleted
	return nil
}

// Abandon terminates a Voting session without computing any deltas. An
// abandoned tournament must never leave partial rating updates behind.
func (s *Session) Abandon() error {
	if s.state != StateVoting {
		return fmt.Errorf("%w: session is %s", ErrNotVoting, s.state)
	}
	s.result = &types.Result{Ranking: []types.Candidate{}, Deltas: []types.RatingDelta{}}
	s.state = StateAbandoned
	return nil
}

// Result returns the final ranking and deltas. It returns false until the
// session is Completed or Abandoned.
func (s *Session) Result() (types.Result, bool) {
	if s.result == nil {
		return types.Result{}, false
	}
	return *s.result, true
}

// Comparisons returns how many comparisons the session has emitted.
func (s *Session) Comparisons() int {
	if s.sorter == nil {
		return 0
	}
	return s.sorter.Comparisons()
}

// computeDeltas replays the directly-decided pairs, in vote order, against
// the prior snapshot. Each pair goes through the model exactly once; the
// vote list is authoritative, never an every-pair expansion.
func (s *Session) computeDeltas() ([]types.RatingDelta, error) {
	book := make(map[string]*working, len(s.candidates))
	for _, c := range s.candidates {
		w := &working{prior: types.Rating{CandidateID: c.ID, Value: rating.DefaultRating}}
		if p, ok := s.prior[c.ID]; ok {
			w.prior = p
		}
		w.value = w.prior.Value
		book[c.ID] = w
	}

	for _, v := range s.sorter.Votes() {
		winner, ok := book[v.WinnerID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCandidate, v.WinnerID)
		}
		loser, ok := book[v.LoserID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCandidate, v.LoserID)
		}

		nw, nl, err := s.model.ApplyResult(winner.value, loser.value)
		if err != nil {
			return nil, err
		}
		winner.value, loser.value = nw, nl
		winner.wins++
		loser.losses++
		winner.voted, loser.voted = true, true
	}

	// Deltas follow ranking order for a stable, deterministic payload.
	deltas := make([]types.RatingDelta, 0, len(s.candidates))
	for _, c := range s.sorter.Ranking() {
		w := book[c.ID]
		if !w.voted {
			continue
		}
		deltas = append(deltas, types.RatingDelta{
			CandidateID: c.ID,
			OldRating:   w.prior.Value,
			NewRating:   w.value,
			WinsDelta:   w.wins,
			LossesDelta: w.losses,
		})
	}
	return deltas, nil
}
