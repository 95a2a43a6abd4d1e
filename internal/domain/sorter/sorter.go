// Package sorter implements an interactive comparison sort over a candidate
// set. It runs a bottom-up merge sort where every comparison is resolved by
// an external voter: the caller pulls the next pending pair with Next, gets
// the human's answer, and pushes it back with Apply. For N candidates this
// asks O(N log N) questions instead of the naive N^2 round-robin.
//
// The sorter is synchronous and single-threaded; "suspension" between Next
// and Apply is purely logical. For a fixed candidate order and vote sequence
// the emitted comparisons and the final ranking are fully deterministic.
package sorter

import (
	"fmt"

	"github.com/okian/purrank/internal/domain/types"
)

// span is a half-open [start, end) range of run indices into the arena.
type span struct {
	start int
	end   int
}

func (s span) empty() bool { return s.start >= s.end }

// Sorter holds the working state of one in-progress sort: the arena of
// candidates in current-pass order, the output being merged, and the two
// runs currently under merge. State is never exposed to callers.
type Sorter struct {
	arena []types.Candidate // current pass input, runs of length width are sorted
	out   []types.Candidate // merged output of the current pass
	width int               // run width for the current pass
	lo    int               // start of the chunk being merged
	left  span              // unmerged remainder of the left run
	right span              // unmerged remainder of the right run

	merging     bool
	pending     *types.Comparison
	votes       []types.Vote
	comparisons int
	done        bool
}

// New creates a sorter over candidates. The slice is copied; the caller's
// ordering is preserved and determines the comparison schedule. Zero or one
// candidates complete immediately with no comparisons.
func New(candidates []types.Candidate) *Sorter {
	s := &Sorter{
		arena: append([]types.Candidate(nil), candidates...),
		width: 1,
	}
	if len(s.arena) <= 1 {
		s.done = true
		return s
	}
	s.out = make([]types.Candidate, 0, len(s.arena))
	// The first advance cannot fail: all indices start in range.
	_ = s.advance()
	return s
}

// Next returns the pending comparison, or false once the sort is complete.
// Calling Next repeatedly without an intervening Apply returns the same pair.
func (s *Sorter) Next() (types.Comparison, bool) {
	if s.done || s.pending == nil {
		return types.Comparison{}, false
	}
	return *s.pending, true
}

// Apply resolves the pending comparison with a vote. The vote must name
// exactly the two pending candidates, in either order; anything else is
// ErrUnexpectedVote and leaves the sorter untouched.
func (s *Sorter) Apply(v types.Vote) error {
	if s.done || s.pending == nil {
		return fmt.Errorf("%w: no comparison pending", ErrUnexpectedVote)
	}

	p := *s.pending
	var winner *span
	switch {
	case v.WinnerID == p.Left.ID && v.LoserID == p.Right.ID:
		winner = &s.left
	case v.WinnerID == p.Right.ID && v.LoserID == p.Left.ID:
		winner = &s.right
	default:
		return fmt.Errorf("%w: got %q over %q, want %q vs %q",
			ErrUnexpectedVote, v.WinnerID, v.LoserID, p.Left.ID, p.Right.ID)
	}

	c, err := s.at(winner.start)
	if err != nil {
		return err
	}
	s.out = append(s.out, c)
	winner.start++

	s.votes = append(s.votes, v)
	s.pending = nil
	return s.advance()
}

// Done reports whether the sort has produced a total order.
func (s *Sorter) Done() bool { return s.done }

// Ranking returns the total order, most preferred first. It returns nil
// until the sort is done.
func (s *Sorter) Ranking() []types.Candidate {
	if !s.done {
		return nil
	}
	return append([]types.Candidate(nil), s.arena...)
}

// Votes returns the directly-decided pairs, in the order they were resolved.
// Pairs ordered only transitively are not included; this is exactly the set
// a rating model should consume.
func (s *Sorter) Votes() []types.Vote {
	return append([]types.Vote(nil), s.votes...)
}

// Comparisons returns the number of comparisons emitted so far.
func (s *Sorter) Comparisons() int { return s.comparisons }

// advance drives the merge machinery until it either parks on a comparison
// that needs a vote or completes the sort.
func (s *Sorter) advance() error {
	for {
		if s.merging {
			if !s.left.empty() && !s.right.empty() {
				l, err := s.at(s.left.start)
				if err != nil {
					return err
				}
				r, err := s.at(s.right.start)
				if err != nil {
					return err
				}
				s.pending = &types.Comparison{Left: l, Right: r}
				s.comparisons++
				return nil
			}
			// One run is exhausted; the other's tail is already ordered
			// by transitivity and flushes without further questions.
			if err := s.flush(s.left); err != nil {
				return err
			}
			if err := s.flush(s.right); err != nil {
				return err
			}
			s.left, s.right = span{}, span{}
			s.merging = false
			s.lo += 2 * s.width
			continue
		}

		n := len(s.arena)
		if s.lo >= n {
			// Pass complete: the output becomes the next pass's input
			// with doubled run width.
			s.arena, s.out = s.out, s.arena[:0]
			s.width *= 2
			s.lo = 0
			if s.width >= n {
				s.done = true
				s.out = nil
				return nil
			}
			continue
		}

		mid := min(s.lo+s.width, n)
		hi := min(s.lo+2*s.width, n)
		if mid >= hi {
			// Lone tail run with nothing to merge against; carry it over.
			if err := s.flush(span{start: s.lo, end: hi}); err != nil {
				return err
			}
			s.lo = hi
			continue
		}
		s.left = span{start: s.lo, end: mid}
		s.right = span{start: mid, end: hi}
		s.merging = true
	}
}

// flush copies the remaining elements of a run to the output.
func (s *Sorter) flush(sp span) error {
	if sp.start < 0 || sp.end > len(s.arena) {
		return fmt.Errorf("%w: run [%d,%d) outside arena of %d",
			ErrCorruptState, sp.start, sp.end, len(s.arena))
	}
	for k := sp.start; k < sp.end; k++ {
		c, err := s.at(k)
		if err != nil {
			return err
		}
		s.out = append(s.out, c)
	}
	return nil
}

// at is the single bounds-checked arena accessor. An out-of-range index is
// an implementation bug and fails loudly rather than clamping.
func (s *Sorter) at(i int) (types.Candidate, error) {
	if i < 0 || i >= len(s.arena) {
		return types.Candidate{}, fmt.Errorf("%w: index %d outside arena of %d",
			ErrCorruptState, i, len(s.arena))
	}
	return s.arena[i], nil
}
