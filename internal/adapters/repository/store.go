// Package repository defines the rating store interface and errors.
package repository

import (
	"context"

	"github.com/okian/purrank/internal/domain/types"
)

// Store provides read/write access to persistent candidate ratings.
//
// Writes are last-writer-wins: ApplyDelta overwrites the stored
// rating with the session's final value. Two concurrent tournaments that
// touched the same candidate will race, and the later write wins; callers
// needing stronger consistency must serialize per candidate above this
// layer.
type Store interface {
	// ApplyDelta stores a completed session's outcome for one candidate:
	// the rating is overwritten with delta.NewRating and the win/loss
	// counters are accumulated. Returns true if the record changed.
	ApplyDelta(ctx context.Context, delta types.RatingDelta, name string) (bool, error)

	// PriorRatings returns the current rating snapshot for the given
	// candidates. Unknown candidates are simply absent; the engine applies
	// its default for them.
	PriorRatings(ctx context.Context, ids []string) []types.Rating

	// Rank returns the leaderboard row for a candidate.
	// Returns ErrNotFound if the candidate is unknown.
	Rank(ctx context.Context, candidateID string) (types.Entry, error)

	// TopN returns the top-N entries ordered by rating desc.
	TopN(ctx context.Context, n int) ([]types.Entry, error)

	// Ratings returns the full rating population, used for percentile
	// standing.
	Ratings(ctx context.Context) []float64

	// History returns the recorded rating snapshots in time order.
	History(ctx context.Context) []types.Snapshot

	// Count returns the number of candidates tracked.
	Count(ctx context.Context) int
}
