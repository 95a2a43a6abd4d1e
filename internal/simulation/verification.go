package simulation

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/purrank/pkg/logger"
)

// verifyTournament checks a completed tournament against properties that
// must hold for any consistent voter:
//   - the result is in the completed state
//   - the ranking is a permutation of the submitted candidates
//   - every adjacent pair in the ranking agrees with the voter
//   - the vote count never exceeds the merge sort worst case
//   - every candidate carries exactly one rating delta (when n >= 2)
func verifyTournament(ctx context.Context, candidates []Candidate, votes int, result Result, voter Voter) error {
	if result.State != "completed" {
		return fmt.Errorf("result state is %q, want completed", result.State)
	}

	if len(result.Ranking) != len(candidates) {
		return fmt.Errorf("ranking has %d entries, want %d", len(result.Ranking), len(candidates))
	}
	submitted := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		submitted[c.ID] = struct{}{}
	}
	for _, c := range result.Ranking {
		if _, ok := submitted[c.ID]; !ok {
			return fmt.Errorf("ranking contains unknown candidate %q", c.ID)
		}
		delete(submitted, c.ID)
	}
	if len(submitted) != 0 {
		return fmt.Errorf("%d candidates missing from ranking", len(submitted))
	}

	for i := 0; i+1 < len(result.Ranking); i++ {
		winner, _ := voter.Pick(Comparison{Left: result.Ranking[i], Right: result.Ranking[i+1]})
		if winner != result.Ranking[i].ID {
			return fmt.Errorf("ranking positions %d and %d disagree with the voter", i, i+1)
		}
	}

	n := len(candidates)
	if n > 1 {
		bound := int(math.Ceil(float64(n) * math.Log2(float64(n))))
		if votes > bound {
			return fmt.Errorf("%d votes exceed the %d comparison bound for %d candidates", votes, bound, n)
		}
		if len(result.Deltas) != n {
			return fmt.Errorf("result has %d deltas, want %d", len(result.Deltas), n)
		}
	}

	logger.Get().Debug(ctx, "tournament verified",
		logger.Int("candidates", n),
		logger.Int("votes", votes),
	)
	return nil
}

// verifyLeaderboard checks the leaderboard invariants: ranks are dense and
// ascending from one, and ratings never increase down the board.
func verifyLeaderboard(ctx context.Context, entries []Entry, stats *Stats) error {
	for i, e := range entries {
		if e.Rank != i+1 {
			stats.VerificationFailures++
			return fmt.Errorf("entry %d has rank %d, want %d", i, e.Rank, i+1)
		}
		if i > 0 && e.Rating > entries[i-1].Rating {
			stats.VerificationFailures++
			return fmt.Errorf("entry %d rating %.3f exceeds the entry above it", i, e.Rating)
		}
	}
	logger.Get().Info(ctx, "leaderboard verified", logger.Int("entries", len(entries)))
	return nil
}
