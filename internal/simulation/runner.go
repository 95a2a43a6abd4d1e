package simulation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/purrank/pkg/logger"
)

// Run executes the complete simulation: generate candidates, drive every
// tournament to completion with the configured voter, then verify the
// outcome against the voter's known preference order.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	if config.Verbose {
		_ = logger.SetLevelString("debug")
	}

	logger.Get().Info(ctx, "starting tournament simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("candidates", config.Candidates),
		logger.Int("tournaments", config.Tournaments),
		logger.Int("workers", config.Workers),
		logger.String("voter", config.Voter),
		logger.String("timeout", config.Timeout.String()),
	)

	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := client.checkServiceHealth(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Run tournaments concurrently
	if err := runTournaments(ctx, config, client, stats); err != nil {
		return fmt.Errorf("tournament run failed: %w", err)
	}

	// Step 3: Fetch the leaderboard once ratings have drained
	leaderboard, err := client.fetchLeaderboard(ctx, config.TopN)
	if err != nil {
		logger.Get().Warn(ctx, "leaderboard retrieval failed", logger.Error(err))
	} else {
		stats.LeaderboardEntries = len(leaderboard)
		if err := verifyLeaderboard(ctx, leaderboard, stats); err != nil {
			return fmt.Errorf("leaderboard verification failed: %w", err)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.VerificationFailures > 0 {
		return fmt.Errorf("simulation finished with %d verification failures", stats.VerificationFailures)
	}
	return nil
}

// runTournaments drives config.Tournaments tournaments across a worker
// pool. Each tournament gets its own candidate set and voter so runs do
// not interfere with one another.
func runTournaments(ctx context.Context, config *Config, client *HTTPClient, stats *Stats) error {
	var (
		started   int64
		completed int64
		failed    int64
		votes     int64
	)

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := config.Workers
	if workers > config.Tournaments {
		workers = config.Tournaments
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddInt64(&started, 1)
				voter, err := newVoter(&Config{Voter: config.Voter, Seed: config.Seed + int64(job)})
				if err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				n, err := runOneTournament(ctx, config, client, voter)
				atomic.AddInt64(&votes, int64(n))
				if err != nil {
					atomic.AddInt64(&failed, 1)
					if ctx.Err() == nil {
						logger.Get().Error(ctx, "tournament failed",
							logger.Int("worker", workerID),
							logger.Int("job", job),
							logger.Error(err),
						)
					}
					continue
				}
				atomic.AddInt64(&completed, 1)
			}
		}(w)
	}

	for i := 0; i < config.Tournaments; i++ {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	stats.TournamentsStarted = int(started)
	stats.TournamentsCompleted = int(completed)
	stats.TournamentsFailed = int(failed)
	stats.VotesSubmitted = int(votes)
	stats.ComparisonsAnswered = int(votes)
	stats.VerificationFailures += int(failed)
	return nil
}

// runOneTournament creates a session, answers every comparison with the
// voter, and verifies the final ranking. Returns the vote count.
func runOneTournament(ctx context.Context, config *Config, client *HTTPClient, voter Voter) (int, error) {
	candidates := generateCandidates(ctx, config.Candidates)

	start, err := client.startTournament(ctx, candidates)
	if err != nil {
		return 0, err
	}

	votes := 0
	for {
		next, err := client.nextComparison(ctx, start.SessionID)
		if err != nil {
			return votes, err
		}
		if next.Done {
			break
		}
		if next.Comparison == nil {
			return votes, fmt.Errorf("session %s: neither comparison nor done", start.SessionID)
		}

		winner, loser := voter.Pick(*next.Comparison)
		if _, err := client.submitVote(ctx, start.SessionID, winner, loser); err != nil {
			return votes, err
		}
		votes++
	}

	result, err := client.fetchResult(ctx, start.SessionID)
	if err != nil {
		return votes, err
	}
	if err := verifyTournament(ctx, candidates, votes, result, voter); err != nil {
		return votes, fmt.Errorf("session %s: %w", start.SessionID, err)
	}
	return votes, nil
}

// displayFinalStats logs a summary of the simulation run.
func displayFinalStats(ctx context.Context, stats *Stats) {
	successRate := 0.0
	if stats.TournamentsStarted > 0 {
		successRate = float64(stats.TournamentsCompleted) / float64(stats.TournamentsStarted) * PercentageMultiplier
	}

	logger.Get().Info(ctx, "simulation finished",
		logger.Int("tournamentsStarted", stats.TournamentsStarted),
		logger.Int("tournamentsCompleted", stats.TournamentsCompleted),
		logger.Int("tournamentsFailed", stats.TournamentsFailed),
		logger.Int("votesSubmitted", stats.VotesSubmitted),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Int("verificationFailures", stats.VerificationFailures),
		logger.Float64("successRatePct", successRate),
		logger.Duration("duration", stats.Duration),
	)
}
