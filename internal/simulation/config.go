package simulation

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Candidates  int           // Number of candidates per tournament
	Tournaments int           // Number of tournaments to run
	Workers     int           // Number of concurrent tournament runners
	Voter       string        // Voter strategy: alphabetical or random
	Seed        int64         // Seed for the random voter
	TopN        int           // Number of top entries to fetch afterwards
	Timeout     time.Duration // HTTP request timeout
	LogFile     string        // Log file for simulation output
	Verbose     bool          // Enable verbose logging
}

// Candidate mirrors the API candidate shape.
type Candidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Comparison mirrors the API comparison shape.
type Comparison struct {
	Left  Candidate `json:"left"`
	Right Candidate `json:"right"`
}

// Entry mirrors a leaderboard entry.
type Entry struct {
	Rank        int     `json:"rank"`
	CandidateID string  `json:"candidate_id"`
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
}

// RatingDelta mirrors one candidate's rating change in a result payload.
type RatingDelta struct {
	CandidateID string  `json:"candidate_id"`
	OldRating   float64 `json:"old_rating"`
	NewRating   float64 `json:"new_rating"`
	WinsDelta   int     `json:"wins_delta"`
	LossesDelta int     `json:"losses_delta"`
}

// Result mirrors the final tournament result payload.
type Result struct {
	State   string        `json:"state"`
	Ranking []Candidate   `json:"ranking"`
	Deltas  []RatingDelta `json:"deltas"`
}

// Stats holds simulation statistics.
type Stats struct {
	TournamentsStarted   int
	TournamentsCompleted int
	TournamentsFailed    int
	VotesSubmitted       int
	ComparisonsAnswered  int
	LeaderboardEntries   int
	VerificationFailures int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}
