// Package types contains common types used across the application
package types

import "time"

// Candidate is one nameable item being ranked in a tournament.
// The engine only ever reads candidates; it never mutates them.
type Candidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Comparison is a pending question: which of the two candidates wins.
// Produced and consumed one at a time.
type Comparison struct {
	Left  Candidate `json:"left"`
	Right Candidate `json:"right"`
}

// Vote is the resolved answer to a Comparison. There are no ties.
type Vote struct {
	WinnerID string `json:"winner_id"`
	LoserID  string `json:"loser_id"`
}

// Rating is a persistent, cross-tournament strength record for a candidate.
type Rating struct {
	CandidateID string  `json:"candidate_id"`
	Value       float64 `json:"value"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
}

// RatingDelta describes how one candidate's rating changed over a completed
// tournament. NewRating is the absolute value after the session, not an
// increment; the store applies it last-writer-wins.
type RatingDelta struct {
	CandidateID string  `json:"candidate_id"`
	OldRating   float64 `json:"old_rating"`
	NewRating   float64 `json:"new_rating"`
	WinsDelta   int     `json:"wins_delta"`
	LossesDelta int     `json:"losses_delta"`
}

// Result is the immutable outcome of one completed tournament: the total
// order over the candidates plus one delta per candidate the decided votes
// touched.
type Result struct {
	Ranking []Candidate   `json:"ranking"`
	Deltas  []RatingDelta `json:"deltas"`
}

// Entry represents a leaderboard row.
type Entry struct {
	Rank        int     `json:"rank"`
	CandidateID string  `json:"candidate_id"`
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
}

// Snapshot is one historical rating observation, used to build ranking
// history series.
type Snapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	CandidateID string    `json:"candidate_id"`
	Rating      float64   `json:"rating"`
}
