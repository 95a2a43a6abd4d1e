package repository

import "errors"

// Sentinel kinds for rating store errors.
var (
	ErrNotFound     = errors.New("candidate not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)
