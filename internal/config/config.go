// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - All loading functions accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"

	"github.com/okian/purrank/internal/domain/rating"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// UpdateQueueSize bounds the in-memory rating update queue.
	UpdateQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of persistence workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the delta deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// KFactor sets the rating sensitivity per match.
	KFactor float64 `koanf:"k_factor"`

	// InitialRating is assigned to candidates without a prior rating.
	InitialRating float64 `koanf:"initial_rating"`

	// RatingFloor and RatingCeiling clamp post-match ratings.
	RatingFloor   float64 `koanf:"rating_floor"`
	RatingCeiling float64 `koanf:"rating_ceiling"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// HistoryBucketsMax caps GET /history?buckets.
	HistoryBucketsMax int `koanf:"history_buckets_max"`

	// HistoryCapacity bounds retained rating snapshots in the store.
	HistoryCapacity int `koanf:"history_capacity"`

	// MaxSessions bounds concurrently tracked tournament sessions.
	MaxSessions int `koanf:"max_sessions"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and currently
// unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		UpdateQueueSize:     10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          50_000,
		KFactor:             rating.DefaultKFactor,
		InitialRating:       rating.DefaultRating,
		RatingFloor:         0,
		RatingCeiling:       1_000_000_000,
		MaxLeaderboardLimit: 100,
		HistoryBucketsMax:   500,
		HistoryCapacity:     10_000,
		MaxSessions:         10_000,
	}
	return c
}
