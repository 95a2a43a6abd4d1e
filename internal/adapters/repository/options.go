package repository

import "time"

// defaultHistoryCap bounds the in-memory snapshot log.
const defaultHistoryCap = 10_000

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithHistoryCapacity bounds the snapshot history log. Zero or negative
// disables the bound.
func WithHistoryCapacity(n int) Option {
	return func(s *TreapStore) {
		s.historyCap = n
	}
}

// WithClock overrides the timestamp source for history snapshots. Used by
// tests that need deterministic bucketing.
func WithClock(now func() time.Time) Option {
	return func(s *TreapStore) {
		if now != nil {
			s.now = now
		}
	}
}
