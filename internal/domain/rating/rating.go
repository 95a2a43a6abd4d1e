// Package rating implements the Elo-style rating model used to score
// tournament outcomes. All functions are pure; the package holds no state
// beyond the configured model parameters.
package rating

import (
	"errors"
	"math"
)

// Default model parameters.
const (
	// DefaultRating is the rating assumed for a candidate with no prior
	// record.
	DefaultRating = 1500.0

	// DefaultKFactor controls how far a single match moves a rating.
	DefaultKFactor = 32.0

	// Default bounds are effectively unbounded; they only exist to stop
	// runaway values from repeated lopsided match-ups.
	defaultFloor   = 0.0
	defaultCeiling = 1e9
)

// ErrInvalidRating reports a non-finite (NaN/Inf) rating input. The model
// never propagates NaN silently.
var ErrInvalidRating = errors.New("rating value is not finite")

// Option applies a configuration option to the Model.
type Option func(*Model)

// WithKFactor sets the K-factor. Non-positive values are ignored.
func WithKFactor(k float64) Option {
	return func(m *Model) {
		if k > 0 {
			m.kFactor = k
		}
	}
}

// WithBounds sets the floor and ceiling ratings are clamped to.
// Ignored unless floor < ceiling.
func WithBounds(floor, ceiling float64) Option {
	return func(m *Model) {
		if floor < ceiling {
			m.floor = floor
			m.ceiling = ceiling
		}
	}
}

// Model computes expected scores and post-match ratings.
type Model struct {
	kFactor float64
	floor   float64
	ceiling float64
}

// New creates a Model with the default parameters, adjusted by options.
func New(opts ...Option) *Model {
	m := &Model{
		kFactor: DefaultKFactor,
		floor:   defaultFloor,
		ceiling: defaultCeiling,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// KFactor returns the configured K-factor.
func (m *Model) KFactor() float64 { return m.kFactor }

// ExpectedScore returns the probability in (0,1) that a candidate rated a
// beats one rated b. ExpectedScore(a,b)+ExpectedScore(b,a) == 1 within
// floating-point tolerance.
func (m *Model) ExpectedScore(a, b float64) float64 {
	return 1.0 / (1.0 + math.Pow(10.0, (b-a)/400.0))
}

// ApplyResult computes post-match ratings for a decided pair. The winner
// gains kFactor*(1-expected) and the loser loses the same amount, so a
// single match is zero-sum before clamping. Applying the same result twice
// doubles the effect; callers apply each directly-decided pair exactly once.
func (m *Model) ApplyResult(winner, loser float64) (newWinner, newLoser float64, err error) {
	if err := validate(winner); err != nil {
		return 0, 0, err
	}
	if err := validate(loser); err != nil {
		return 0, 0, err
	}

	expected := m.ExpectedScore(winner, loser)
	change := m.kFactor * (1.0 - expected)

	newWinner = m.clamp(winner + change)
	newLoser = m.clamp(loser - change)
	return newWinner, newLoser, nil
}

// validate rejects NaN and Inf rating inputs.
func validate(rating float64) error {
	if math.IsNaN(rating) || math.IsInf(rating, 0) {
		return ErrInvalidRating
	}
	return nil
}

// clamp keeps a rating within the configured bounds.
func (m *Model) clamp(rating float64) float64 {
	if rating < m.floor {
		return m.floor
	}
	if rating > m.ceiling {
		return m.ceiling
	}
	return rating
}
