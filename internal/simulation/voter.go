package simulation

import (
	"fmt"
	"math/rand"
)

// Voter decides every comparison the service hands back. Implementations
// must be deterministic for a fixed construction so verification can
// predict the final order.
type Voter interface {
	// Pick returns the winner and loser of a comparison.
	Pick(c Comparison) (winnerID, loserID string)
}

// alphabeticalVoter prefers the lexicographically smaller name, falling
// back to id. Its expected final ranking is a plain sort by name.
type alphabeticalVoter struct{}

func (alphabeticalVoter) Pick(c Comparison) (string, string) {
	if less(c.Left, c.Right) {
		return c.Left.ID, c.Right.ID
	}
	return c.Right.ID, c.Left.ID
}

func less(a, b Candidate) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

// randomVoter assigns each candidate a hidden strength from a seeded
// source on first sight and always votes for the stronger one. The hidden
// order is a total order, so results remain verifiable.
type randomVoter struct {
	rng      *rand.Rand
	strength map[string]float64
}

func newRandomVoter(seed int64) *randomVoter {
	return &randomVoter{
		rng:      rand.New(rand.NewSource(seed)),
		strength: make(map[string]float64),
	}
}

func (v *randomVoter) Pick(c Comparison) (string, string) {
	if v.strengthOf(c.Left) > v.strengthOf(c.Right) {
		return c.Left.ID, c.Right.ID
	}
	return c.Right.ID, c.Left.ID
}

func (v *randomVoter) strengthOf(c Candidate) float64 {
	if s, ok := v.strength[c.ID]; ok {
		return s
	}
	s := v.rng.Float64()
	v.strength[c.ID] = s
	return s
}

// newVoter builds the strategy named by the config.
func newVoter(config *Config) (Voter, error) {
	switch config.Voter {
	case "", VoterAlphabetical:
		return alphabeticalVoter{}, nil
	case VoterRandom:
		return newRandomVoter(config.Seed), nil
	default:
		return nil, fmt.Errorf("unknown voter strategy %q", config.Voter)
	}
}
