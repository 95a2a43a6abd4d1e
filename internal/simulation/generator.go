package simulation

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/okian/purrank/pkg/logger"
)

// Name corpus for generated candidates. Combinations are suffixed with a
// counter once the corpus is exhausted, so candidate names stay readable at
// any scale.
var (
	namePrefixes = []string{
		"Whiskers", "Mittens", "Shadow", "Luna", "Oliver", "Biscuit",
		"Pepper", "Clementine", "Maple", "Ziggy", "Noodle", "Pumpkin",
		"Juniper", "Mochi", "Tater", "Waffles",
	}
	nameSuffixes = []string{
		"the Bold", "the Fluffy", "the Swift", "the Wise", "the Sleepy",
		"the Mighty", "the Curious", "the Gentle",
	}
)

// generateCandidates creates n candidates with unique ids and corpus names.
func generateCandidates(ctx context.Context, n int) []Candidate {
	logger.Get().Info(ctx, "generating candidates", logger.Int("count", n))

	candidates := make([]Candidate, n)
	for i := 0; i < n; i++ {
		name := namePrefixes[i%len(namePrefixes)] + " " + nameSuffixes[(i/len(namePrefixes))%len(nameSuffixes)]
		if i >= len(namePrefixes)*len(nameSuffixes) {
			name += " " + strconv.Itoa(i/(len(namePrefixes)*len(nameSuffixes)))
		}
		candidates[i] = Candidate{
			ID:   uuid.New().String(),
			Name: name,
		}
	}
	return candidates
}
