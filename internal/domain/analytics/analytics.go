// Package analytics provides post-hoc aggregation over rating snapshots:
// percentile standing and time-bucketed ranking history ("bump chart")
// series. All functions are pure and operate on caller-supplied data; they
// never touch the live rating store.
package analytics

import (
	"errors"
	"sort"

	"github.com/okian/purrank/internal/domain/types"
)

// NoData marks a bucket where a candidate has no snapshot. It is
// deliberately not 0, which a consumer could misread as a rank.
const NoData = -1

// ErrInvalidBucketCount reports a non-positive bucket count.
var ErrInvalidBucketCount = errors.New("bucket count must be positive")

// Percentile returns the relative standing of value within population as a
// percentage in [0,100], using the midpoint convention: the fraction
// strictly below plus half the fraction exactly equal. An empty population
// yields 0 rather than an error; "no data" is a legitimate steady state for
// a new candidate.
func Percentile(value float64, population []float64) float64 {
	if len(population) == 0 {
		return 0
	}
	below, equal := 0, 0
	for _, v := range population {
		switch {
		case v < value:
			below++
		case v == value:
			equal++
		}
	}
	return 100.0 * (float64(below) + float64(equal)/2.0) / float64(len(population))
}

// Series is one candidate's rank across the time buckets. Ranks holds one
// entry per bucket; buckets where the candidate has no snapshot carry
// NoData, so consumers must handle sparse series.
type Series struct {
	CandidateID string `json:"candidate_id"`
	Ranks       []int  `json:"ranks"`
}

// BuildRankingHistory buckets the snapshots into bucketCount time buckets
// and returns, per candidate, its 1-based rank within each bucket. A
// candidate's rating in a bucket is its latest snapshot there; ranks order
// by rating descending with candidate id ascending as tie-break. Snapshots
// must already be ordered by time. An empty snapshot list yields an empty
// result.
func BuildRankingHistory(snapshots []types.Snapshot, bucketCount int) ([]Series, error) {
	if bucketCount < 1 {
		return nil, ErrInvalidBucketCount
	}
	if len(snapshots) == 0 {
		return []Series{}, nil
	}

	first := snapshots[0].Timestamp
	last := snapshots[len(snapshots)-1].Timestamp
	window := last.Sub(first)

	// ratings[b] maps candidate -> latest rating seen inside bucket b.
	ratings := make([]map[string]float64, bucketCount)
	for i := range ratings {
		ratings[i] = make(map[string]float64)
	}

	order := make([]string, 0)
	seen := make(map[string]struct{})
	for _, snap := range snapshots {
		b := 0
		if window > 0 {
			b = int(int64(bucketCount) * int64(snap.Timestamp.Sub(first)) / int64(window))
			if b >= bucketCount {
				b = bucketCount - 1
			}
			if b < 0 {
				b = 0
			}
		}
		ratings[b][snap.CandidateID] = snap.Rating
		if _, ok := seen[snap.CandidateID]; !ok {
			seen[snap.CandidateID] = struct{}{}
			order = append(order, snap.CandidateID)
		}
	}

	series := make(map[string]*Series, len(order))
	for _, id := range order {
		s := &Series{CandidateID: id, Ranks: make([]int, bucketCount)}
		for i := range s.Ranks {
			s.Ranks[i] = NoData
		}
		series[id] = s
	}

	for b, bucket := range ratings {
		ids := make([]string, 0, len(bucket))
		for id := range bucket {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			if bucket[ids[i]] != bucket[ids[j]] {
				return bucket[ids[i]] > bucket[ids[j]]
			}
			return ids[i] < ids[j]
		})
		for pos, id := range ids {
			series[id].Ranks[b] = pos + 1
		}
	}

	out := make([]Series, 0, len(order))
	for _, id := range order {
		out = append(out, *series[id])
	}
	return out, nil
}
