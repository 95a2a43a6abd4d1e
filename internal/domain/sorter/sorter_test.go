package sorter_test

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/okian/purrank/internal/domain/sorter"
	"github.com/okian/purrank/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// candidateSet builds n candidates with ids c00, c01, ...
func candidateSet(n int) []types.Candidate {
	out := make([]types.Candidate, n)
	for i := range out {
		out[i] = types.Candidate{
			ID:   fmt.Sprintf("c%02d", i),
			Name: fmt.Sprintf("candidate %02d", i),
		}
	}
	return out
}

// drive answers every comparison with the given preference until the sorter
// finishes, returning the number of votes it took.
func drive(s *sorter.Sorter, prefer func(a, b types.Candidate) bool) (int, error) {
	votes := 0
	for {
		c, ok := s.Next()
		if !ok {
			return votes, nil
		}
		v := types.Vote{WinnerID: c.Left.ID, LoserID: c.Right.ID}
		if !prefer(c.Left, c.Right) {
			v = types.Vote{WinnerID: c.Right.ID, LoserID: c.Left.ID}
		}
		if err := s.Apply(v); err != nil {
			return votes, err
		}
		votes++
	}
}

func byID(a, b types.Candidate) bool { return a.ID < b.ID }

func TestSorterOrdering(t *testing.T) {
	Convey("Given candidate sets of assorted sizes", t, func() {
		for _, n := range []int{2, 3, 5, 8, 13, 16, 33, 64} {
			n := n
			Convey(fmt.Sprintf("When sorting %d shuffled candidates by id", n), func() {
				candidates := candidateSet(n)
				rng := rand.New(rand.NewSource(int64(n)))
				rng.Shuffle(n, func(i, j int) {
					candidates[i], candidates[j] = candidates[j], candidates[i]
				})

				s := sorter.New(candidates)
				votes, err := drive(s, byID)

				Convey("Then the ranking is the full set in preference order", func() {
					So(err, ShouldBeNil)
					So(s.Done(), ShouldBeTrue)

					ranking := s.Ranking()
					So(len(ranking), ShouldEqual, n)
					for i := 0; i+1 < len(ranking); i++ {
						So(ranking[i].ID, ShouldBeLessThan, ranking[i+1].ID)
					}
				})

				Convey("Then the vote count respects the merge sort bound", func() {
					So(err, ShouldBeNil)
					bound := int(math.Ceil(float64(n) * math.Log2(float64(n))))
					So(votes, ShouldBeLessThanOrEqualTo, bound)
					So(votes, ShouldEqual, s.Comparisons())
					So(votes, ShouldBeGreaterThanOrEqualTo, n-1)
				})
			})
		}
	})
}

func TestSorterDegenerateInputs(t *testing.T) {
	Convey("Given an empty candidate set", t, func() {
		s := sorter.New(nil)

		Convey("Then the sorter is done immediately", func() {
			So(s.Done(), ShouldBeTrue)
			_, ok := s.Next()
			So(ok, ShouldBeFalse)
			So(s.Ranking(), ShouldBeEmpty)
			So(s.Comparisons(), ShouldEqual, 0)
		})
	})

	Convey("Given a single candidate", t, func() {
		only := types.Candidate{ID: "solo", Name: "Solo"}
		s := sorter.New([]types.Candidate{only})

		Convey("Then it wins without any comparisons", func() {
			So(s.Done(), ShouldBeTrue)
			ranking := s.Ranking()
			So(len(ranking), ShouldEqual, 1)
			So(ranking[0].ID, ShouldEqual, "solo")
			So(s.Comparisons(), ShouldEqual, 0)
		})
	})
}

func TestSorterVoteValidation(t *testing.T) {
	Convey("Given a sorter with a pending comparison", t, func() {
		s := sorter.New(candidateSet(4))
		c, ok := s.Next()
		So(ok, ShouldBeTrue)

		Convey("When a vote names a pair that is not pending", func() {
			err := s.Apply(types.Vote{WinnerID: "c00", LoserID: "stranger"})

			Convey("Then the vote is rejected and the comparison stays pending", func() {
				So(err, ShouldWrap, sorter.ErrUnexpectedVote)
				again, stillPending := s.Next()
				So(stillPending, ShouldBeTrue)
				So(again, ShouldResemble, c)
			})
		})

		Convey("When the vote arrives in the reversed orientation", func() {
			err := s.Apply(types.Vote{WinnerID: c.Right.ID, LoserID: c.Left.ID})

			Convey("Then it is accepted", func() {
				So(err, ShouldBeNil)
				So(s.Comparisons(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a finished sorter", t, func() {
		s := sorter.New(candidateSet(2))
		_, err := drive(s, byID)
		So(err, ShouldBeNil)

		Convey("When another vote arrives", func() {
			err := s.Apply(types.Vote{WinnerID: "c00", LoserID: "c01"})

			Convey("Then it is rejected", func() {
				So(err, ShouldWrap, sorter.ErrUnexpectedVote)
			})
		})

		Convey("When Next is polled repeatedly", func() {
			_, first := s.Next()
			_, second := s.Next()

			Convey("Then polling stays idempotent", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeFalse)
			})
		})
	})
}

func TestSorterDeterminism(t *testing.T) {
	Convey("Given two sorters over the same candidate order", t, func() {
		a := sorter.New(candidateSet(9))
		b := sorter.New(candidateSet(9))

		Convey("When both are driven by the same preference", func() {
			votesA, errA := drive(a, byID)
			votesB, errB := drive(b, byID)

			Convey("Then they emit identical comparisons and rankings", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(votesA, ShouldEqual, votesB)
				So(a.Ranking(), ShouldResemble, b.Ranking())
				So(a.Votes(), ShouldResemble, b.Votes())
			})
		})
	})
}

func TestSorterVoteLog(t *testing.T) {
	Convey("Given a driven sorter", t, func() {
		s := sorter.New(candidateSet(6))
		votes, err := drive(s, byID)
		So(err, ShouldBeNil)

		Convey("Then the vote log holds one entry per comparison", func() {
			So(len(s.Votes()), ShouldEqual, votes)
		})

		Convey("Then every candidate appears in at least one vote", func() {
			seen := make(map[string]bool)
			for _, v := range s.Votes() {
				seen[v.WinnerID] = true
				seen[v.LoserID] = true
			}
			So(len(seen), ShouldEqual, 6)
		})

		Convey("Then the returned slices are copies", func() {
			ranking := s.Ranking()
			ranking[0] = types.Candidate{ID: "mutated"}
			So(s.Ranking()[0].ID, ShouldNotEqual, "mutated")
		})
	})
}
