package simulation

import (
	"context"
	"testing"

	"github.com/okian/purrank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

func comparison(leftID, leftName, rightID, rightName string) Comparison {
	return Comparison{
		Left:  Candidate{ID: leftID, Name: leftName},
		Right: Candidate{ID: rightID, Name: rightName},
	}
}

func TestAlphabeticalVoter(t *testing.T) {
	Convey("Given the alphabetical strategy", t, func() {
		v, err := newVoter(&Config{Voter: VoterAlphabetical})
		So(err, ShouldBeNil)

		Convey("When names differ", func() {
			winner, loser := v.Pick(comparison("z", "Apple", "a", "Biscuit"))

			Convey("Then the earlier name wins regardless of id", func() {
				So(winner, ShouldEqual, "z")
				So(loser, ShouldEqual, "a")
			})
		})

		Convey("When names tie", func() {
			winner, loser := v.Pick(comparison("b", "Apple", "a", "Apple"))

			Convey("Then the smaller id breaks the tie", func() {
				So(winner, ShouldEqual, "a")
				So(loser, ShouldEqual, "b")
			})
		})

		Convey("When the same pair arrives in either orientation", func() {
			w1, _ := v.Pick(comparison("a", "Apple", "b", "Biscuit"))
			w2, _ := v.Pick(comparison("b", "Biscuit", "a", "Apple"))

			Convey("Then the verdict does not depend on orientation", func() {
				So(w1, ShouldEqual, w2)
			})
		})
	})
}

func TestRandomVoterDeterminism(t *testing.T) {
	Convey("Given two random voters with the same seed", t, func() {
		a := newRandomVoter(42)
		b := newRandomVoter(42)

		pairs := []Comparison{
			comparison("c1", "One", "c2", "Two"),
			comparison("c3", "Three", "c4", "Four"),
			comparison("c1", "One", "c3", "Three"),
			comparison("c2", "Two", "c4", "Four"),
		}

		Convey("When both see the pairs in the same order", func() {
			agree := true
			for _, p := range pairs {
				wa, _ := a.Pick(p)
				wb, _ := b.Pick(p)
				if wa != wb {
					agree = false
				}
			}

			Convey("Then their verdicts match", func() {
				So(agree, ShouldBeTrue)
			})
		})

		Convey("When one voter sees a pair again", func() {
			first, _ := a.Pick(pairs[0])
			repeat, _ := a.Pick(pairs[0])

			Convey("Then the verdict is stable", func() {
				So(repeat, ShouldEqual, first)
			})
		})
	})

	Convey("Given an unknown strategy name", t, func() {
		_, err := newVoter(&Config{Voter: "coin-flip"})

		Convey("Then construction fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestGenerateCandidates(t *testing.T) {
	ctx := context.Background()

	Convey("Given the candidate generator", t, func() {
		Convey("When generating more candidates than the name corpus holds", func() {
			candidates := generateCandidates(ctx, 200)

			Convey("Then every candidate has a unique id and a name", func() {
				So(len(candidates), ShouldEqual, 200)

				seen := make(map[string]bool, len(candidates))
				for _, c := range candidates {
					So(c.ID, ShouldNotBeEmpty)
					So(c.Name, ShouldNotBeEmpty)
					So(seen[c.ID], ShouldBeFalse)
					seen[c.ID] = true
				}
			})
		})

		Convey("When generating zero candidates", func() {
			candidates := generateCandidates(ctx, 0)

			Convey("Then the result is empty", func() {
				So(candidates, ShouldBeEmpty)
			})
		})
	})
}
