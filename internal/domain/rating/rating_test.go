package rating_test

import (
	"math"
	"testing"

	"github.com/okian/purrank/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExpectedScore(t *testing.T) {
	Convey("Given a default rating model", t, func() {
		m := rating.New()

		Convey("When both ratings are equal", func() {
			e := m.ExpectedScore(1500, 1500)

			Convey("Then the expectation is exactly one half", func() {
				So(e, ShouldEqual, 0.5)
			})
		})

		Convey("When the first rating is higher", func() {
			e := m.ExpectedScore(1700, 1500)

			Convey("Then the expectation exceeds one half", func() {
				So(e, ShouldBeGreaterThan, 0.5)
				So(e, ShouldBeLessThan, 1.0)
			})
		})

		Convey("When the ratings are swapped", func() {
			a := m.ExpectedScore(1700, 1500)
			b := m.ExpectedScore(1500, 1700)

			Convey("Then the expectations are complementary", func() {
				So(a+b, ShouldAlmostEqual, 1.0, 1e-12)
			})
		})

		Convey("When the gap is exactly 400 points", func() {
			e := m.ExpectedScore(1900, 1500)

			Convey("Then the favourite expects ten elevenths", func() {
				So(e, ShouldAlmostEqual, 10.0/11.0, 1e-12)
			})
		})
	})
}

func TestApplyResult(t *testing.T) {
	Convey("Given a default rating model", t, func() {
		m := rating.New()

		Convey("When two equal players meet", func() {
			winner, loser, err := m.ApplyResult(1500, 1500)

			Convey("Then the winner gains half the K factor", func() {
				So(err, ShouldBeNil)
				So(winner, ShouldAlmostEqual, 1516, 1e-9)
				So(loser, ShouldAlmostEqual, 1484, 1e-9)
			})

			Convey("Then the exchange is zero sum", func() {
				So(err, ShouldBeNil)
				So(winner+loser, ShouldAlmostEqual, 3000, 1e-9)
			})
		})

		Convey("When an underdog beats a favourite", func() {
			underdogAfter, favouriteAfter, err := m.ApplyResult(1400, 1800)
			_, evenLoser, err2 := m.ApplyResult(1800, 1400)

			Convey("Then the upset moves more points than the expected result", func() {
				So(err, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(underdogAfter-1400, ShouldBeGreaterThan, 1400-evenLoser)
				So(favouriteAfter, ShouldBeLessThan, 1800)
			})
		})

		Convey("When a rating is NaN", func() {
			_, _, err := m.ApplyResult(math.NaN(), 1500)

			Convey("Then the model rejects it", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, rating.ErrInvalidRating)
			})
		})

		Convey("When a rating is infinite", func() {
			_, _, err := m.ApplyResult(1500, math.Inf(1))

			Convey("Then the model rejects it", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, rating.ErrInvalidRating)
			})
		})
	})

	Convey("Given a model with a tight clamp range", t, func() {
		m := rating.New(rating.WithBounds(1490, 1510))

		Convey("When a result would push ratings past the bounds", func() {
			winner, loser, err := m.ApplyResult(1500, 1500)

			Convey("Then both ratings are clamped", func() {
				So(err, ShouldBeNil)
				So(winner, ShouldEqual, 1510)
				So(loser, ShouldEqual, 1490)
			})
		})
	})

	Convey("Given a model with a custom K factor", t, func() {
		m := rating.New(rating.WithKFactor(64))

		Convey("When two equal players meet", func() {
			winner, _, err := m.ApplyResult(1500, 1500)

			Convey("Then the swing doubles the default", func() {
				So(err, ShouldBeNil)
				So(winner, ShouldAlmostEqual, 1532, 1e-9)
			})
		})
	})
}
