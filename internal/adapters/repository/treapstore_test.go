package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	repository "github.com/okian/purrank/internal/adapters/repository"
	"github.com/okian/purrank/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func delta(id string, newRating float64, wins, losses int) types.RatingDelta {
	return types.RatingDelta{
		CandidateID: id,
		NewRating:   newRating,
		WinsDelta:   wins,
		LossesDelta: losses,
	}
}

func TestApplyDelta(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty treap store", t, func() {
		s := repository.NewTreapStore(ctx)

		Convey("When a delta arrives for a new candidate", func() {
			applied, err := s.ApplyDelta(ctx, delta("tabby", 1516, 2, 0), "Tabby")

			Convey("Then the candidate is created", func() {
				So(err, ShouldBeNil)
				So(applied, ShouldBeTrue)
				So(s.Count(ctx), ShouldEqual, 1)

				entry, err := s.Rank(ctx, "tabby")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
				So(entry.Name, ShouldEqual, "Tabby")
				So(entry.Rating, ShouldAlmostEqual, 1516, 1e-6)
				So(entry.Wins, ShouldEqual, 2)
				So(entry.Losses, ShouldEqual, 0)
			})
		})

		Convey("When two sessions write the same candidate", func() {
			_, err := s.ApplyDelta(ctx, delta("tabby", 1516, 2, 0), "Tabby")
			So(err, ShouldBeNil)
			_, err = s.ApplyDelta(ctx, delta("tabby", 1490, 0, 1), "Tabby")
			So(err, ShouldBeNil)

			Convey("Then the rating is last writer wins", func() {
				entry, err := s.Rank(ctx, "tabby")
				So(err, ShouldBeNil)
				So(entry.Rating, ShouldAlmostEqual, 1490, 1e-6)
			})

			Convey("Then win and loss counters accumulate", func() {
				entry, err := s.Rank(ctx, "tabby")
				So(err, ShouldBeNil)
				So(entry.Wins, ShouldEqual, 2)
				So(entry.Losses, ShouldEqual, 1)
			})
		})

		Convey("When a delta changes nothing", func() {
			_, err := s.ApplyDelta(ctx, delta("tabby", 1516, 1, 0), "Tabby")
			So(err, ShouldBeNil)
			applied, err := s.ApplyDelta(ctx, delta("tabby", 1516, 0, 0), "Tabby")

			Convey("Then the write is reported as a no-op", func() {
				So(err, ShouldBeNil)
				So(applied, ShouldBeFalse)
			})
		})
	})
}

func TestRankOrdering(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with several rated candidates", t, func() {
		s := repository.NewTreapStore(ctx)
		ratings := map[string]float64{
			"a": 1450,
			"b": 1600,
			"c": 1500,
			"d": 1600,
			"e": 1390,
		}
		for id, r := range ratings {
			_, err := s.ApplyDelta(ctx, delta(id, r, 0, 0), "Cat "+id)
			So(err, ShouldBeNil)
		}

		Convey("When ranks are queried", func() {
			Convey("Then ties break by id ascending", func() {
				b, err := s.Rank(ctx, "b")
				So(err, ShouldBeNil)
				d, err := s.Rank(ctx, "d")
				So(err, ShouldBeNil)
				So(b.Rank, ShouldEqual, 1)
				So(d.Rank, ShouldEqual, 2)
			})

			Convey("Then lower ratings rank later", func() {
				e, err := s.Rank(ctx, "e")
				So(err, ShouldBeNil)
				So(e.Rank, ShouldEqual, 5)
			})
		})

		Convey("When an unknown candidate is queried", func() {
			_, err := s.Rank(ctx, "ghost")

			Convey("Then the store reports not found", func() {
				So(err, ShouldWrap, repository.ErrNotFound)
			})
		})

		Convey("When the top of the board is listed", func() {
			top, err := s.TopN(ctx, 3)

			Convey("Then entries come back dense and best first", func() {
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 3)
				So(top[0].CandidateID, ShouldEqual, "b")
				So(top[1].CandidateID, ShouldEqual, "d")
				So(top[2].CandidateID, ShouldEqual, "c")
				for i, e := range top {
					So(e.Rank, ShouldEqual, i+1)
				}
			})
		})

		Convey("When more entries are requested than exist", func() {
			top, err := s.TopN(ctx, 50)

			Convey("Then the whole board comes back", func() {
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 5)
			})
		})

		Convey("When the limit is not positive", func() {
			_, err := s.TopN(ctx, 0)

			Convey("Then the limit is rejected", func() {
				So(err, ShouldWrap, repository.ErrInvalidLimit)
			})
		})

		Convey("When the population is sampled", func() {
			pop := s.Ratings(ctx)

			Convey("Then every rating appears once", func() {
				So(len(pop), ShouldEqual, 5)
			})
		})
	})
}

func TestPriorRatings(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with one known candidate", t, func() {
		s := repository.NewTreapStore(ctx)
		_, err := s.ApplyDelta(ctx, delta("known", 1550, 3, 1), "Known")
		So(err, ShouldBeNil)

		Convey("When priors are requested for known and unknown ids", func() {
			priors := s.PriorRatings(ctx, []string{"known", "unknown"})

			Convey("Then only the known candidate is returned", func() {
				So(len(priors), ShouldEqual, 1)
				So(priors[0].CandidateID, ShouldEqual, "known")
				So(priors[0].Value, ShouldAlmostEqual, 1550, 1e-6)
				So(priors[0].Wins, ShouldEqual, 3)
				So(priors[0].Losses, ShouldEqual, 1)
			})
		})
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with a fixed clock", t, func() {
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		s := repository.NewTreapStore(ctx, repository.WithClock(func() time.Time { return now }))

		Convey("When deltas are applied over time", func() {
			_, err := s.ApplyDelta(ctx, delta("a", 1516, 1, 0), "A")
			So(err, ShouldBeNil)
			now = now.Add(time.Minute)
			_, err = s.ApplyDelta(ctx, delta("a", 1530, 1, 0), "A")
			So(err, ShouldBeNil)

			Convey("Then the history holds the snapshots in time order", func() {
				h := s.History(ctx)
				So(len(h), ShouldEqual, 2)
				So(h[0].Rating, ShouldAlmostEqual, 1516, 1e-6)
				So(h[1].Rating, ShouldAlmostEqual, 1530, 1e-6)
				So(h[0].Timestamp.Before(h[1].Timestamp), ShouldBeTrue)
			})
		})
	})

	Convey("Given a store with a tiny history capacity", t, func() {
		s := repository.NewTreapStore(ctx, repository.WithHistoryCapacity(8))

		Convey("When the log overflows", func() {
			for i := 0; i < 40; i++ {
				_, err := s.ApplyDelta(ctx, delta("a", 1500+float64(i), 1, 0), "A")
				So(err, ShouldBeNil)
			}

			Convey("Then old snapshots are trimmed and the newest survives", func() {
				h := s.History(ctx)
				So(len(h), ShouldBeLessThanOrEqualTo, 8)
				So(h[len(h)-1].Rating, ShouldAlmostEqual, 1539, 1e-6)
			})
		})
	})
}

func TestConcurrentWrites(t *testing.T) {
	ctx := context.Background()

	Convey("Given many goroutines writing distinct candidates", t, func() {
		s := repository.NewTreapStore(ctx)

		const writers = 16
		const perWriter = 25
		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					id := fmt.Sprintf("cat-%d-%d", w, i)
					_, _ = s.ApplyDelta(ctx, delta(id, 1500+float64(w*perWriter+i), 1, 0), id)
				}
			}(w)
		}
		wg.Wait()

		Convey("Then every write landed and ranks are consistent", func() {
			So(s.Count(ctx), ShouldEqual, writers*perWriter)

			top, err := s.TopN(ctx, writers*perWriter)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, writers*perWriter)
			for i := 1; i < len(top); i++ {
				So(top[i].Rating, ShouldBeLessThanOrEqualTo, top[i-1].Rating)
			}
		})
	})
}
