package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/purrank/internal/adapters/http/api"
	service "github.com/okian/purrank/internal/app"
	"github.com/okian/purrank/internal/domain/types"
	"github.com/okian/purrank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

var litter = []types.Candidate{
	{ID: "a", Name: "Apple"},
	{ID: "b", Name: "Biscuit"},
	{ID: "c", Name: "Clementine"},
	{ID: "d", Name: "Duchess"},
}

type testHarness struct {
	svc    *service.Service
	server *httptest.Server
}

// newHarness starts a service and an HTTP server around it.
func newHarness(ctx context.Context) *testHarness {
	svc := service.New(
		service.WithWorkerCount(2),
		service.WithQueueSize(64),
		service.WithDedupeSize(256),
	)
	So(svc.Start(ctx), ShouldBeNil)

	mux := http.NewServeMux()
	apiServer := api.NewServer(svc, svc,
		api.WithMaxLeaderboardLimit(10),
		api.WithMaxHistoryBuckets(16),
	)
	apiServer.Register(ctx, mux)

	return &testHarness{svc: svc, server: httptest.NewServer(mux)}
}

func (h *testHarness) close() {
	h.server.Close()
	h.svc.Stop()
}

func (h *testHarness) get(path string, out interface{}) int {
	resp, err := http.Get(h.server.URL + path)
	So(err, ShouldBeNil)
	defer resp.Body.Close()
	if out != nil {
		So(json.NewDecoder(resp.Body).Decode(out), ShouldBeNil)
	}
	return resp.StatusCode
}

func (h *testHarness) post(path string, body, out interface{}) int {
	payload, err := json.Marshal(body)
	So(err, ShouldBeNil)
	resp, err := http.Post(h.server.URL+path, "application/json", bytes.NewReader(payload))
	So(err, ShouldBeNil)
	defer resp.Body.Close()
	if out != nil {
		So(json.NewDecoder(resp.Body).Decode(out), ShouldBeNil)
	}
	return resp.StatusCode
}

type startBody struct {
	Candidates []types.Candidate `json:"candidates"`
}

type startReply struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

type nextReply struct {
	Comparison *types.Comparison `json:"comparison"`
	Done       bool              `json:"done"`
}

type voteBody struct {
	WinnerID string `json:"winner_id"`
	LoserID  string `json:"loser_id"`
}

type voteReply struct {
	Status string `json:"status"`
	Done   bool   `json:"done"`
}

type resultReply struct {
	State   string              `json:"state"`
	Ranking []types.Candidate   `json:"ranking"`
	Deltas  []types.RatingDelta `json:"deltas"`
}

// runTournament drives one tournament over HTTP, preferring smaller ids.
func runTournament(h *testHarness) string {
	var start startReply
	So(h.post("/tournaments", startBody{Candidates: litter}, &start), ShouldEqual, http.StatusCreated)
	So(start.SessionID, ShouldNotBeEmpty)

	for {
		var next nextReply
		So(h.get("/tournaments/"+start.SessionID+"/next", &next), ShouldEqual, http.StatusOK)
		if next.Done {
			break
		}
		So(next.Comparison, ShouldNotBeNil)

		winner, loser := next.Comparison.Left.ID, next.Comparison.Right.ID
		if loser < winner {
			winner, loser = loser, winner
		}
		var vr voteReply
		So(h.post("/tournaments/"+start.SessionID+"/votes", voteBody{WinnerID: winner, LoserID: loser}, &vr), ShouldEqual, http.StatusOK)
		So(vr.Status, ShouldEqual, "recorded")
	}
	return start.SessionID
}

// waitFor polls cond until it returns true or the timeout passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestTournamentEndpoints(t *testing.T) {
	ctx := context.Background()

	Convey("Given a running HTTP server", t, func() {
		h := newHarness(ctx)
		defer h.close()

		Convey("When a tournament is driven over HTTP", func() {
			id := runTournament(h)

			Convey("Then the result endpoint serves the final standing", func() {
				var res resultReply
				So(h.get("/tournaments/"+id+"/result", &res), ShouldEqual, http.StatusOK)
				So(res.State, ShouldEqual, "completed")
				So(len(res.Ranking), ShouldEqual, 4)
				So(res.Ranking[0].ID, ShouldEqual, "a")
				So(len(res.Deltas), ShouldEqual, 4)
			})

			Convey("Then the leaderboard fills once the deltas drain", func() {
				ok := waitFor(5*time.Second, func() bool {
					entries, err := h.svc.TopN(ctx, 10)
					return err == nil && len(entries) == 4
				})
				So(ok, ShouldBeTrue)

				var entries []types.Entry
				So(h.get("/leaderboard?limit=10", &entries), ShouldEqual, http.StatusOK)
				So(len(entries), ShouldEqual, 4)
				So(entries[0].CandidateID, ShouldEqual, "a")
				So(entries[0].Rank, ShouldEqual, 1)
			})

			Convey("Then rank, percentile and history answer for the stored board", func() {
				ok := waitFor(5*time.Second, func() bool {
					entries, err := h.svc.TopN(ctx, 10)
					return err == nil && len(entries) == 4
				})
				So(ok, ShouldBeTrue)

				var entry types.Entry
				So(h.get("/rank/a", &entry), ShouldEqual, http.StatusOK)
				So(entry.Rank, ShouldEqual, 1)

				var pct struct {
					CandidateID string  `json:"candidate_id"`
					Percentile  float64 `json:"percentile"`
				}
				So(h.get("/percentile/a", &pct), ShouldEqual, http.StatusOK)
				So(pct.Percentile, ShouldBeGreaterThan, 50)

				var series []struct {
					CandidateID string `json:"candidate_id"`
					Ranks       []int  `json:"ranks"`
				}
				So(h.get("/history?buckets=2", &series), ShouldEqual, http.StatusOK)
				So(len(series), ShouldEqual, 4)
			})
		})

		Convey("When a degenerate single-candidate tournament starts", func() {
			var start startReply
			status := h.post("/tournaments", startBody{Candidates: litter[:1]}, &start)

			Convey("Then it is already completed", func() {
				So(status, ShouldEqual, http.StatusCreated)
				So(start.State, ShouldEqual, "completed")

				var next nextReply
				So(h.get("/tournaments/"+start.SessionID+"/next", &next), ShouldEqual, http.StatusOK)
				So(next.Done, ShouldBeTrue)
			})
		})

		Convey("When a tournament is abandoned", func() {
			var start startReply
			So(h.post("/tournaments", startBody{Candidates: litter}, &start), ShouldEqual, http.StatusCreated)

			var st struct {
				Status string `json:"status"`
			}
			So(h.post("/tournaments/"+start.SessionID+"/abandon", struct{}{}, &st), ShouldEqual, http.StatusOK)
			So(st.Status, ShouldEqual, "abandoned")

			Convey("Then abandoning twice is a conflict", func() {
				So(h.post("/tournaments/"+start.SessionID+"/abandon", struct{}{}, nil), ShouldEqual, http.StatusConflict)
			})

			Convey("Then the result is an empty standing", func() {
				var res resultReply
				So(h.get("/tournaments/"+start.SessionID+"/result", &res), ShouldEqual, http.StatusOK)
				So(res.State, ShouldEqual, "abandoned")
				So(res.Ranking, ShouldBeEmpty)
				So(res.Deltas, ShouldBeEmpty)
			})
		})
	})
}

func TestEndpointValidation(t *testing.T) {
	ctx := context.Background()

	Convey("Given a running HTTP server", t, func() {
		h := newHarness(ctx)
		defer h.close()

		Convey("When the tournament payload is malformed", func() {
			resp, err := http.Post(h.server.URL+"/tournaments", "application/json", bytes.NewReader([]byte("{not json")))
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When a candidate has an empty id", func() {
			status := h.post("/tournaments", startBody{Candidates: []types.Candidate{{ID: " "}}}, nil)

			Convey("Then the request is rejected", func() {
				So(status, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When an unknown session is addressed", func() {
			So(h.get("/tournaments/ghost/next", nil), ShouldEqual, http.StatusNotFound)
			So(h.get("/tournaments/ghost/result", nil), ShouldEqual, http.StatusNotFound)
			So(h.post("/tournaments/ghost/votes", voteBody{WinnerID: "a", LoserID: "b"}, nil), ShouldEqual, http.StatusNotFound)
		})

		Convey("When a vote does not match the pending comparison", func() {
			var start startReply
			So(h.post("/tournaments", startBody{Candidates: litter}, &start), ShouldEqual, http.StatusCreated)

			var next nextReply
			So(h.get("/tournaments/"+start.SessionID+"/next", &next), ShouldEqual, http.StatusOK)
			So(next.Comparison, ShouldNotBeNil)

			stale := voteBody{WinnerID: "a", LoserID: "d"}
			if (next.Comparison.Left.ID == "a" && next.Comparison.Right.ID == "d") ||
				(next.Comparison.Left.ID == "d" && next.Comparison.Right.ID == "a") {
				stale = voteBody{WinnerID: "b", LoserID: "c"}
			}

			Convey("Then the stale vote is a conflict", func() {
				So(h.post("/tournaments/"+start.SessionID+"/votes", stale, nil), ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When a vote names the same candidate twice", func() {
			var start startReply
			So(h.post("/tournaments", startBody{Candidates: litter}, &start), ShouldEqual, http.StatusCreated)

			status := h.post("/tournaments/"+start.SessionID+"/votes", voteBody{WinnerID: "a", LoserID: "a"}, nil)

			Convey("Then the request is rejected", func() {
				So(status, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the result of a voting session is requested", func() {
			var start startReply
			So(h.post("/tournaments", startBody{Candidates: litter}, &start), ShouldEqual, http.StatusCreated)

			Convey("Then the result is not ready yet", func() {
				So(h.get("/tournaments/"+start.SessionID+"/result", nil), ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When the leaderboard limit is out of range", func() {
			So(h.get("/leaderboard?limit=0", nil), ShouldEqual, http.StatusBadRequest)
			So(h.get("/leaderboard?limit=999", nil), ShouldEqual, http.StatusBadRequest)
			So(h.get("/leaderboard", nil), ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the history bucket count is out of range", func() {
			So(h.get("/history?buckets=0", nil), ShouldEqual, http.StatusBadRequest)
			So(h.get(fmt.Sprintf("/history?buckets=%d", 17), nil), ShouldEqual, http.StatusBadRequest)
		})

		Convey("When an unknown candidate is queried", func() {
			So(h.get("/rank/ghost", nil), ShouldEqual, http.StatusNotFound)
			So(h.get("/percentile/ghost", nil), ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	ctx := context.Background()

	Convey("Given a running HTTP server", t, func() {
		h := newHarness(ctx)
		defer h.close()

		Convey("When the health endpoint is scraped", func() {
			resp, err := http.Get(h.server.URL + "/healthz")
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then it serves the metrics registry", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When stats are requested", func() {
			var stats map[string]interface{}
			So(h.get("/stats", &stats), ShouldEqual, http.StatusOK)

			Convey("Then the service snapshot comes back", func() {
				So(stats["started"], ShouldBeTrue)
			})
		})
	})
}
