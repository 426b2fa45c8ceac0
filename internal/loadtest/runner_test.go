package loadtest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/fifteen/internal/adapters/http/api"
	service "github.com/okian/fifteen/internal/app"
	"github.com/okian/fifteen/internal/config"
	"github.com/okian/fifteen/internal/domain/rating"
	"github.com/okian/fifteen/internal/domain/types"
	"github.com/okian/fifteen/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/exp/rand"
)

func init() {
	_ = logger.Init()
}

func newServer(requireReady bool) (*service.Service, *httptest.Server) {
	cfg := config.New(context.Background())
	cfg.Match.RequireReady = requireReady
	cfg.Pipeline.WorkerCount = 2

	svc, err := service.New(service.WithConfig(cfg), service.WithSeed(3))
	So(err, ShouldBeNil)
	So(svc.Start(context.Background()), ShouldBeNil)

	mux := http.NewServeMux()
	api.NewServer(svc, svc, cfg.MaxLeaderboardLimit).Register(context.Background(), mux)
	return svc, httptest.NewServer(mux)
}

func runConfig(url, mode string) *Config {
	return &Config{
		BaseURL: url,
		Matches: 24,
		Players: 6,
		Mode:    mode,
		TopN:    10,
		Workers: 4,
		Timeout: 5 * time.Second,
		Settle:  5 * time.Second,
		Seed:    42,
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running server", t, func() {
		svc, srv := newServer(false)
		defer svc.Stop()
		defer srv.Close()

		Convey("When a ranked load run completes", func() {
			stats, err := Run(context.Background(), runConfig(srv.URL, "ranked"))

			Convey("Then every match finished and verified", func() {
				So(err, ShouldBeNil)
				So(stats.MatchesFinished, ShouldEqual, 24)
				So(stats.MatchesFailed, ShouldEqual, 0)
				So(stats.OrderWins+stats.ChaosWins+stats.Draws, ShouldEqual, 24)
				So(stats.LeaderboardEntries, ShouldEqual, 6)
				So(stats.RankingsRetrieved, ShouldEqual, 6)
			})
		})

		Convey("When a casual run completes", func() {
			stats, err := Run(context.Background(), runConfig(srv.URL, "casual"))

			Convey("Then the ladder is untouched", func() {
				So(err, ShouldBeNil)
				So(stats.MatchesFinished, ShouldEqual, 24)
				So(stats.LeaderboardEntries, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a server that waits for both seats", t, func() {
		svc, srv := newServer(true)
		defer svc.Stop()
		defer srv.Close()

		Convey("Then the runner readies both players first", func() {
			cfg := runConfig(srv.URL, "casual")
			cfg.Matches = 4
			stats, err := Run(context.Background(), cfg)
			So(err, ShouldBeNil)
			So(stats.MatchesFinished, ShouldEqual, 4)
		})
	})

	Convey("Given an unusable config", t, func() {
		cfg := runConfig("http://127.0.0.1:1", "ranked")

		Convey("Then bad values are refused before any request", func() {
			cfg.Players = 1
			_, err := Run(context.Background(), cfg)
			So(errors.Is(err, ErrConfig), ShouldBeTrue)

			cfg.Players = 6
			cfg.Mode = "blitz"
			_, err = Run(context.Background(), cfg)
			So(errors.Is(err, ErrConfig), ShouldBeTrue)
		})

		Convey("Then an unreachable server fails the health check", func() {
			cfg.Timeout = 200 * time.Millisecond
			_, err := Run(context.Background(), cfg)
			So(err, ShouldNotBeNil)
			So(errors.Is(err, ErrConfig), ShouldBeFalse)
		})
	})
}

func TestSchedule(t *testing.T) {
	Convey("Given a small pool", t, func() {
		players := generatePlayers(3)

		Convey("Then strengths spread from random to search", func() {
			So(players[0].Strategy.Strategy, ShouldEqual, "random")
			So(players[1].Strategy.Depth, ShouldEqual, 1)
			So(players[2].Strategy.Depth, ShouldEqual, 2)
		})

		Convey("Then nobody is paired with themselves", func() {
			for _, p := range schedule(players, 200, rand.New(rand.NewSource(1))) {
				So(p.order.ID, ShouldNotEqual, p.chaos.ID)
			}
		})
	})
}

func TestVerifyLeaderboard(t *testing.T) {
	Convey("Given leaderboard rows", t, func() {
		row := func(rank int, score float64) types.Entry {
			return types.Entry{Rank: rank, PlayerID: "p", Score: score, Presentation: rating.Presentation{League: rating.Gold}}
		}

		Convey("Then a sorted board with ties passes", func() {
			So(verifyLeaderboard([]types.Entry{row(1, 1600), row(1, 1600), row(2, 1400)}), ShouldBeNil)
		})

		Convey("Then gaps, split ties and inversions fail", func() {
			So(verifyLeaderboard([]types.Entry{row(2, 1600)}), ShouldNotBeNil)
			So(verifyLeaderboard([]types.Entry{row(1, 1600), row(3, 1500)}), ShouldNotBeNil)
			So(verifyLeaderboard([]types.Entry{row(1, 1600), row(2, 1600)}), ShouldNotBeNil)
			So(verifyLeaderboard([]types.Entry{row(1, 1400), row(2, 1500)}), ShouldNotBeNil)
		})
	})
}
