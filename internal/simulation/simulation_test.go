package simulation_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/fifteen/internal/app"
	"github.com/okian/fifteen/internal/config"
	"github.com/okian/fifteen/internal/domain/bot"
	"github.com/okian/fifteen/internal/domain/rating"
	"github.com/okian/fifteen/internal/simulation"
	"github.com/okian/fifteen/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func newService(roster []bot.Config) *service.Service {
	cfg := config.New(context.Background())
	cfg.Bots.ThinkMS = 0
	cfg.Bots.Roster = roster
	svc, err := service.New(service.WithConfig(cfg), service.WithSeed(5))
	So(err, ShouldBeNil)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestRun(t *testing.T) {
	Convey("Given a perfect and a random bot", t, func() {
		svc := newService([]bot.Config{
			{ID: "perfect", Strategy: bot.StrategySearch, Depth: 9},
			{ID: "random", Strategy: bot.StrategyRandom},
		})
		defer svc.Stop()

		Convey("When they play a ranked series", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()
			sum, err := simulation.Run(ctx, svc, simulation.Options{Matches: 12, Batch: 4, Seed: 9})

			Convey("Then the perfect bot leads the ladder", func() {
				So(err, ShouldBeNil)
				So(sum.Played, ShouldEqual, 12)
				So(sum.Failed, ShouldEqual, 0)
				So(sum.Ladder, ShouldHaveLength, 2)
				So(sum.Ladder[0].PlayerID, ShouldEqual, "perfect")
				So(sum.Ladder[0].Matches, ShouldEqual, 12)
				So(sum.Ladder[0].League, ShouldNotEqual, rating.Provisional)
			})

			Convey("Then the table prints every row", func() {
				var buf bytes.Buffer
				So(simulation.Print(&buf, sum), ShouldBeNil)
				So(buf.String(), ShouldContainSubstring, "perfect")
				So(buf.String(), ShouldContainSubstring, "12 matches")
			})
		})
	})

	Convey("Given a service with a single bot", t, func() {
		svc := newService([]bot.Config{{ID: "solo", Strategy: bot.StrategyRandom}})
		defer svc.Stop()

		Convey("Then a run is refused", func() {
			_, err := simulation.Run(context.Background(), svc, simulation.Options{Matches: 1})
			So(errors.Is(err, simulation.ErrTooFewBots), ShouldBeTrue)
		})
	})

	Convey("Given no matches to play", t, func() {
		svc := newService([]bot.Config{
			{ID: "a", Strategy: bot.StrategyRandom},
			{ID: "b", Strategy: bot.StrategyRandom},
		})
		defer svc.Stop()

		Convey("Then a run is refused", func() {
			_, err := simulation.Run(context.Background(), svc, simulation.Options{})
			So(errors.Is(err, simulation.ErrNoMatches), ShouldBeTrue)
		})
	})
}
