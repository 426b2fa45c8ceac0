package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/fifteen/internal/config"
	"github.com/okian/fifteen/internal/domain/bot"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Server.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Match.TimeLimit(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.Match.RequireReady, convey.ShouldBeFalse)
			convey.So(cfg.Bots.ThinkUnit(), convey.ShouldEqual, 500*time.Millisecond)
			convey.So(cfg.Bots.Roster, convey.ShouldHaveLength, 3)
			convey.So(cfg.Pipeline.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.Rating.BaseScore, convey.ShouldEqual, 1500)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When the time limit is zero", func() {
			cfg.Match.TimeLimitMS = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the log format is unknown", func() {
			cfg.Server.LogFormat = "xml"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the rating config is broken", func() {
			cfg.Rating.LeagueLength = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a bot has a bad depth", func() {
			cfg.Bots.Roster = append(cfg.Bots.Roster, bot.Config{ID: "deep", Strategy: bot.StrategySearch, Depth: 12})
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(errors.Is(err, bot.ErrInvalidDepth), convey.ShouldBeTrue)
		})

		convey.Convey("When two bots share an id", func() {
			cfg.Bots.Roster = append(cfg.Bots.Roster, cfg.Bots.Roster[0])
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}
