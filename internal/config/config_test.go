package config_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/twobeats/worldcup/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DatabaseDriver, convey.ShouldEqual, "sqlite")
			convey.So(cfg.MaxBracketSize, convey.ShouldEqual, 32)
			convey.So(cfg.BracketTTL(), convey.ShouldEqual, 30*time.Minute)
			convey.So(cfg.LeaderboardResync(), convey.ShouldEqual, time.Minute)
			convey.So(cfg.RegistryBackend, convey.ShouldEqual, "memory")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.Production(), convey.ShouldBeFalse)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(context.Background()), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the leaderboard resync is negative", func() {
			cfg.LeaderboardResyncSeconds = -1

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(ctx), convey.ShouldWrap, config.ErrInvalidConfig)
			})
		})

		convey.Convey("When max_bracket_size is not a power of two", func() {
			cfg.MaxBracketSize = 24
			convey.So(cfg.Validate(ctx), convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("When the redis backend has no url", func() {
			cfg.RegistryBackend = "redis"
			convey.So(cfg.Validate(ctx), convey.ShouldWrap, config.ErrInvalidConfig)

			cfg.RedisURL = "redis://localhost:6379/0"
			convey.So(cfg.Validate(ctx), convey.ShouldBeNil)
		})

		convey.Convey("When the driver is unknown", func() {
			cfg.DatabaseDriver = "mysql"
			convey.So(cfg.Validate(ctx), convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("When rate limiting has no burst", func() {
			cfg.RateLimitBurst = 0
			convey.So(cfg.Validate(ctx), convey.ShouldWrap, config.ErrInvalidConfig)

			cfg.RateLimitRPS = 0
			convey.So(cfg.Validate(ctx), convey.ShouldBeNil)
		})

		convey.Convey("When the log format is unknown", func() {
			cfg.LogFormat = "xml"
			convey.So(cfg.Validate(ctx), convey.ShouldWrap, config.ErrInvalidConfig)
		})
	})
}
