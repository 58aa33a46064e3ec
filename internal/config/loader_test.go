package config_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/twobeats/worldcup/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.BracketTTLSeconds, convey.ShouldEqual, 1800)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("WORLDCUP_ADDR", ":8080")
			_ = os.Setenv("WORLDCUP_QUEUE_SIZE", "500")
			_ = os.Setenv("WORLDCUP_WORKER_COUNT", "16")
			_ = os.Setenv("WORLDCUP_BRACKET_TTL_SECONDS", "60")
			_ = os.Setenv("WORLDCUP_JWT_SECRET", "s3cret")
			_ = os.Setenv("WORLDCUP_AUTO_MIGRATE", "false")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.BracketTTL(), convey.ShouldEqual, time.Minute)
				convey.So(cfg.JWTSecret, convey.ShouldEqual, "s3cret")
				convey.So(cfg.AutoMigrate, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeConfigFile(t, `
# staging
addr: ":9090"
database_driver: postgres
database_dsn: "host=db user=worldcup dbname=worldcup sslmode=disable"
registry_backend: redis
redis_url: "redis://cache:6379/1"
max_bracket_size: 64
`)
			_ = os.Setenv("WORLDCUP_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DatabaseDriver, convey.ShouldEqual, "postgres")
				convey.So(cfg.RegistryBackend, convey.ShouldEqual, "redis")
				convey.So(cfg.RedisURL, convey.ShouldEqual, "redis://cache:6379/1")
				convey.So(cfg.MaxBracketSize, convey.ShouldEqual, 64)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			})

			convey.Convey("And environment variables override file values", func() {
				_ = os.Setenv("WORLDCUP_ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.MaxBracketSize, convey.ShouldEqual, 64)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			_ = os.Setenv("WORLDCUP_CONFIG", writeConfigFile(t, "addr: [unclosed"))
			_, err := config.Load(ctx)
			convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
		})

		convey.Convey("When the YAML file does not exist", func() {
			_ = os.Setenv("WORLDCUP_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := config.Load(ctx)
			convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
		})

		convey.Convey("When a numeric env var is not a number", func() {
			_ = os.Setenv("WORLDCUP_QUEUE_SIZE", "lots")
			_, err := config.Load(ctx)
			convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
		})

		convey.Convey("When addr is empty", func() {
			_ = os.Setenv("WORLDCUP_CONFIG", writeConfigFile(t, `addr: ""`))
			_, err := config.Load(ctx)
			convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("When the bracket size is out of range", func() {
			_ = os.Setenv("WORLDCUP_MAX_BRACKET_SIZE", "1")
			_, err := config.Load(ctx)
			convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "WORLDCUP_") && key != "WORLDCUP_TEST_REDIS_URL" {
			_ = os.Unsetenv(key)
		}
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worldcup.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
