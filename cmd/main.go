package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/twobeats/worldcup/internal/adapters/http/api"
	"github.com/twobeats/worldcup/internal/adapters/http/site"
	"github.com/twobeats/worldcup/internal/adapters/http/swagger"
	"github.com/twobeats/worldcup/internal/adapters/registry"
	"github.com/twobeats/worldcup/internal/adapters/repository"
	service "github.com/twobeats/worldcup/internal/app"
	"github.com/twobeats/worldcup/internal/config"
	"github.com/twobeats/worldcup/internal/domain/selector"
	"github.com/twobeats/worldcup/pkg/logger"
	"github.com/twobeats/worldcup/pkg/metrics"
)

// Server timeouts and sampling periods.
const (
	readTimeout          = 10 * time.Second
	writeTimeout         = 10 * time.Second
	idleTimeout          = 60 * time.Second
	readHeaderTimeout    = 5 * time.Second
	shutdownTimeout      = 30 * time.Second
	runtimeMetricsPeriod = 10 * time.Second
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Stderr.WriteString("worldcup: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// app holds the wired components shared by every subcommand.
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	catalog  *repository.Catalog
	registry registry.Registry
	svc      *service.Service
	log      logger.Logger
}

// setup loads .env (outside production), configuration and logging.
func setup(ctx context.Context) (*config.Config, error) {
	if os.Getenv("WORLDCUP_ENV") != "production" {
		_ = godotenv.Load()
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

// build opens the database and wires the service. Callers must close the result.
func build(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.Get()

	db, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN, repository.WithSQLDebug(cfg.DatabaseDebug))
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := repository.Migrate(ctx, db); err != nil {
			_ = repository.Close(db)
			return nil, err
		}
	}

	reg, err := registry.New(ctx, cfg.RegistryBackend,
		registry.WithRedisURL(cfg.RedisURL),
		registry.WithMaxEntries(cfg.RegistryMaxEntries),
	)
	if err != nil {
		_ = repository.Close(db)
		return nil, err
	}

	catalog := repository.NewCatalog(db)
	sel := selector.New(catalog, selector.WithMaxSize(cfg.MaxBracketSize))

	svc := service.New(sel, reg, repository.NewStore(db),
		service.WithLogger(log),
		service.WithBracketTTL(cfg.BracketTTL()),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithMaxRankingLimit(cfg.MaxRankingLimit),
		service.WithResyncInterval(cfg.LeaderboardResync()),
		service.WithTracks(catalog),
	)

	log.Info(ctx, "components ready",
		logger.String("database_driver", cfg.DatabaseDriver),
		logger.String("registry_backend", cfg.RegistryBackend),
		logger.Int("max_bracket_size", cfg.MaxBracketSize),
	)
	return &app{cfg: cfg, db: db, catalog: catalog, registry: reg, svc: svc, log: log}, nil
}

func (a *app) Close() error {
	return errors.Join(a.registry.Close(), repository.Close(a.db))
}

// mux registers the API, docs and ranking page routes.
func (a *app) mux(ctx context.Context) *http.ServeMux {
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)

	api.NewServer(a.svc, a.svc,
		api.WithLogger(a.log.Named("api")),
		api.WithJWTSecret(a.cfg.JWTSecret),
		api.WithRateLimit(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst),
		api.WithPinger(api.PingFunc(func(ctx context.Context) error {
			return repository.Ping(ctx, a.db)
		})),
	).Register(ctx, mux)
	return mux
}

// serve runs the HTTP server until ctx is cancelled, then drains.
func serve(ctx context.Context, a *app) error {
	if err := a.svc.Start(ctx); err != nil {
		return err
	}
	defer a.svc.Stop()

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.mux(ctx),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info(gctx, "starting HTTP server", logger.String("addr", a.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		startRuntimeMetricsUpdater(gctx, runtimeMetricsPeriod)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info(gctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
			return err
		}
		return nil
	})

	err := g.Wait()
	a.log.Info(context.WithoutCancel(ctx), "server stopped")
	return err
}

// startRuntimeMetricsUpdater samples heap and goroutine gauges until ctx is done.
func startRuntimeMetricsUpdater(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.CollectRuntime()
		}
	}
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "worldcup",
		Short:         "Music WorldCup tournament and ranking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.PersistentFlags().String("config", "", "YAML config file (overrides WORLDCUP_CONFIG)")
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			return os.Setenv("WORLDCUP_CONFIG", path)
		}
		return nil
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Load the sample track catalog",
			RunE:  runSeed,
		},
		&cobra.Command{
			Use:   "reconcile",
			Short: "Rebuild candidate statistics from the result log",
			RunE:  runReconcile,
		},
	)
	return root
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)
	return serve(ctx, a)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	db, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN, repository.WithSQLDebug(cfg.DatabaseDebug))
	if err != nil {
		return err
	}
	defer func() { _ = repository.Close(db) }()

	if err := repository.Migrate(ctx, db); err != nil {
		return err
	}
	logger.Get().Info(ctx, "schema migrated", logger.String("database_driver", cfg.DatabaseDriver))
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	n, err := a.catalog.Seed(ctx, repository.SampleTracks())
	if err != nil {
		return err
	}
	a.log.Info(ctx, "catalog seeded", logger.Int("inserted", n))
	return nil
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	_, err = a.svc.Reconcile(ctx)
	return err
}

func closeApp(ctx context.Context, a *app) {
	if err := a.Close(); err != nil {
		a.log.Warn(context.WithoutCancel(ctx), "close failed", logger.Error(err))
	}
}
