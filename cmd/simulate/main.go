package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/twobeats/worldcup/internal/simulate"
	"github.com/twobeats/worldcup/pkg/logger"
)

const runTimeout = 10 * time.Minute

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		cfg    simulate.Config
		format string
		level  string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play random WorldCup tournaments against a running service and verify the ranking",
		Example: `  # 100 brackets of 16 against a local server
  simulate

  # 5000 brackets of 32 with 16 players, resubmitting every 10th result
  simulate --tournaments 5000 --size 32 --workers 16 --duplicate-every 10`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithFormat(format)); err != nil {
				return err
			}
			if err := logger.SetLevelString(level); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, runTimeout)
			defer cancel()

			_, err := simulate.Run(ctx, cfg)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	f.IntVar(&cfg.Tournaments, "tournaments", 100, "Number of brackets to play")
	f.IntVar(&cfg.Size, "size", 16, "Bracket size (power of two)")
	f.StringVar(&cfg.Genre, "genre", "", "Only draw tracks of this genre")
	f.StringVar(&cfg.Tag, "tag", "", "Only draw tracks with this tag")
	f.IntVar(&cfg.Workers, "workers", 8, "Concurrent players")
	f.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "HTTP request timeout")
	f.Uint64Var(&cfg.Seed, "seed", 0, "Pick generator seed (0 = random)")
	f.IntVar(&cfg.DuplicateEvery, "duplicate-every", 10, "Resubmit every n-th result (0 = never)")
	f.StringVar(&cfg.Token, "token", "", "Bearer token; when set results are submitted as that user")
	f.IntVar(&cfg.TopN, "top", 20, "Ranking rows to verify")
	f.DurationVar(&cfg.SettleTimeout, "settle", 10*time.Second, "How long to wait for the ranking to catch up")
	f.BoolVar(&cfg.Verbose, "verbose", false, "Log every failed tournament")
	f.StringVar(&format, "log-format", "text", "Log format: text or json")
	f.StringVar(&level, "log-level", "info", "Log level")
	return cmd
}
