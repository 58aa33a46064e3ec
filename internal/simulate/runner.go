package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/twobeats/worldcup/pkg/logger"
)

const settlePoll = 100 * time.Millisecond

// Run plays cfg.Tournaments brackets against the service and verifies the
// ranking afterwards. Per-tournament failures are counted, not fatal; the
// returned error reports an unhealthy service or a broken invariant.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	cfg = cfg.withDefaults()
	log := logger.Get().Named("simulate")
	client := NewClient(cfg.BaseURL, cfg.Timeout, cfg.Token)
	stats := &Stats{StartTime: time.Now(), Champions: make(map[uint64]int)}

	log.Info(ctx, "starting worldcup simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("tournaments", cfg.Tournaments),
		logger.Int("size", cfg.Size),
		logger.Int("workers", cfg.Workers),
		logger.Int("duplicateEvery", cfg.DuplicateEvery),
		logger.Bool("authenticated", cfg.Token != ""),
	)

	if err := client.Health(ctx); err != nil {
		return stats, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range cfg.Tournaments {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seed, uint64(i)))
			t := playOne(gctx, client, cfg, rng, i)

			mu.Lock()
			defer mu.Unlock()
			stats.add(t)
			if t.err != nil && cfg.Verbose {
				log.Warn(gctx, "tournament failed", logger.Int("n", i), logger.Error(t.err))
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	verr := verify(ctx, client, cfg, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, log, stats)

	if verr != nil {
		log.Error(ctx, "simulation verification failed", logger.Error(verr))
		return stats, verr
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

type tournament struct {
	issued    bool
	accepted  bool
	champion  uint64
	dupSent   bool
	dupResult *Outcome
	err       error
}

func (s *Stats) add(t tournament) {
	if t.issued {
		s.Issued++
	}
	if t.accepted {
		s.Accepted++
		s.Champions[t.champion]++
	}
	if t.err != nil {
		s.Failed++
	}
	if t.dupSent {
		s.DuplicatesSent++
		if t.dupResult != nil {
			if t.dupResult.Accepted {
				s.DuplicateLeaks++
			} else if t.dupResult.Code == "duplicate_submission" {
				s.DuplicatesRejected++
			}
		}
	}
}

func playOne(ctx context.Context, c *Client, cfg Config, rng *rand.Rand, n int) tournament {
	var t tournament

	b, err := c.IssueBracket(ctx, cfg.Genre, cfg.Tag, cfg.Size)
	if err != nil {
		t.err = err
		return t
	}
	t.issued = true

	anon := ""
	if cfg.Token == "" {
		anon = uuid.NewString()
	}
	sub, err := Play(b, rng, anon)
	if err != nil {
		t.err = err
		return t
	}

	out, err := c.Submit(ctx, sub)
	if err != nil {
		t.err = err
		return t
	}
	if !out.Accepted {
		t.err = fmt.Errorf("first submission of %s rejected: %s", b.BracketID, out.Code)
		return t
	}
	t.accepted, t.champion = true, out.Champion

	if cfg.DuplicateEvery > 0 && n%cfg.DuplicateEvery == 0 {
		t.dupSent = true
		again, err := c.Submit(ctx, sub)
		if err != nil {
			t.err = err
			return t
		}
		t.dupResult = &again
	}
	return t
}

// verify waits for the asynchronous ranking to match the authoritative stats,
// then checks the invariants every accepted result must leave behind.
func verify(ctx context.Context, c *Client, cfg Config, stats *Stats) error {
	var errs []error
	if stats.DuplicateLeaks > 0 {
		errs = append(errs, fmt.Errorf("%w: %d duplicate submissions were accepted", ErrVerification, stats.DuplicateLeaks))
	}
	if stats.DuplicatesRejected != stats.DuplicatesSent {
		errs = append(errs, fmt.Errorf("%w: %d of %d duplicates rejected as duplicate_submission",
			ErrVerification, stats.DuplicatesRejected, stats.DuplicatesSent))
	}

	for id, won := range stats.Champions {
		st, err := c.CandidateStats(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if st.Wins < int64(won) {
			errs = append(errs, fmt.Errorf("%w: track %d has %d wins, simulation crowned it %d times",
				ErrVerification, id, st.Wins, won))
		}
		if st.BestFinish != 1 {
			errs = append(errs, fmt.Errorf("%w: champion %d has best finish %d", ErrVerification, id, st.BestFinish))
		}
	}

	rows, err := settle(ctx, c, cfg)
	stats.RankingRows = len(rows)
	if err != nil {
		errs = append(errs, err)
	}
	if err := verifyRanking(rows); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// settle polls the ranking until every shown row agrees with the stored stats.
func settle(ctx context.Context, c *Client, cfg Config) ([]RankingRow, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.SettleTimeout)
	defer cancel()

	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()

	var (
		rows    []RankingRow
		lastErr error
	)
	for {
		rows, lastErr = c.Ranking(ctx, cfg.TopN)
		if lastErr == nil {
			lastErr = agrees(ctx, c, rows)
			if lastErr == nil {
				return rows, nil
			}
		}
		select {
		case <-ctx.Done():
			return rows, fmt.Errorf("%w: ranking did not settle: %w", ErrVerification, lastErr)
		case <-ticker.C:
		}
	}
}

func agrees(ctx context.Context, c *Client, rows []RankingRow) error {
	for _, r := range rows {
		st, err := c.CandidateStats(ctx, r.CandidateID)
		if err != nil {
			return err
		}
		if st.Wins != r.Wins || st.Appearances != r.Appearances {
			return fmt.Errorf("track %d: ranking shows %d/%d, stats %d/%d",
				r.CandidateID, r.Wins, r.Appearances, st.Wins, st.Appearances)
		}
	}
	return nil
}

func logStats(ctx context.Context, log logger.Logger, s *Stats) {
	var perSecond float64
	if s.Duration > 0 {
		perSecond = float64(s.Accepted) / s.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("issued", s.Issued),
		logger.Int("accepted", s.Accepted),
		logger.Int("failed", s.Failed),
		logger.Int("duplicatesSent", s.DuplicatesSent),
		logger.Int("duplicatesRejected", s.DuplicatesRejected),
		logger.Int("duplicateLeaks", s.DuplicateLeaks),
		logger.Int("distinctChampions", len(s.Champions)),
		logger.Int("rankingRows", s.RankingRows),
		logger.Duration("duration", s.Duration),
		logger.Float64("tournamentsPerSecond", perSecond),
	)
}
