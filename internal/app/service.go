// Package service wires the tournament engine together and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	eventqueue "github.com/twobeats/worldcup/internal/adapters/mq/queue"
	workerpool "github.com/twobeats/worldcup/internal/adapters/mq/worker"
	"github.com/twobeats/worldcup/internal/adapters/registry"
	"github.com/twobeats/worldcup/internal/adapters/repository"
	"github.com/twobeats/worldcup/internal/domain/dedupe"
	"github.com/twobeats/worldcup/internal/domain/model"
	"github.com/twobeats/worldcup/internal/domain/types"
	"github.com/twobeats/worldcup/internal/domain/validate"
	"github.com/twobeats/worldcup/pkg/logger"
	"github.com/twobeats/worldcup/pkg/metrics"
)

const (
	defaultBracketTTL      = 30 * time.Minute
	defaultQueueSize       = 10000
	defaultDedupeSize      = 50000
	defaultMaxRankingLimit = 100
	stopTimeout            = 10 * time.Second
)

// Selector draws brackets from the catalog.
type Selector interface {
	Select(ctx context.Context, f model.Filter, size int) (model.BracketSpec, error)
	MaxSize() int
}

// TrackLookup resolves catalog tracks by id.
type TrackLookup interface {
	Track(ctx context.Context, id model.CandidateID) (model.Candidate, error)
}

// Service implements the API dependencies for the tournament engine.
type Service struct {
	mu sync.RWMutex

	selector    Selector
	registry    registry.Registry
	store       repository.ResultStore
	tracks      TrackLookup
	leaderboard *repository.Leaderboard
	deduper     dedupe.Deduper
	queue       eventqueue.Queue
	pool        *workerpool.Pool

	bracketTTL      time.Duration
	workerCount     int
	queueSize       int
	dedupeSize      int
	maxRankingLimit int
	resyncInterval  time.Duration
	now             func() time.Time

	stopResync context.CancelFunc
	resyncDone chan struct{}
	started    bool
	logger  logger.Logger
}

// New constructs a Service around its three required collaborators.
func New(sel Selector, reg registry.Registry, store repository.ResultStore, opts ...Option) *Service {
	s := &Service{
		selector:        sel,
		registry:        reg,
		store:           store,
		bracketTTL:      defaultBracketTTL,
		workerCount:     runtime.NumCPU(),
		queueSize:       defaultQueueSize,
		dedupeSize:      defaultDedupeSize,
		maxRankingLimit: defaultMaxRankingLimit,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.leaderboard == nil {
		s.leaderboard = repository.NewLeaderboard()
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}
	if s.queue == nil {
		s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	}
	return s
}

// Start warms the leaderboard from the store and starts the projection workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	all, err := s.store.AllStats(ctx)
	if err != nil {
		return fmt.Errorf("warm leaderboard: %w", err)
	}
	loaded := s.leaderboard.Load(ctx, all)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store, s.leaderboard)
	s.pool.Start(context.WithoutCancel(ctx))

	if s.resyncInterval > 0 {
		rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.stopResync = cancel
		s.resyncDone = make(chan struct{})
		go s.resyncLoop(rctx, s.resyncDone)
	}

	s.started = true
	s.logger.Info(ctx, "worldcup service started",
		logger.Int("candidates", loaded),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Duration("bracket_ttl", s.bracketTTL),
		logger.Duration("resync_interval", s.resyncInterval),
	)
	return nil
}

// resyncLoop periodically rebuilds the leaderboard from the stats table so
// corrections made by another process (the reconcile command) reach readers.
func (s *Service) resyncLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.resyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Resync(ctx); err != nil && ctx.Err() == nil {
				metrics.RecordErrorByComponent("service", "resync")
				s.logger.Warn(ctx, "leaderboard resync failed", logger.Error(err))
			}
		}
	}
}

// Resync replaces the leaderboard with the current stats table and returns
// the number of candidates loaded.
func (s *Service) Resync(ctx context.Context) (int, error) {
	all, err := s.store.AllStats(ctx)
	if err != nil {
		return 0, fmt.Errorf("resync leaderboard: %w", err)
	}
	n := s.leaderboard.Reset(ctx, all)
	s.logger.Debug(ctx, "leaderboard resynced", logger.Int("candidates", n))
	return n, nil
}

// Stop drains the projection queue and stops the workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if s.stopResync != nil {
		s.stopResync()
		<-s.resyncDone
		s.stopResync, s.resyncDone = nil, nil
	}
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "worldcup service stopped")
}

// IssueBracket draws a bracket and registers it for later submission.
func (s *Service) IssueBracket(ctx context.Context, f model.Filter, size int) (model.IssuedBracket, error) {
	start := time.Now()
	spec, err := s.selector.Select(ctx, f, size)
	metrics.RecordSelectionLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		return model.IssuedBracket{}, fmt.Errorf("issue bracket: %w", err)
	}

	if err := s.registry.Put(ctx, spec, s.bracketTTL); err != nil {
		metrics.RecordErrorByComponent("registry", "put")
		return model.IssuedBracket{}, fmt.Errorf("register bracket %s: %w", spec.ID, err)
	}
	metrics.RecordBracketIssued(strconv.Itoa(spec.Size))

	s.logger.Debug(ctx, "bracket issued",
		logger.String("bracket_id", spec.ID),
		logger.Int("size", spec.Size),
		logger.String("genre", string(f.Genre)),
		logger.String("tag", f.Tag),
	)
	return model.IssuedBracket{Spec: spec, ExpiresAt: s.now().Add(s.bracketTTL)}, nil
}

// GetBracket returns a live issued bracket.
func (s *Service) GetBracket(ctx context.Context, id string) (model.BracketSpec, error) {
	spec, err := s.registry.Get(ctx, id)
	if errors.Is(err, registry.ErrNotFound) {
		return model.BracketSpec{}, fmt.Errorf("bracket %s not issued or expired: %w", id, model.ErrBracketMismatch)
	}
	if err != nil {
		metrics.RecordErrorByComponent("registry", "get")
		return model.BracketSpec{}, fmt.Errorf("get bracket %s: %w", id, err)
	}
	return spec, nil
}

// SubmitResult validates result against its issued bracket and commits it
// exactly once. The leaderboard catches up asynchronously.
func (s *Service) SubmitResult(ctx context.Context, result model.TournamentResult) (model.CommitOutcome, error) {
	out, err := s.submit(ctx, result)
	if err != nil {
		if errors.Is(err, model.ErrDuplicateSubmission) {
			metrics.RecordDuplicateSubmission()
		} else {
			metrics.RecordResultRejected(model.KindOf(err).String())
		}
		return model.CommitOutcome{}, err
	}
	metrics.RecordResultCommitted()
	return out, nil
}

func (s *Service) submit(ctx context.Context, result model.TournamentResult) (model.CommitOutcome, error) {
	spec, err := s.GetBracket(ctx, result.BracketID)
	if err != nil {
		return model.CommitOutcome{}, err
	}
	switch result.TotalRounds {
	case 0:
		result.TotalRounds = spec.Size
	case spec.Size:
	default:
		return model.CommitOutcome{}, fmt.Errorf("total_rounds %d for a bracket of %d: %w",
			result.TotalRounds, spec.Size, model.ErrInvalidInput)
	}
	if err := validate.Validate(spec, result); err != nil {
		return model.CommitOutcome{}, err
	}
	if s.deduper.Seen(ctx, spec.ID) {
		return model.CommitOutcome{}, fmt.Errorf("bracket %s: %w", spec.ID, model.ErrDuplicateSubmission)
	}

	out, err := s.store.Commit(ctx, spec, result)
	if errors.Is(err, model.ErrDuplicateSubmission) {
		s.deduper.Record(ctx, spec.ID)
		return model.CommitOutcome{}, err
	}
	if err != nil {
		s.logger.Error(ctx, "commit failed", logger.String("bracket_id", spec.ID), logger.Error(err))
		return model.CommitOutcome{}, err
	}
	s.deduper.Record(ctx, spec.ID)

	if !s.queue.Enqueue(ctx, out) {
		s.logger.Warn(ctx, "projection dropped, leaderboard will lag until restart",
			logger.String("bracket_id", out.BracketID),
		)
	}

	s.logger.Info(ctx, "result committed",
		logger.String("bracket_id", out.BracketID),
		logger.Uint64("champion", uint64(out.Champion)),
		logger.Bool("anonymous", result.Participant.Anonymous()),
	)
	return out, nil
}

// Ranking returns the most-winning candidates from the in-memory leaderboard.
func (s *Service) Ranking(ctx context.Context, limit int) ([]types.Standing, error) {
	if limit < 1 || limit > s.maxRankingLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d: %w", s.maxRankingLimit, model.ErrInvalidInput)
	}
	return s.leaderboard.TopN(ctx, limit)
}

// Standing returns one candidate's leaderboard row.
func (s *Service) Standing(ctx context.Context, id model.CandidateID) (types.Standing, error) {
	st, err := s.leaderboard.Rank(ctx, id)
	if err != nil {
		return types.Standing{}, fmt.Errorf("candidate %d: %w", id, err)
	}
	return st, nil
}

// CandidateStats returns the authoritative stats row of a candidate. A catalog
// track that has never been played reports zero stats.
func (s *Service) CandidateStats(ctx context.Context, id model.CandidateID) (model.CandidateStats, error) {
	st, err := s.store.Stats(ctx, id)
	if errors.Is(err, model.ErrNotFound) && s.tracks != nil {
		_, terr := s.tracks.Track(ctx, id)
		if terr == nil {
			return model.CandidateStats{CandidateID: id}, nil
		}
		if !errors.Is(terr, model.ErrNotFound) {
			err = terr
		}
	}
	if err != nil {
		return model.CandidateStats{}, fmt.Errorf("candidate %d: %w", id, err)
	}
	return st, nil
}

// Reconcile rebuilds the stats rows from the result log and reloads this
// process's leaderboard. Serving processes pick the corrections up on their
// next resync or on the next projection of a corrected candidate.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	corrected, err := s.store.Reconcile(ctx)
	if err != nil {
		return 0, err
	}
	if _, err := s.Resync(ctx); err != nil {
		return corrected, err
	}
	s.logger.Info(ctx, "stats reconciled", logger.Int("corrected", corrected))
	return corrected, nil
}

// MaxBracketSize reports the largest bracket the selector will draw.
func (s *Service) MaxBracketSize() int { return s.selector.MaxSize() }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"maxBracketSize": s.selector.MaxSize(),
		"bracketTTL":     s.bracketTTL.String(),
		"resyncInterval": s.resyncInterval.String(),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["candidates"] = s.leaderboard.Count(ctx)
		stats["committedTracked"] = s.deduper.Size()
	}
	metrics.CollectRuntime()
	return stats
}
