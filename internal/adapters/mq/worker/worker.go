// Package worker projects committed tournament outcomes onto the in-memory leaderboard.
//
// Workers never write to the database. They re-read the authoritative stats rows
// for the candidates an outcome touched and hand them to the projector, which
// ignores anything older than what it already holds.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/twobeats/worldcup/internal/adapters/mq/queue"
	"github.com/twobeats/worldcup/internal/domain/model"
	"github.com/twobeats/worldcup/pkg/logger"
	"github.com/twobeats/worldcup/pkg/metrics"
)

const (
	defaultRetries      = 3
	defaultRetryBackoff = 50 * time.Millisecond
	poolShutdownTimeout = 30 * time.Second
)

// Event is what workers read off the queue.
type Event = queue.Event

// StatsReader loads the committed stats for a set of candidates.
type StatsReader interface {
	StatsFor(ctx context.Context, ids []model.CandidateID) ([]model.CandidateStats, error)
}

// Projector folds a stats snapshot into a read model.
// It returns false when the snapshot is not newer than what it holds.
type Projector interface {
	Apply(ctx context.Context, st model.CandidateStats) bool
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for projecting commit outcomes.
type InMemoryWorker struct {
	queue     Queue
	stats     StatsReader
	projector Projector
	name      string
	retries   int
	backoff   time.Duration
	active    *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, stats StatsReader, projector Projector, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		stats:     stats,
		projector: projector,
		name:      "worker",
		retries:   defaultRetries,
		backoff:   defaultRetryBackoff,
		active:    new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "projection failed",
					logger.String("bracket_id", event.BracketID),
					logger.Error(err),
				)
			}
			metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		}
	}
}

// Shutdown stops the worker and waits for the loop to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent reloads the stats of every candidate in the outcome and applies them.
func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error { //nolint:gocritic // hugeParam: Event is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	var (
		rows []model.CandidateStats
		err  error
	)
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * w.backoff):
			}
		}
		rows, err = w.stats.StatsFor(ctx, event.Candidates)
		if err == nil {
			break
		}
		w.logger.Warn(ctx, "stats read failed",
			logger.String("bracket_id", event.BracketID),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "stats_read")
		return fmt.Errorf("read stats for bracket %s: %w", event.BracketID, err)
	}

	applied := 0
	for _, st := range rows {
		if w.projector.Apply(ctx, st) {
			applied++
		}
	}
	w.logger.Debug(ctx, "outcome projected",
		logger.String("bracket_id", event.BracketID),
		logger.Int("candidates", len(rows)),
		logger.Int("applied", applied),
	)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	wg      sync.WaitGroup
	logger  logger.Logger
}

// NewPool creates a new worker pool. A workerCount below one uses runtime.NumCPU().
func NewPool(workerCount int, q Queue, stats StatsReader, projector Projector, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	active := new(atomic.Int64)
	for i := range workerCount {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, stats, projector, wopts...)
		w.active = active
		pool.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return pool
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.Run(ctx)
		}()
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Stop stops all workers immediately; queued events are left unprocessed.
func (p *Pool) Stop(ctx context.Context) error {
	for _, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, poolShutdownTimeout)
		defer cancel()
	}

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		p.logger.Info(ctx, "worker pool drained")
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool drain timed out")
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}
