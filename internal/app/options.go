package service

import (
	"time"

	eventqueue "github.com/twobeats/worldcup/internal/adapters/mq/queue"
	"github.com/twobeats/worldcup/internal/adapters/repository"
	"github.com/twobeats/worldcup/internal/domain/dedupe"
	"github.com/twobeats/worldcup/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of projection workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the projection queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many committed bracket ids are remembered in memory.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithBracketTTL sets how long an issued bracket accepts a result.
func WithBracketTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.bracketTTL = ttl
		}
	}
}

// WithMaxRankingLimit caps the ranking page size.
func WithMaxRankingLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRankingLimit = n
		}
	}
}

// WithResyncInterval sets how often the leaderboard is rebuilt from the
// stats table. Zero disables the periodic rebuild.
func WithResyncInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.resyncInterval = d
		}
	}
}

// WithTracks lets CandidateStats tell unplayed catalog tracks from unknown ids.
func WithTracks(t TrackLookup) Option {
	return func(s *Service) {
		if t != nil {
			s.tracks = t
		}
	}
}

// WithLeaderboard injects the read model, mostly for tests.
func WithLeaderboard(l *repository.Leaderboard) Option {
	return func(s *Service) {
		if l != nil {
			s.leaderboard = l
		}
	}
}

// WithDeduper replaces the in-memory commit deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithQueue replaces the projection queue.
func WithQueue(q eventqueue.Queue) Option {
	return func(s *Service) {
		if q != nil {
			s.queue = q
		}
	}
}

// WithClock overrides time.Now for expiry stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
