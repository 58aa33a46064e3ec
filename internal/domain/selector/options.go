package selector

import (
	"math/rand/v2"
	"time"
)

// Option configures a Selector.
type Option func(*Selector)

// WithMaxSize sets the largest bracket size. Values below 2 are ignored.
func WithMaxSize(n int) Option {
	return func(s *Selector) {
		if n >= 2 {
			s.maxSize = n
		}
	}
}

// WithRandSource replaces the crypto-seeded generator, for deterministic tests.
func WithRandSource(src rand.Source) Option {
	return func(s *Selector) {
		if src != nil {
			s.rng = rand.New(src)
		}
	}
}

// WithClock sets the clock used for IssuedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Selector) {
		if now != nil {
			s.now = now
		}
	}
}
