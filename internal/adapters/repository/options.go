package repository

import "time"

// StoreOption applies a configuration option to the Store.
type StoreOption func(*Store)

// WithClock sets the clock used for created_at/updated_at columns.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// LeaderboardOption applies a configuration option to the Leaderboard.
type LeaderboardOption func(*Leaderboard)

// WithSeed fixes the treap priority sequence, for reproducible tests.
func WithSeed(seed uint64) LeaderboardOption {
	return func(l *Leaderboard) {
		l.prioState = seed | 1
	}
}
