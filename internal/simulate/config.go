// Package simulate drives a running WorldCup service over HTTP: it issues
// brackets, plays them with random picks, submits the results and checks the
// ranking invariants afterwards.
package simulate

import (
	"errors"
	"time"
)

// Sentinel errors.
var (
	ErrUnhealthy        = errors.New("service is not healthy")
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	ErrVerification     = errors.New("verification failed")
)

// Config holds the simulation parameters.
type Config struct {
	BaseURL     string        // Base URL of the service
	Tournaments int           // Number of brackets to play
	Size        int           // Bracket size
	Genre       string        // Optional genre filter
	Tag         string        // Optional tag filter
	Workers     int           // Concurrent players
	Timeout     time.Duration // HTTP request timeout
	Seed        uint64        // Seed of the pick generator; 0 picks one

	// DuplicateEvery resubmits every n-th result, which must be rejected. 0 disables it.
	DuplicateEvery int

	// Token, when set, is sent as a bearer token instead of an anonymous user_uid.
	Token string

	TopN          int           // Ranking rows to verify
	SettleTimeout time.Duration // How long to wait for the ranking to catch up
	Verbose       bool
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:9080"
	}
	if c.Tournaments <= 0 {
		c.Tournaments = 100
	}
	if c.Size <= 0 {
		c.Size = 16
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.TopN <= 0 {
		c.TopN = 20
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = 10 * time.Second
	}
	return c
}

// Stats holds simulation counters.
type Stats struct {
	Issued             int
	Accepted           int
	Failed             int
	DuplicatesSent     int
	DuplicatesRejected int
	DuplicateLeaks     int // resubmissions the service accepted
	RankingRows        int
	Champions          map[uint64]int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

// Track is a bracket slot as served by the API.
type Track struct {
	ID     uint64 `json:"id"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Genre  string `json:"genre,omitempty"`
}

// Bracket is an issued bracket as served by the API.
type Bracket struct {
	BracketID string    `json:"bracket_id"`
	Size      int       `json:"size"`
	Rounds    int       `json:"rounds"`
	Slots     []Track   `json:"slots"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Result is one (track, rank) pair of a submission.
type Result struct {
	MusicID uint64 `json:"music_id"`
	Rank    int    `json:"rank"`
}

// Submission is the body of POST /worldcup/results.
type Submission struct {
	BracketID   string   `json:"bracket_id"`
	UserUID     string   `json:"user_uid,omitempty"`
	TotalRounds int      `json:"total_rounds"`
	Results     []Result `json:"results"`
	Picks       []uint64 `json:"picks,omitempty"`
}

// Outcome is the response to a submission, accepted or not.
type Outcome struct {
	Accepted  bool   `json:"accepted"`
	BracketID string `json:"bracket_id,omitempty"`
	Champion  uint64 `json:"champion,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// RankingRow is one row of GET /worldcup/ranking.
type RankingRow struct {
	Rank        int     `json:"rank"`
	CandidateID uint64  `json:"candidate_id"`
	Wins        int64   `json:"wins"`
	Appearances int64   `json:"appearances"`
	BestFinish  int     `json:"best_finish"`
	WinRate     float64 `json:"win_rate"`
}

// CandidateStats is the body of GET /worldcup/candidates/{id}/stats.
type CandidateStats struct {
	CandidateID uint64  `json:"candidate_id"`
	Appearances int64   `json:"appearances"`
	Wins        int64   `json:"wins"`
	BestFinish  int     `json:"best_finish"`
	WinRate     float64 `json:"win_rate"`
	Rank        *int    `json:"rank,omitempty"`
}
