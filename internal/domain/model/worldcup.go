// Package model contains domain models passed between layers.
package model

import (
	"math/bits"
	"slices"
	"strings"
	"time"
)

// CandidateID identifies a track in the catalog.
type CandidateID uint64

// Genre is a catalog genre label.
type Genre string

// Catalog genres.
const (
	GenreBallad Genre = "ballad"
	GenreDance  Genre = "dance"
	GenreHipHop Genre = "hiphop"
	GenreRnB    Genre = "rnb"
	GenreRock   Genre = "rock"
	GenrePop    Genre = "pop"
	GenreIndie  Genre = "indie"
	GenreTrot   Genre = "trot"
	GenreJazz   Genre = "jazz"
	GenreOST    Genre = "ost"
	GenreEtc    Genre = "etc"
)

// Genres lists every accepted genre in display order.
var Genres = []Genre{
	GenreBallad, GenreDance, GenreHipHop, GenreRnB, GenreRock, GenrePop,
	GenreIndie, GenreTrot, GenreJazz, GenreOST, GenreEtc,
}

// ParseGenre normalizes s and reports whether it names a catalog genre.
// The empty string is valid and means "any genre".
func ParseGenre(s string) (Genre, bool) {
	g := Genre(strings.ToLower(strings.TrimSpace(s)))
	if g == "" {
		return "", true
	}
	return g, slices.Contains(Genres, g)
}

// Candidate is a track offered as a tournament participant.
type Candidate struct {
	ID           CandidateID
	Title        string
	Artist       string
	Genre        Genre
	Tags         []string
	ThumbnailURL string
	FileURL      string
}

// Filter narrows the eligible catalog. Zero fields match everything.
type Filter struct {
	Genre Genre
	Tag   string
}

// BracketSpec is an issued single-elimination bracket.
type BracketSpec struct {
	ID         string
	Size       int
	Slots      []CandidateID // bracket order, distinct
	Candidates []Candidate   // summaries in slot order
	IssuedAt   time.Time
}

// Rounds returns log2(Size).
func (s BracketSpec) Rounds() int {
	if s.Size <= 0 {
		return 0
	}
	return bits.TrailingZeros(uint(s.Size))
}

// IssuedBracket is a freshly drawn bracket and the moment it stops accepting a result.
type IssuedBracket struct {
	Spec      BracketSpec
	ExpiresAt time.Time
}

// Match is one pairing of the schedule. Home and Away are only known for round 0.
type Match struct {
	Round int
	Index int
	Home  CandidateID
	Away  CandidateID
}

// Positions returns the two adjacent positions paired at this round.
func (m Match) Positions() (int, int) {
	return 2 * m.Index, 2*m.Index + 1
}

// Participant identifies who played a tournament: exactly one field must be set.
type Participant struct {
	UserID string
	AnonID string
}

// Valid reports whether exactly one identity is present.
func (p Participant) Valid() bool {
	return (p.UserID != "") != (p.AnonID != "")
}

// Anonymous reports whether the participant is identified by an anonymous token.
func (p Participant) Anonymous() bool {
	return p.UserID == "" && p.AnonID != ""
}

// Entry is one (candidate, rank) pair of a final ranking.
type Entry struct {
	CandidateID CandidateID
	Rank        int
}

// TournamentResult is a participant's submitted final ranking.
type TournamentResult struct {
	BracketID   string
	Participant Participant
	TotalRounds int
	Entries     []Entry
	Picks       []CandidateID // optional winners in schedule order
}

// Champion returns the candidate ranked 1, if any.
func (r TournamentResult) Champion() (CandidateID, bool) {
	for _, e := range r.Entries {
		if e.Rank == 1 {
			return e.CandidateID, true
		}
	}
	return 0, false
}

// CandidateIDs returns the entry candidate ids in submission order.
func (r TournamentResult) CandidateIDs() []CandidateID {
	ids := make([]CandidateID, len(r.Entries))
	for i, e := range r.Entries {
		ids[i] = e.CandidateID
	}
	return ids
}

// CandidateStats are lifetime tournament statistics of a candidate.
type CandidateStats struct {
	CandidateID CandidateID
	Appearances int64
	Wins        int64
	BestFinish  int
	UpdatedAt   time.Time
}

// CommitOutcome describes an accepted commit.
type CommitOutcome struct {
	BracketID  string
	Champion   CandidateID
	Candidates []CandidateID
}
