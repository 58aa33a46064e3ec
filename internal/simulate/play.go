package simulate

import (
	"fmt"
	"math/rand/v2"

	"github.com/twobeats/worldcup/internal/domain/bracket"
	"github.com/twobeats/worldcup/internal/domain/model"
)

// Play picks a random winner for every match of b and returns the
// submission the picks imply. anon is the user_uid; pass "" to rely on a
// bearer token instead.
func Play(b Bracket, rng *rand.Rand, anon string) (Submission, error) {
	spec := model.BracketSpec{ID: b.BracketID, Size: b.Size, Slots: make([]model.CandidateID, len(b.Slots))}
	for i, t := range b.Slots {
		spec.Slots[i] = model.CandidateID(t.ID)
	}

	picks := make([]model.CandidateID, 0, bracket.MatchCount(spec.Size))
	alive := spec.Slots
	for len(alive) > 1 {
		next := make([]model.CandidateID, 0, len(alive)/2)
		for i := 0; i+1 < len(alive); i += 2 {
			next = append(next, alive[i+rng.IntN(2)])
		}
		picks = append(picks, next...)
		alive = next
	}

	entries, err := bracket.Resolve(spec, picks)
	if err != nil {
		return Submission{}, fmt.Errorf("resolve %s: %w", b.BracketID, err)
	}

	s := Submission{
		BracketID:   b.BracketID,
		UserUID:     anon,
		TotalRounds: b.Size,
		Results:     make([]Result, len(entries)),
		Picks:       make([]uint64, len(picks)),
	}
	for i, e := range entries {
		s.Results[i] = Result{MusicID: uint64(e.CandidateID), Rank: e.Rank}
	}
	for i, p := range picks {
		s.Picks[i] = uint64(p)
	}
	return s, nil
}

// Champion returns the rank-1 track of s.
func (s Submission) Champion() uint64 {
	for _, r := range s.Results {
		if r.Rank == 1 {
			return r.MusicID
		}
	}
	return 0
}
