// Package validate checks a submitted tournament result against its issued bracket.
package validate

import (
	"fmt"
	"slices"

	"github.com/twobeats/worldcup/internal/domain/bracket"
	"github.com/twobeats/worldcup/internal/domain/model"
)

// Validate returns nil when result is a well-formed ranking of spec. Checks run
// in order and stop at the first failure: bracket id, candidate set, rank
// multiset, participant identity, then (when picks are present) the replay of
// picks. Without picks the ranking is trusted by shape alone.
func Validate(spec model.BracketSpec, result model.TournamentResult) error {
	if result.BracketID == "" || result.BracketID != spec.ID {
		return fmt.Errorf("bracket %q: %w", result.BracketID, model.ErrBracketMismatch)
	}
	if err := candidateSet(spec, result.Entries); err != nil {
		return err
	}
	if got, want := bracket.Of(result.Entries), bracket.RankDistribution(spec.Size); !got.Equal(want) {
		return fmt.Errorf("ranks %v, want %v: %w", got, want, model.ErrRankDistributionMismatch)
	}
	if !result.Participant.Valid() {
		return fmt.Errorf("need exactly one of user or anonymous id: %w", model.ErrAmbiguousParticipant)
	}
	if len(result.Picks) > 0 {
		return replay(spec, result)
	}
	return nil
}

func candidateSet(spec model.BracketSpec, entries []model.Entry) error {
	if len(entries) != len(spec.Slots) {
		return fmt.Errorf("%d entries for %d slots: %w", len(entries), len(spec.Slots), model.ErrCandidateSetMismatch)
	}
	want := make(map[model.CandidateID]bool, len(spec.Slots))
	for _, id := range spec.Slots {
		want[id] = false
	}
	for _, e := range entries {
		used, ok := want[e.CandidateID]
		switch {
		case !ok:
			return fmt.Errorf("candidate %d not in bracket: %w", e.CandidateID, model.ErrCandidateSetMismatch)
		case used:
			return fmt.Errorf("candidate %d ranked twice: %w", e.CandidateID, model.ErrCandidateSetMismatch)
		}
		want[e.CandidateID] = true
	}
	return nil
}

func replay(spec model.BracketSpec, result model.TournamentResult) error {
	derived, err := bracket.Resolve(spec, result.Picks)
	if err != nil {
		return err
	}
	byID := func(a, b model.Entry) int {
		switch {
		case a.CandidateID < b.CandidateID:
			return -1
		case a.CandidateID > b.CandidateID:
			return 1
		}
		return 0
	}
	got := slices.SortedFunc(slices.Values(result.Entries), byID)
	slices.SortFunc(derived, byID)
	if !slices.Equal(got, derived) {
		return fmt.Errorf("ranking disagrees with picks: %w", model.ErrPickMismatch)
	}
	return nil
}
