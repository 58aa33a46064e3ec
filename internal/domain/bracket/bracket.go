// Package bracket implements single-elimination bracket math: schedules,
// rank distributions and resolution of match picks into a final ranking.
//
// Everything here is pure. Sizes are powers of two so there are no byes.
package bracket

import (
	"fmt"
	"iter"
	"maps"
	"math/bits"

	"github.com/twobeats/worldcup/internal/domain/model"
)

// MinSize is the smallest playable bracket.
const MinSize = 2

// ValidSize reports whether size is a power of two in [MinSize, maxSize].
func ValidSize(size, maxSize int) error {
	if size < MinSize || size > maxSize || bits.OnesCount(uint(size)) != 1 {
		return fmt.Errorf("size %d (allowed powers of two in [%d,%d]): %w",
			size, MinSize, maxSize, model.ErrInvalidBracketSize)
	}
	return nil
}

// Rounds returns log2(size) for a valid size.
func Rounds(size int) int {
	return bits.TrailingZeros(uint(size))
}

// MatchCount returns the number of matches played in a bracket of size.
func MatchCount(size int) int {
	return size - 1
}

// Schedule yields the matches of spec round by round. Round 0 pairs slots
// (0,1),(2,3)...; later rounds pair the previous round's winners the same way.
// The sequence is finite and can be ranged over any number of times.
func Schedule(spec model.BracketSpec) iter.Seq[model.Match] {
	return func(yield func(model.Match) bool) {
		rounds := Rounds(spec.Size)
		for r := 0; r < rounds; r++ {
			matches := spec.Size >> (r + 1)
			for i := 0; i < matches; i++ {
				m := model.Match{Round: r, Index: i}
				if r == 0 && len(spec.Slots) == spec.Size {
					m.Home, m.Away = spec.Slots[2*i], spec.Slots[2*i+1]
				}
				if !yield(m) {
					return
				}
			}
		}
	}
}

// EliminationRank is the rank shared by the losers of round (0 = first round).
func EliminationRank(size, round int) int {
	return size>>(round+1) + 1
}

// Distribution maps a rank to the number of candidates holding it.
type Distribution map[int]int

// RankDistribution returns the only valid rank multiset of a bracket of size:
// one champion, one runner-up, and the losers of a round with m matches
// sharing rank m+1. Size 8 gives {1:1, 2:1, 3:2, 5:4}.
func RankDistribution(size int) Distribution {
	d := Distribution{1: 1}
	for r := 0; r < Rounds(size); r++ {
		d[EliminationRank(size, r)] = size >> (r + 1)
	}
	return d
}

// Total returns the number of ranked candidates.
func (d Distribution) Total() int {
	n := 0
	for _, c := range d {
		n += c
	}
	return n
}

// Equal reports whether d and other hold the same multiset.
func (d Distribution) Equal(other Distribution) bool {
	return maps.Equal(d, other)
}

// Of builds the distribution of a submitted ranking.
func Of(entries []model.Entry) Distribution {
	d := make(Distribution, len(entries))
	for _, e := range entries {
		d[e.Rank]++
	}
	return d
}

// Resolve replays picks, the winner of every match in Schedule order, and
// returns the implied final ranking in slot order.
func Resolve(spec model.BracketSpec, picks []model.CandidateID) ([]model.Entry, error) {
	if len(spec.Slots) != spec.Size {
		return nil, fmt.Errorf("bracket has %d slots for size %d: %w", len(spec.Slots), spec.Size, model.ErrInvalidInput)
	}
	if len(picks) != MatchCount(spec.Size) {
		return nil, fmt.Errorf("got %d picks, want %d: %w", len(picks), MatchCount(spec.Size), model.ErrPickMismatch)
	}

	rank := make(map[model.CandidateID]int, spec.Size)
	alive := append([]model.CandidateID(nil), spec.Slots...)
	k := 0
	for r := 0; r < Rounds(spec.Size); r++ {
		next := make([]model.CandidateID, 0, len(alive)/2)
		for i := 0; i+1 < len(alive); i += 2 {
			home, away := alive[i], alive[i+1]
			winner := picks[k]
			k++
			var loser model.CandidateID
			switch winner {
			case home:
				loser = away
			case away:
				loser = home
			default:
				return nil, fmt.Errorf("round %d match %d: %d is not %d or %d: %w",
					r, i/2, winner, home, away, model.ErrPickMismatch)
			}
			rank[loser] = EliminationRank(spec.Size, r)
			next = append(next, winner)
		}
		alive = next
	}
	rank[alive[0]] = 1

	entries := make([]model.Entry, len(spec.Slots))
	for i, id := range spec.Slots {
		entries[i] = model.Entry{CandidateID: id, Rank: rank[id]}
	}
	return entries, nil
}
