package model_test

import (
	"fmt"
	"testing"

	model "github.com/twobeats/worldcup/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestBracketSpecRounds(t *testing.T) {
	convey.Convey("Given bracket specs of every supported size", t, func() {
		for size, rounds := range map[int]int{2: 1, 4: 2, 8: 3, 16: 4, 32: 5} {
			spec := model.BracketSpec{Size: size}
			convey.So(spec.Rounds(), convey.ShouldEqual, rounds)
		}
		convey.So(model.BracketSpec{}.Rounds(), convey.ShouldEqual, 0)
	})
}

func TestMatchPositions(t *testing.T) {
	convey.Convey("Given a match at index 3", t, func() {
		home, away := model.Match{Round: 1, Index: 3}.Positions()
		convey.So(home, convey.ShouldEqual, 6)
		convey.So(away, convey.ShouldEqual, 7)
	})
}

func TestParticipant(t *testing.T) {
	convey.Convey("Given participant identities", t, func() {
		convey.So(model.Participant{UserID: "u1"}.Valid(), convey.ShouldBeTrue)
		convey.So(model.Participant{AnonID: "a1"}.Valid(), convey.ShouldBeTrue)
		convey.So(model.Participant{AnonID: "a1"}.Anonymous(), convey.ShouldBeTrue)
		convey.So(model.Participant{}.Valid(), convey.ShouldBeFalse)
		convey.So(model.Participant{UserID: "u1", AnonID: "a1"}.Valid(), convey.ShouldBeFalse)
	})
}

func TestTournamentResult(t *testing.T) {
	convey.Convey("Given a tournament result", t, func() {
		r := model.TournamentResult{Entries: []model.Entry{
			{CandidateID: 7, Rank: 2}, {CandidateID: 3, Rank: 1},
		}}

		convey.Convey("Then the champion is the rank 1 entry", func() {
			id, ok := r.Champion()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(id, convey.ShouldEqual, model.CandidateID(3))
		})

		convey.Convey("Then candidate ids keep submission order", func() {
			convey.So(r.CandidateIDs(), convey.ShouldResemble, []model.CandidateID{7, 3})
		})

		convey.Convey("When nobody is ranked first", func() {
			_, ok := model.TournamentResult{}.Champion()
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestParseGenre(t *testing.T) {
	convey.Convey("Given genre strings", t, func() {
		g, ok := model.ParseGenre(" Ballad ")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(g, convey.ShouldEqual, model.GenreBallad)

		_, ok = model.ParseGenre("")
		convey.So(ok, convey.ShouldBeTrue)

		_, ok = model.ParseGenre("polka")
		convey.So(ok, convey.ShouldBeFalse)
	})
}

func TestKindOf(t *testing.T) {
	convey.Convey("Given wrapped domain errors", t, func() {
		wrap := func(err error) error { return fmt.Errorf("submit: %w", err) }

		convey.So(model.KindOf(wrap(model.ErrInvalidBracketSize)), convey.ShouldEqual, model.KindInput)
		convey.So(model.KindOf(wrap(model.ErrAmbiguousParticipant)), convey.ShouldEqual, model.KindInput)
		convey.So(model.KindOf(wrap(model.ErrRankDistributionMismatch)), convey.ShouldEqual, model.KindConsistency)
		convey.So(model.KindOf(wrap(model.ErrDuplicateSubmission)), convey.ShouldEqual, model.KindConflict)
		convey.So(model.KindOf(wrap(model.ErrInsufficientCandidates)), convey.ShouldEqual, model.KindResource)
		convey.So(model.KindOf(wrap(model.ErrNotFound)), convey.ShouldEqual, model.KindNotFound)
		convey.So(model.KindOf(fmt.Errorf("boom")), convey.ShouldEqual, model.KindInternal)
		convey.So(model.KindConflict.String(), convey.ShouldEqual, "conflict")
	})
}
