package service_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/twobeats/worldcup/internal/adapters/registry"
	service "github.com/twobeats/worldcup/internal/app"
	"github.com/twobeats/worldcup/internal/domain/model"
	"github.com/twobeats/worldcup/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fixedSelector hands out brackets of the given slots with increasing ids.
type fixedSelector struct {
	mu    sync.Mutex
	slots []model.CandidateID
	n     int
	err   error
}

func (f *fixedSelector) Select(_ context.Context, _ model.Filter, size int) (model.BracketSpec, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.BracketSpec{}, f.err
	}
	if size != len(f.slots) {
		return model.BracketSpec{}, model.ErrInsufficientCandidates
	}
	f.n++
	return model.BracketSpec{
		ID:    "bracket-" + string(rune('a'+f.n-1)),
		Size:  size,
		Slots: slices.Clone(f.slots),
	}, nil
}

func (f *fixedSelector) MaxSize() int { return 32 }

// memStore is a ResultStore kept in maps.
type memStore struct {
	mu        sync.Mutex
	committed map[string]bool
	stats     map[model.CandidateID]model.CandidateStats
	commitErr error
}

func newMemStore() *memStore {
	return &memStore{committed: map[string]bool{}, stats: map[model.CandidateID]model.CandidateStats{}}
}

func (m *memStore) Commit(_ context.Context, spec model.BracketSpec, r model.TournamentResult) (model.CommitOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return model.CommitOutcome{}, m.commitErr
	}
	if m.committed[spec.ID] {
		return model.CommitOutcome{}, model.ErrDuplicateSubmission
	}
	m.committed[spec.ID] = true
	champion, _ := r.Champion()
	for _, e := range r.Entries {
		st := m.stats[e.CandidateID]
		st.CandidateID = e.CandidateID
		st.Appearances++
		if e.Rank == 1 {
			st.Wins++
		}
		if st.BestFinish == 0 || e.Rank < st.BestFinish {
			st.BestFinish = e.Rank
		}
		m.stats[e.CandidateID] = st
	}
	return model.CommitOutcome{BracketID: spec.ID, Champion: champion, Candidates: r.CandidateIDs()}, nil
}

func (m *memStore) Stats(_ context.Context, id model.CandidateID) (model.CandidateStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stats[id]
	if !ok {
		return model.CandidateStats{}, model.ErrNotFound
	}
	return st, nil
}

func (m *memStore) StatsFor(_ context.Context, ids []model.CandidateID) ([]model.CandidateStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CandidateStats
	for _, id := range ids {
		if st, ok := m.stats[id]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (m *memStore) AllStats(ctx context.Context) ([]model.CandidateStats, error) {
	m.mu.Lock()
	ids := make([]model.CandidateID, 0, len(m.stats))
	for id := range m.stats {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	slices.Sort(ids)
	return m.StatsFor(ctx, ids)
}

func (m *memStore) TopByWins(context.Context, int) ([]model.CandidateStats, error) { return nil, nil }

func (m *memStore) Reconcile(context.Context) (int, error) { return 0, nil }

func commitsOf(m *memStore) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.committed)
}

// A=1 beats B=2, D=4 beats C=3, A beats D.
func resultFor(id string) model.TournamentResult {
	return model.TournamentResult{
		BracketID:   id,
		Participant: model.Participant{AnonID: "0b7c2a1e-6f7e-4e43-9c7d-8d2f3c1a5b60"},
		TotalRounds: 4,
		Entries: []model.Entry{
			{CandidateID: 1, Rank: 1},
			{CandidateID: 4, Rank: 2},
			{CandidateID: 2, Rank: 3},
			{CandidateID: 3, Rank: 3},
		},
	}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		store := newMemStore()
		svc := service.New(&fixedSelector{slots: []model.CandidateID{1, 2, 3, 4}}, registry.NewMemory(10), store,
			service.WithWorkerCount(2),
			service.WithQueueSize(16),
		)

		Convey("Then it reports itself stopped", func() {
			So(svc.GetStats()["started"], ShouldEqual, false)
			So(svc.MaxBracketSize(), ShouldEqual, 32)
		})

		Convey("When it is started twice and stopped twice", func() {
			ctx := context.Background()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			svc.Stop()
			svc.Stop()

			Convey("Then it ends up stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_IssueAndSubmit(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service over an in-memory store", t, func() {
		now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		store := newMemStore()
		sel := &fixedSelector{slots: []model.CandidateID{1, 2, 3, 4}}
		svc := service.New(sel, registry.NewMemory(10), store,
			service.WithWorkerCount(1),
			service.WithBracketTTL(10*time.Minute),
			service.WithClock(func() time.Time { return now }),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		issued, err := svc.IssueBracket(ctx, model.Filter{}, 4)
		So(err, ShouldBeNil)
		id := issued.Spec.ID

		Convey("Then the bracket is registered with an expiry", func() {
			So(issued.ExpiresAt, ShouldEqual, now.Add(10*time.Minute))
			got, err := svc.GetBracket(ctx, id)
			So(err, ShouldBeNil)
			So(got.Slots, ShouldResemble, []model.CandidateID{1, 2, 3, 4})
		})

		Convey("When a valid result is submitted", func() {
			out, err := svc.SubmitResult(ctx, resultFor(id))
			So(err, ShouldBeNil)

			Convey("Then the champion is reported", func() {
				So(out.Champion, ShouldEqual, model.CandidateID(1))
				st, err := svc.CandidateStats(ctx, 1)
				So(err, ShouldBeNil)
				So(st.Wins, ShouldEqual, 1)
			})

			Convey("Then the leaderboard catches up", func() {
				var top int
				for range 200 {
					rows, err := svc.Ranking(ctx, 10)
					So(err, ShouldBeNil)
					if top = len(rows); top == 4 {
						So(rows[0].CandidateID, ShouldEqual, 1)
						So(rows[0].Rank, ShouldEqual, 1)
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(top, ShouldEqual, 4)
			})

			Convey("Then a resubmission is a duplicate and writes nothing", func() {
				_, err := svc.SubmitResult(ctx, resultFor(id))
				So(err, ShouldWrap, model.ErrDuplicateSubmission)
				So(commitsOf(store), ShouldEqual, 1)
			})
		})

		Convey("When the bracket id was never issued", func() {
			_, err := svc.SubmitResult(ctx, resultFor("forged"))
			So(err, ShouldWrap, model.ErrBracketMismatch)
			_, err = svc.GetBracket(ctx, "forged")
			So(err, ShouldWrap, model.ErrBracketMismatch)
		})

		Convey("When total_rounds does not match the bracket", func() {
			r := resultFor(id)
			r.TotalRounds = 16
			_, err := svc.SubmitResult(ctx, r)
			So(err, ShouldWrap, model.ErrInvalidInput)
		})

		Convey("When total_rounds is omitted", func() {
			r := resultFor(id)
			r.TotalRounds = 0
			_, err := svc.SubmitResult(ctx, r)
			So(err, ShouldBeNil)
		})

		Convey("When two ranks are swapped", func() {
			r := resultFor(id)
			r.Entries[1].Rank, r.Entries[2].Rank = 3, 3
			_, err := svc.SubmitResult(ctx, r)
			So(err, ShouldWrap, model.ErrRankDistributionMismatch)
			So(commitsOf(store), ShouldEqual, 0)
		})

		Convey("When the store fails", func() {
			store.commitErr = errors.New("disk full")
			_, err := svc.SubmitResult(ctx, resultFor(id))

			Convey("Then the error surfaces and the bracket stays submittable", func() {
				So(err, ShouldNotBeNil)
				So(model.KindOf(err), ShouldEqual, model.KindInternal)
				store.mu.Lock()
				store.commitErr = nil
				store.mu.Unlock()
				_, err = svc.SubmitResult(ctx, resultFor(id))
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestService_IssueErrors(t *testing.T) {
	ctx := context.Background()

	Convey("Given a selector that fails", t, func() {
		sel := &fixedSelector{err: model.ErrInvalidBracketSize}
		svc := service.New(sel, registry.NewMemory(10), newMemStore())

		Convey("Then the selection error is returned", func() {
			_, err := svc.IssueBracket(ctx, model.Filter{}, 3)
			So(err, ShouldWrap, model.ErrInvalidBracketSize)
		})
	})

	Convey("Given a selector short on candidates", t, func() {
		svc := service.New(&fixedSelector{slots: []model.CandidateID{1, 2}}, registry.NewMemory(10), newMemStore())

		Convey("Then issuing a larger bracket fails", func() {
			_, err := svc.IssueBracket(ctx, model.Filter{}, 8)
			So(err, ShouldWrap, model.ErrInsufficientCandidates)
		})
	})
}

func TestService_Ranking(t *testing.T) {
	Convey("Given a service with a ranking cap", t, func() {
		svc := service.New(&fixedSelector{}, registry.NewMemory(10), newMemStore(), service.WithMaxRankingLimit(5))

		Convey("Then limits outside 1..cap are rejected", func() {
			_, err := svc.Ranking(context.Background(), 0)
			So(err, ShouldWrap, model.ErrInvalidInput)
			_, err = svc.Ranking(context.Background(), 6)
			So(err, ShouldWrap, model.ErrInvalidInput)
		})

		Convey("Then an empty leaderboard yields no rows", func() {
			rows, err := svc.Ranking(context.Background(), 5)
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})

		Convey("Then an unknown candidate has no standing", func() {
			_, err := svc.Standing(context.Background(), 99)
			So(err, ShouldWrap, model.ErrNotFound)
		})
	})
}
