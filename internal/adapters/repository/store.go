// Package repository persists tournament results and candidate statistics and
// keeps the in-memory popularity leaderboard.
package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/twobeats/worldcup/internal/domain/model"
	"github.com/twobeats/worldcup/pkg/metrics"
)

// ResultStore is the durable side of the engine.
type ResultStore interface {
	// Commit stores result exactly once per bracket id and folds it into the
	// candidate stats in the same transaction. A second commit of the same
	// bracket returns model.ErrDuplicateSubmission and writes nothing.
	Commit(ctx context.Context, spec model.BracketSpec, result model.TournamentResult) (model.CommitOutcome, error)

	Stats(ctx context.Context, id model.CandidateID) (model.CandidateStats, error)
	StatsFor(ctx context.Context, ids []model.CandidateID) ([]model.CandidateStats, error)
	AllStats(ctx context.Context) ([]model.CandidateStats, error)
	TopByWins(ctx context.Context, n int) ([]model.CandidateStats, error)

	// Reconcile rebuilds stats from the committed entries and returns the
	// number of rows it had to correct.
	Reconcile(ctx context.Context) (int, error)
}

// Store is the gorm implementation of ResultStore.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ResultStore = (*Store)(nil)

// NewStore wraps an open database.
func NewStore(db *gorm.DB, opts ...StoreOption) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Commit implements ResultStore.
func (s *Store) Commit(ctx context.Context, spec model.BracketSpec, result model.TournamentResult) (model.CommitOutcome, error) {
	start := time.Now()
	defer func() {
		metrics.RecordCommitLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	champion, _ := result.Champion()
	game := WorldcupGame{
		BracketID:   result.BracketID,
		UserID:      nullable(result.Participant.UserID),
		AnonID:      nullable(result.Participant.AnonID),
		Size:        spec.Size,
		TotalRounds: result.TotalRounds,
		ChampionID:  uint64(champion),
		CreatedAt:   s.now().UTC(),
	}

	// ascending candidate id keeps the row lock order identical across commits
	entries := slices.SortedFunc(slices.Values(result.Entries), func(a, b model.Entry) int {
		return compareID(a.CandidateID, b.CandidateID)
	})

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bracket_id"}},
			DoNothing: true,
		}).Create(&game)
		if res.Error != nil {
			return fmt.Errorf("insert game: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return model.ErrDuplicateSubmission
		}

		rows := make([]WorldcupEntry, len(entries))
		for i, e := range entries {
			rows[i] = WorldcupEntry{BracketID: result.BracketID, CandidateID: uint64(e.CandidateID), Rank: e.Rank}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert entries: %w", err)
		}

		now := s.now().UTC()
		for _, e := range entries {
			if err := mergeStats(tx, e, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, model.ErrDuplicateSubmission) {
			metrics.RecordErrorByComponent("repository", "commit")
		}
		return model.CommitOutcome{}, fmt.Errorf("commit %s: %w", result.BracketID, err)
	}

	return model.CommitOutcome{
		BracketID:  result.BracketID,
		Champion:   champion,
		Candidates: result.CandidateIDs(),
	}, nil
}

// mergeStats folds one entry into its stats row with a single atomic update.
func mergeStats(tx *gorm.DB, e model.Entry, now time.Time) error {
	id := uint64(e.CandidateID)
	seed := CandidateStat{CandidateID: id, BestFinish: e.Rank, UpdatedAt: now}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return fmt.Errorf("ensure stats %d: %w", id, err)
	}

	win := 0
	if e.Rank == 1 {
		win = 1
	}
	res := tx.Model(&CandidateStat{}).Where("candidate_id = ?", id).Updates(map[string]any{
		"appearances": gorm.Expr("appearances + 1"),
		"wins":        gorm.Expr("wins + ?", win),
		"best_finish": gorm.Expr("CASE WHEN best_finish > ? THEN ? ELSE best_finish END", e.Rank, e.Rank),
		"updated_at":  now,
	})
	if res.Error != nil {
		return fmt.Errorf("update stats %d: %w", id, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("update stats %d: %d rows affected", id, res.RowsAffected)
	}
	return nil
}

// Stats implements ResultStore.
func (s *Store) Stats(ctx context.Context, id model.CandidateID) (model.CandidateStats, error) {
	var row CandidateStat
	err := s.db.WithContext(ctx).Where("candidate_id = ?", uint64(id)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CandidateStats{}, fmt.Errorf("stats %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.CandidateStats{}, fmt.Errorf("stats %d: %w", id, err)
	}
	return row.toModel(), nil
}

// StatsFor implements ResultStore. Unknown ids are skipped.
func (s *Store) StatsFor(ctx context.Context, ids []model.CandidateID) ([]model.CandidateStats, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]uint64, len(ids))
	for i, id := range ids {
		raw[i] = uint64(id)
	}
	var rows []CandidateStat
	if err := s.db.WithContext(ctx).Where("candidate_id IN ?", raw).Order("candidate_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("stats for %d ids: %w", len(ids), err)
	}
	return toModels(rows), nil
}

// AllStats implements ResultStore.
func (s *Store) AllStats(ctx context.Context) ([]model.CandidateStats, error) {
	var rows []CandidateStat
	if err := s.db.WithContext(ctx).Order("candidate_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("all stats: %w", err)
	}
	return toModels(rows), nil
}

// TopByWins implements ResultStore.
func (s *Store) TopByWins(ctx context.Context, n int) ([]model.CandidateStats, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	var rows []CandidateStat
	err := s.db.WithContext(ctx).Order("wins DESC").Order("candidate_id ASC").Limit(n).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("top by wins: %w", err)
	}
	return toModels(rows), nil
}

// Reconcile implements ResultStore.
func (s *Store) Reconcile(ctx context.Context) (int, error) {
	corrected := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var want []CandidateStat
		err := tx.Model(&WorldcupEntry{}).
			Select("candidate_id, COUNT(*) AS appearances, " +
				"SUM(CASE WHEN rank = 1 THEN 1 ELSE 0 END) AS wins, MIN(rank) AS best_finish").
			Group("candidate_id").
			Scan(&want).Error
		if err != nil {
			return fmt.Errorf("aggregate entries: %w", err)
		}

		var have []CandidateStat
		if err := tx.Find(&have).Error; err != nil {
			return fmt.Errorf("load stats: %w", err)
		}
		current := make(map[uint64]CandidateStat, len(have))
		for _, h := range have {
			current[h.CandidateID] = h
		}

		now := s.now().UTC()
		for _, w := range want {
			h, ok := current[w.CandidateID]
			delete(current, w.CandidateID)
			if ok && h.Appearances == w.Appearances && h.Wins == w.Wins && h.BestFinish == w.BestFinish {
				continue
			}
			w.UpdatedAt = now
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "candidate_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"appearances", "wins", "best_finish", "updated_at"}),
			}).Create(&w).Error
			if err != nil {
				return fmt.Errorf("rewrite stats %d: %w", w.CandidateID, err)
			}
			corrected++
		}

		// stats rows with no entries behind them
		for id := range current {
			if err := tx.Where("candidate_id = ?", id).Delete(&CandidateStat{}).Error; err != nil {
				return fmt.Errorf("drop stats %d: %w", id, err)
			}
			corrected++
		}
		return nil
	})
	if err != nil {
		metrics.RecordErrorByComponent("repository", "reconcile")
		return 0, err
	}
	metrics.RecordReconcileCorrections(corrected)
	return corrected, nil
}

func (r CandidateStat) toModel() model.CandidateStats {
	return model.CandidateStats{
		CandidateID: model.CandidateID(r.CandidateID),
		Appearances: r.Appearances,
		Wins:        r.Wins,
		BestFinish:  r.BestFinish,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toModels(rows []CandidateStat) []model.CandidateStats {
	out := make([]model.CandidateStats, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func compareID(a, b model.CandidateID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
