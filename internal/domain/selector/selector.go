// Package selector draws random bracket candidates from the catalog.
package selector

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/twobeats/worldcup/internal/domain/bracket"
	"github.com/twobeats/worldcup/internal/domain/model"
)

// DefaultMaxSize is the largest bracket issued unless configured otherwise.
const DefaultMaxSize = 32

// Catalog lists the tracks eligible for a tournament.
type Catalog interface {
	ListEligible(ctx context.Context, f model.Filter) ([]model.Candidate, error)
}

// Selector issues bracket specs.
type Selector struct {
	catalog Catalog
	maxSize int
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Selector over catalog.
func New(catalog Catalog, opts ...Option) *Selector {
	var seed [32]byte
	_, _ = crand.Read(seed[:]) // never fails on supported platforms
	s := &Selector{
		catalog: catalog,
		maxSize: DefaultMaxSize,
		now:     time.Now,
		rng:     rand.New(rand.NewChaCha8(seed)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxSize returns the largest size Select accepts.
func (s *Selector) MaxSize() int { return s.maxSize }

// Select draws size distinct candidates matching f, uniformly without
// replacement, and returns them in shuffled slot order under a fresh id.
func (s *Selector) Select(ctx context.Context, f model.Filter, size int) (model.BracketSpec, error) {
	if err := bracket.ValidSize(size, s.maxSize); err != nil {
		return model.BracketSpec{}, err
	}

	pool, err := s.catalog.ListEligible(ctx, f)
	if err != nil {
		return model.BracketSpec{}, fmt.Errorf("list eligible: %w", err)
	}
	pool = distinct(pool)
	if len(pool) < size {
		return model.BracketSpec{}, fmt.Errorf("%d eligible, need %d: %w", len(pool), size, model.ErrInsufficientCandidates)
	}

	s.mu.Lock()
	// partial Fisher-Yates: the first size elements become a uniform sample
	for i := 0; i < size; i++ {
		j := i + s.rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	chosen := pool[:size]
	s.rng.Shuffle(len(chosen), func(i, j int) { chosen[i], chosen[j] = chosen[j], chosen[i] })
	s.mu.Unlock()

	spec := model.BracketSpec{
		ID:         uuid.NewString(),
		Size:       size,
		Slots:      make([]model.CandidateID, size),
		Candidates: make([]model.Candidate, size),
		IssuedAt:   s.now().UTC(),
	}
	for i, c := range chosen {
		spec.Slots[i] = c.ID
		spec.Candidates[i] = c
	}
	return spec, nil
}

// distinct drops repeated ids, keeping the first occurrence. The result never
// aliases the catalog's slice.
func distinct(in []model.Candidate) []model.Candidate {
	seen := make(map[model.CandidateID]struct{}, len(in))
	out := make([]model.Candidate, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}
