package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/twobeats/worldcup/internal/domain/model"
)

const defaultMaxEntries = 100000

type memoryEntry struct {
	spec    model.BracketSpec
	expires time.Time
}

// Memory is a process-local Registry. When full it drops expired entries
// first and then the entry closest to expiry.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

var _ Registry = (*Memory)(nil)

// NewMemory creates a Memory registry holding at most maxEntries brackets.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Memory{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *Memory) Put(_ context.Context, spec model.BracketSpec, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.entries[spec.ID]; ok && now.Before(e.expires) {
		return fmt.Errorf("bracket %s: %w", spec.ID, ErrExists)
	}
	if len(m.entries) >= m.maxEntries {
		m.evict(now)
	}
	m.entries[spec.ID] = memoryEntry{spec: spec, expires: now.Add(ttl)}
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (model.BracketSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return model.BracketSpec{}, fmt.Errorf("bracket %s: %w", id, ErrNotFound)
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, id)
		return model.BracketSpec{}, fmt.Errorf("bracket %s expired: %w", id, ErrNotFound)
	}
	return e.spec, nil
}

// Len returns the number of held entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Close() error { return nil }

// evict must be called with m.mu held.
func (m *Memory) evict(now time.Time) {
	var soonest string
	var soonestAt time.Time
	for id, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, id)
			continue
		}
		if soonest == "" || e.expires.Before(soonestAt) {
			soonest, soonestAt = id, e.expires
		}
	}
	if len(m.entries) >= m.maxEntries && soonest != "" {
		delete(m.entries, soonest)
	}
}
