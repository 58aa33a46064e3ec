package repository

import (
	"context"
	"sync"
	"time"

	"github.com/twobeats/worldcup/internal/domain/model"
	"github.com/twobeats/worldcup/internal/domain/types"
	"github.com/twobeats/worldcup/pkg/metrics"
)

// Treap-based, in-memory popularity leaderboard.
//
// Ordering: wins DESC, then candidate id ASC (deterministic). "less" means
// ranks earlier, so an in-order traversal yields the leaderboard best first.
// Candidates with equal wins share a dense rank.

// Standing mirrors the read shape returned by leaderboard queries.
type Standing = types.Standing

type node struct {
	id    uint64
	wins  int64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aWins int64, aID uint64, bWins int64, bID uint64) bool {
	if aWins != bWins {
		return aWins > bWins
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id uint64, wins int64, prio uint64) *node {
	if n == nil {
		return &node{id: id, wins: wins, prio: prio, size: 1}
	}
	if less(wins, id, n.wins, n.id) {
		n.left = insert(n.left, id, wins, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, wins, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id uint64, wins int64) *node {
	if n == nil {
		return nil
	}
	switch {
	case wins == n.wins && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, wins)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, wins)
		}
	case less(wins, id, n.wins, n.id):
		n.left = deleteNode(n.left, id, wins)
	default:
		n.right = deleteNode(n.right, id, wins)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit nodes in rank order.
func collectTopN(n *node, limit int, out *[]*node) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// Leaderboard is the in-memory read model of candidate popularity.
type Leaderboard struct {
	mu        sync.RWMutex
	root      *node
	byID      map[uint64]model.CandidateStats
	winCounts map[int64]int // distinct win totals -> candidates holding them
	prioState uint64
}

// NewLeaderboard constructs an empty leaderboard.
func NewLeaderboard(opts ...LeaderboardOption) *Leaderboard {
	l := &Leaderboard{
		byID:      make(map[uint64]model.CandidateStats),
		winCounts: make(map[int64]int),
		prioState: uint64(time.Now().UnixNano()) | 1,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// nextPrio is xorshift64; treap balance only needs the priorities to look random.
func (l *Leaderboard) nextPrio() uint64 {
	x := l.prioState
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	l.prioState = x
	return x
}

// Apply stores st if it is newer than what the leaderboard holds. Newer means
// more appearances or a later UpdatedAt, so replaying an older projection is
// a no-op while a reconciled row replaces a drifted one.
func (l *Leaderboard) Apply(_ context.Context, st model.CandidateStats) bool {
	l.mu.Lock()
	applied, added := l.put(st)
	count := len(l.byID)
	l.mu.Unlock()

	if !applied {
		return false
	}
	metrics.RecordLeaderboardUpdate()
	if added {
		metrics.UpdateLeaderboardSize(count)
	}
	return true
}

// put does the work of Apply. Must be called with l.mu held or on an
// unpublished leaderboard.
func (l *Leaderboard) put(st model.CandidateStats) (applied, added bool) {
	id := uint64(st.CandidateID)
	old, ok := l.byID[id]
	if ok && !newer(st, old) {
		return false, false
	}
	if ok {
		l.root = deleteNode(l.root, id, old.Wins)
		l.dropWins(old.Wins)
	}
	l.byID[id] = st
	l.winCounts[st.Wins]++
	l.root = insert(l.root, id, st.Wins, l.nextPrio())
	return true, !ok
}

func newer(st, old model.CandidateStats) bool {
	return st.Appearances > old.Appearances || st.UpdatedAt.After(old.UpdatedAt)
}

// Load applies every row of all and returns how many changed the leaderboard.
func (l *Leaderboard) Load(ctx context.Context, all []model.CandidateStats) int {
	n := 0
	for _, st := range all {
		if l.Apply(ctx, st) {
			n++
		}
	}
	return n
}

// Reset replaces the current state with one built from all. The new tree is
// built aside and swapped in under a single lock, so readers see either the
// old board or the new one. Rows missing from all are dropped.
func (l *Leaderboard) Reset(_ context.Context, all []model.CandidateStats) int {
	l.mu.RLock()
	seed := l.prioState
	l.mu.RUnlock()

	fresh := &Leaderboard{
		byID:      make(map[uint64]model.CandidateStats, len(all)),
		winCounts: make(map[int64]int),
		prioState: seed,
	}
	for _, st := range all {
		fresh.put(st)
	}

	l.mu.Lock()
	// keep projections that landed after all was read
	for id, cur := range l.byID {
		if snap, ok := fresh.byID[id]; ok && cur.UpdatedAt.After(snap.UpdatedAt) {
			fresh.put(cur)
		}
	}
	l.root = fresh.root
	l.byID = fresh.byID
	l.winCounts = fresh.winCounts
	l.prioState = fresh.prioState
	count := len(l.byID)
	l.mu.Unlock()

	metrics.UpdateLeaderboardSize(count)
	return count
}

func (l *Leaderboard) dropWins(w int64) {
	if l.winCounts[w] <= 1 {
		delete(l.winCounts, w)
		return
	}
	l.winCounts[w]--
}

// denseRank returns 1 + the number of distinct win totals above w.
// Must be called with l.mu held.
func (l *Leaderboard) denseRank(w int64) int {
	r := 1
	for other := range l.winCounts {
		if other > w {
			r++
		}
	}
	return r
}

func (l *Leaderboard) standing(rank int, st model.CandidateStats) Standing {
	return Standing{
		Rank:        rank,
		CandidateID: uint64(st.CandidateID),
		Wins:        st.Wins,
		Appearances: st.Appearances,
		BestFinish:  st.BestFinish,
	}
}

// Rank returns the current standing of a candidate.
func (l *Leaderboard) Rank(_ context.Context, id model.CandidateID) (Standing, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st, ok := l.byID[uint64(id)]
	if !ok {
		return Standing{}, ErrNotFound
	}
	return l.standing(l.denseRank(st.Wins), st), nil
}

// TopN returns the best n candidates.
func (l *Leaderboard) TopN(_ context.Context, n int) ([]Standing, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("leaderboard", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	nodes := make([]*node, 0, min(n, len(l.byID)))
	collectTopN(l.root, n, &nodes)

	out := make([]Standing, len(nodes))
	rank := 0
	for i, nd := range nodes {
		if i == 0 || nd.wins != nodes[i-1].wins {
			rank++
		}
		out[i] = l.standing(rank, l.byID[nd.id])
	}
	return out, nil
}

// Count returns the number of candidates on the leaderboard.
func (l *Leaderboard) Count(_ context.Context) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byID)
}
