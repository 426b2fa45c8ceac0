package repository

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/okian/fifteen/internal/domain/rating"
	"github.com/okian/fifteen/pkg/metrics"
	"golang.org/x/exp/rand"
)

// Entry represents a ladder row.
type Entry struct {
	Rank     int
	PlayerID string
	Record   rating.Record
}

// Ladder stores rating records and keeps players ordered by score.
//
// Ordering: score DESC, then player id ASC. The treap's in-order walk yields
// the ladder from best to worst; players with equal scores share a rank and
// the next score gets the next rank.
type Ladder struct {
	mu   sync.RWMutex
	root *node
	byID map[string]rating.Record
	rng  *rand.Rand
}

type node struct {
	id    string
	score float64
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

// before reports whether (aScore, aID) ranks ahead of (bScore, bID).
func before(aScore float64, aID string, bScore float64, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
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

func insert(n *node, fresh *node) *node {
	if n == nil {
		return fresh
	}
	if before(fresh.score, fresh.id, n.score, n.id) {
		n.left = insert(n.left, fresh)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, fresh)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, id string, score float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.id == id && n.score == score:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, id, score)
		}
	case before(score, id, n.score, n.id):
		n.left = remove(n.left, id, score)
	default:
		n.right = remove(n.right, id, score)
	}
	fix(n)
	return n
}

// walk visits nodes in ladder order until fn returns false.
func walk(n *node, fn func(*node) bool) bool {
	if n == nil {
		return true
	}
	return walk(n.left, fn) && fn(n) && walk(n.right, fn)
}

// NewLadder constructs an empty ladder.
func NewLadder(opts ...Option) *Ladder {
	l := &Ladder{byID: make(map[string]rating.Record)}
	for _, opt := range opts {
		opt(l)
	}
	if l.rng == nil {
		l.rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	return l
}

// Get returns the stored record of a player; ok is false for a newcomer.
func (l *Ladder) Get(_ context.Context, playerID string) (rating.Record, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.byID[playerID]
	return r, ok, nil
}

// Put stores a player's record, moving them on the ladder in O(log n).
func (l *Ladder) Put(_ context.Context, playerID string, r rating.Record) error {
	if playerID == "" || math.IsNaN(r.Score) || math.IsInf(r.Score, 0) {
		metrics.RecordErrorByComponent("repository", "invalid_record")
		return fmt.Errorf("%w: player %q score %v", ErrInvalidRecord, playerID, r.Score)
	}

	l.mu.Lock()
	old, known := l.byID[playerID]
	if known {
		l.root = remove(l.root, playerID, old.Score)
	}
	l.byID[playerID] = r
	l.root = insert(l.root, &node{id: playerID, score: r.Score, prio: l.rng.Uint64(), size: 1})
	count := len(l.byID)
	l.mu.Unlock()

	if !known {
		metrics.UpdateLadderPlayers(count)
	}
	return nil
}

// Delete drops a player from the ladder. Unknown players are ignored.
func (l *Ladder) Delete(_ context.Context, playerID string) error {
	l.mu.Lock()
	old, known := l.byID[playerID]
	if known {
		l.root = remove(l.root, playerID, old.Score)
		delete(l.byID, playerID)
	}
	count := len(l.byID)
	l.mu.Unlock()

	if known {
		metrics.UpdateLadderPlayers(count)
	}
	return nil
}

// Rank returns a player's row. Returns ErrNotFound if the player is unknown.
func (l *Ladder) Rank(_ context.Context, playerID string) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.byID[playerID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, fmt.Errorf("%w: player %q", ErrNotFound, playerID)
	}

	rank, last := 0, math.Inf(1)
	walk(l.root, func(n *node) bool {
		if n.score != last {
			rank++
			last = n.score
		}
		return n.id != playerID
	})
	return Entry{Rank: rank, PlayerID: playerID, Record: rec}, nil
}

// TopN returns the best n rows in ladder order.
func (l *Ladder) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(l.byID)))
	rank, last := 0, math.Inf(1)
	walk(l.root, func(nd *node) bool {
		if nd.score != last {
			rank++
			last = nd.score
		}
		out = append(out, Entry{Rank: rank, PlayerID: nd.id, Record: l.byID[nd.id]})
		return len(out) < n
	})
	return out, nil
}

// Leader returns the best player whose record passes eligible, walking the
// ladder in rank order. A nil eligible admits everyone. ok is false when no
// player qualifies or the best qualifying score is shared.
func (l *Ladder) Leader(_ context.Context, eligible func(rating.Record) bool) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var (
		lead   Entry
		found  bool
		shared bool
	)
	rank, last := 0, math.Inf(1)
	walk(l.root, func(nd *node) bool {
		if nd.score != last {
			rank++
			last = nd.score
		}
		if found && nd.score < lead.Record.Score {
			return false
		}
		r := l.byID[nd.id]
		if eligible != nil && !eligible(r) {
			return true
		}
		if found {
			shared = true
			return false
		}
		lead, found = Entry{Rank: rank, PlayerID: nd.id, Record: r}, true
		return true
	})
	if !found || shared {
		return Entry{}, false
	}
	return lead, true
}

// Count returns the number of rated players.
func (l *Ladder) Count(_ context.Context) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byID)
}
