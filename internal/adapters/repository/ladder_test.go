package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/fifteen/internal/domain/rating"
	"golang.org/x/exp/rand"
)

func rec(score float64) rating.Record {
	return rating.Record{Score: score, Matches: 12}
}

func TestLadder_BasicOperations(t *testing.T) {
	ctx := context.Background()
	l := NewLadder(WithRand(rand.New(rand.NewSource(1))))

	if count := l.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}
	if _, ok, _ := l.Get(ctx, "alice"); ok {
		t.Error("unknown player should not be found")
	}

	if err := l.Put(ctx, "alice", rec(1500)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok, err := l.Get(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("expected alice, got ok=%v err=%v", ok, err)
	}
	if got.Score != 1500 {
		t.Errorf("expected score 1500, got %f", got.Score)
	}

	entry, err := l.Rank(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 {
		t.Errorf("expected rank 1, got %d", entry.Rank)
	}

	if _, err := l.Rank(ctx, "bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLadder_ScoresMoveBothWays(t *testing.T) {
	ctx := context.Background()
	l := NewLadder()

	_ = l.Put(ctx, "alice", rec(1600))
	_ = l.Put(ctx, "bob", rec(1500))

	// ratings drop after losses, unlike best-score boards
	_ = l.Put(ctx, "alice", rec(1400))

	top, err := l.TopN(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(top))
	}
	if top[0].PlayerID != "bob" || top[1].PlayerID != "alice" {
		t.Errorf("unexpected order: %+v", top)
	}
	if l.Count(ctx) != 2 {
		t.Errorf("re-putting must not duplicate players, count %d", l.Count(ctx))
	}
}

func TestLadder_TiesShareRank(t *testing.T) {
	ctx := context.Background()
	l := NewLadder()

	_ = l.Put(ctx, "carol", rec(1700))
	_ = l.Put(ctx, "bob", rec(1600))
	_ = l.Put(ctx, "alice", rec(1600))
	_ = l.Put(ctx, "dave", rec(1500))

	top, _ := l.TopN(ctx, 4)
	want := []struct {
		id   string
		rank int
	}{{"carol", 1}, {"alice", 2}, {"bob", 2}, {"dave", 3}}
	for i, w := range want {
		if top[i].PlayerID != w.id || top[i].Rank != w.rank {
			t.Errorf("row %d: want %s#%d, got %s#%d", i, w.id, w.rank, top[i].PlayerID, top[i].Rank)
		}
	}

	entry, _ := l.Rank(ctx, "bob")
	if entry.Rank != 2 {
		t.Errorf("expected bob rank 2, got %d", entry.Rank)
	}
	entry, _ = l.Rank(ctx, "dave")
	if entry.Rank != 3 {
		t.Errorf("expected dave rank 3, got %d", entry.Rank)
	}
}

func TestLadder_Leader(t *testing.T) {
	ctx := context.Background()
	l := NewLadder()

	if _, ok := l.Leader(ctx, nil); ok {
		t.Error("empty ladder has no leader")
	}
	_ = l.Put(ctx, "alice", rec(2200))
	_ = l.Put(ctx, "bob", rec(2100))
	if lead, ok := l.Leader(ctx, nil); !ok || lead.PlayerID != "alice" {
		t.Errorf("expected alice to lead, got %+v ok=%v", lead, ok)
	}

	_ = l.Put(ctx, "bob", rec(2200))
	if _, ok := l.Leader(ctx, nil); ok {
		t.Error("a shared top score has no single leader")
	}
}

func TestLadder_LeaderSkipsIneligible(t *testing.T) {
	ctx := context.Background()
	l := NewLadder()
	seasoned := func(r rating.Record) bool { return r.Matches >= 10 }

	carol := rec(3200)
	carol.Matches = 2
	alice := rec(2800)
	alice.Matches = 20
	bob := rec(2000)
	bob.Matches = 20
	_ = l.Put(ctx, "carol", carol)
	_ = l.Put(ctx, "alice", alice)
	_ = l.Put(ctx, "bob", bob)

	lead, ok := l.Leader(ctx, seasoned)
	if !ok || lead.PlayerID != "alice" {
		t.Fatalf("expected alice to lead the eligible players, got %+v ok=%v", lead, ok)
	}
	if lead.Rank != 2 {
		t.Errorf("leader keeps its ladder rank, got %d", lead.Rank)
	}

	dave := rec(2800)
	dave.Matches = 30
	_ = l.Put(ctx, "dave", dave)
	if _, ok := l.Leader(ctx, seasoned); ok {
		t.Error("a shared best eligible score has no single leader")
	}

	erin := rec(2800)
	erin.Matches = 1
	_ = l.Put(ctx, "dave", rec(1900))
	_ = l.Put(ctx, "erin", erin)
	if lead, ok := l.Leader(ctx, seasoned); !ok || lead.PlayerID != "alice" {
		t.Errorf("an ineligible tie does not unseat alice, got %+v ok=%v", lead, ok)
	}

	if _, ok := l.Leader(ctx, func(rating.Record) bool { return false }); ok {
		t.Error("no eligible player means no leader")
	}
}

func TestLadder_InvalidInput(t *testing.T) {
	ctx := context.Background()
	l := NewLadder()

	if _, err := l.TopN(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
	if err := l.Put(ctx, "", rec(1500)); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord for empty id, got %v", err)
	}
	nan := rec(0)
	nan.Score = nan.Score / nan.Score
	if err := l.Put(ctx, "alice", nan); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord for NaN, got %v", err)
	}
}

func TestLadder_TreapStaysOrdered(t *testing.T) {
	ctx := context.Background()
	l := NewLadder(WithRand(rand.New(rand.NewSource(99))))
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		id := fmt.Sprintf("p-%d", rng.Intn(300))
		_ = l.Put(ctx, id, rec(float64(1000+rng.Intn(1000))))
	}

	if nsize(l.root) != l.Count(ctx) {
		t.Fatalf("tree size %d does not match count %d", nsize(l.root), l.Count(ctx))
	}
	top, _ := l.TopN(ctx, l.Count(ctx))
	for i := 1; i < len(top); i++ {
		a, b := top[i-1], top[i]
		if !before(a.Record.Score, a.PlayerID, b.Record.Score, b.PlayerID) {
			t.Fatalf("rows %d and %d out of order: %+v %+v", i-1, i, a, b)
		}
	}
}

func TestLadder_ConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	l := NewLadder()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = l.Put(ctx, fmt.Sprintf("g%d-%d", g, i%10), rec(float64(1500+i)))
				_, _ = l.TopN(ctx, 5)
			}
		}(g)
	}
	wg.Wait()

	if l.Count(ctx) != 80 {
		t.Errorf("expected 80 players, got %d", l.Count(ctx))
	}
}

func TestLadder_Delete(t *testing.T) {
	ctx := context.Background()
	l := NewLadder()
	_ = l.Put(ctx, "alice", rec(1800))
	_ = l.Put(ctx, "bob", rec(1600))

	if err := l.Delete(ctx, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Delete(ctx, "nobody"); err != nil {
		t.Fatalf("deleting an unknown player should be a no-op, got %v", err)
	}
	if _, ok, _ := l.Get(ctx, "alice"); ok {
		t.Error("alice should be gone")
	}
	if count := l.Count(ctx); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
	row, err := l.Rank(ctx, "bob")
	if err != nil || row.Rank != 1 {
		t.Errorf("bob should move up to rank 1, got %+v err=%v", row, err)
	}
}
