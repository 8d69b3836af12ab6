package backend

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/verte-zerg/typetrack/internal/cache"
	"github.com/verte-zerg/typetrack/internal/model"
	"github.com/verte-zerg/typetrack/internal/store"
)

func newCachedService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "typetrack.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	svc := New(st, Options{Cache: cache.New(client), Now: func() time.Time { return fixedNow }})
	return svc, mr
}

func leaderboardNames(entries []model.LeaderboardEntry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Username)
	}
	return names
}

func TestSubmitInvalidatesCachedLeaderboards(t *testing.T) {
	svc, mr := newCachedService(t)
	ctx := context.Background()
	if _, err := svc.Submit(ctx, "bob", submission(80, 95, model.Medium)); err != nil {
		t.Fatalf("submit bob: %v", err)
	}

	first, err := svc.Leaderboard(ctx, model.LeaderboardQuery{})
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected one entry, got %v", leaderboardNames(first))
	}
	if len(mr.Keys()) == 0 {
		t.Fatalf("expected leaderboard to be cached")
	}

	if _, err := svc.Submit(ctx, "alice", submission(90, 97, model.Medium)); err != nil {
		t.Fatalf("submit alice: %v", err)
	}
	second, err := svc.Leaderboard(ctx, model.LeaderboardQuery{})
	if err != nil {
		t.Fatalf("leaderboard after submit: %v", err)
	}
	if len(second) != 2 || second[0].Username != "alice" {
		t.Fatalf("expected alice to lead after submit, got %v", leaderboardNames(second))
	}
}

func TestLeaderboardReadAfterSubmitSkipsEarlierRead(t *testing.T) {
	svc, _ := newCachedService(t)
	ctx := context.Background()
	if _, err := svc.Submit(ctx, "bob", submission(80, 95, model.Medium)); err != nil {
		t.Fatalf("submit bob: %v", err)
	}

	// The first read snapshots the board, then stalls until released.
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	read := svc.readLeaderboard
	svc.readLeaderboard = func(ctx context.Context, q model.LeaderboardQuery, now time.Time) ([]model.LeaderboardEntry, error) {
		entries, err := read(ctx, q, now)
		stall := false
		once.Do(func() { stall = true })
		if stall {
			close(entered)
			<-release
		}
		return entries, err
	}

	type result struct {
		entries []model.LeaderboardEntry
		err     error
	}
	early := make(chan result, 1)
	go func() {
		entries, err := svc.Leaderboard(ctx, model.LeaderboardQuery{})
		early <- result{entries, err}
	}()
	<-entered

	if _, err := svc.Submit(ctx, "alice", submission(90, 97, model.Medium)); err != nil {
		t.Fatalf("submit alice: %v", err)
	}

	late := make(chan result, 1)
	go func() {
		entries, err := svc.Leaderboard(ctx, model.LeaderboardQuery{})
		late <- result{entries, err}
	}()
	select {
	case res := <-late:
		if res.err != nil {
			t.Fatalf("late leaderboard: %v", res.err)
		}
		if len(res.entries) != 2 {
			t.Fatalf("expected the submitted session, got %v", leaderboardNames(res.entries))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("read after submit joined the earlier in-flight read")
	}

	close(release)
	res := <-early
	if res.err != nil {
		t.Fatalf("early leaderboard: %v", res.err)
	}
	if len(res.entries) != 1 {
		t.Fatalf("expected the early read to see the old board, got %v", leaderboardNames(res.entries))
	}

	// The early read finished last but must not have replaced the fresh cached board.
	again, err := svc.Leaderboard(ctx, model.LeaderboardQuery{})
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(again) != 2 || again[0].Username != "alice" {
		t.Fatalf("stale board served from cache: %v", leaderboardNames(again))
	}
}
