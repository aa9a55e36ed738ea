package scores

import (
	"context"
	"errors"
	"testing"
	"time"

	mem "scoreboard/adapters/memory"
	"scoreboard/analytics"
	"scoreboard/core"
	"scoreboard/engine"
	"scoreboard/realtime"
)

func TestNewDefaultsAndOptions(t *testing.T) {
	store := mem.New()
	if err := store.CreateUser(context.Background(), core.User{ID: "alice", Username: "alice"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	hub := realtime.NewHub()
	sub := hub.Subscribe(4)
	counters := analytics.NewCounters()
	svc := New(
		WithRealtime(hub),
		WithStorage(store),
		WithDispatchMode(engine.DispatchSync),
		WithHooks(counters),
	)
	defer svc.Close()

	high, err := svc.SubmitHighScore(context.Background(), "alice", 5)
	if err != nil || high != 5 {
		t.Fatalf("submit high=%v err=%v", high, err)
	}

	seen := map[core.EventType]bool{}
	timeout := time.After(time.Second)
	for len(seen) < 2 {
		select {
		case ev := <-sub.C:
			if ev.UserID != "alice" {
				t.Fatalf("unexpected event: %+v", ev)
			}
			seen[ev.Type] = true
		case <-timeout:
			t.Fatalf("expected submitted and beaten events, got %v", seen)
		}
	}

	stats := counters.Snapshot()
	if stats.Submissions != 1 || stats.HighScoresBeaten != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestNewWithoutStorageUsesMemory(t *testing.T) {
	svc := New()
	defer svc.Close()
	if _, err := svc.User(context.Background(), "nobody"); !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("expected not found from default store, got %v", err)
	}
	board, err := svc.Leaderboard(context.Background())
	if err != nil || len(board) != 0 {
		t.Fatalf("expected empty leaderboard, got %v err=%v", board, err)
	}
}
