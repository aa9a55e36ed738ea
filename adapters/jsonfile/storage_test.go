package jsonfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"scoreboard/core"
)

func TestStorePersistAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	ctx := context.Background()

	store, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.CreateUser(ctx, core.User{ID: "alice", Username: "alice"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	sub, err := store.SubmitScore(ctx, "alice", 50)
	if err != nil || sub.HighScore != 50 {
		t.Fatalf("submit: sub=%+v err=%v", sub, err)
	}
	if _, err := store.AppendScore(ctx, "alice", 70); err != nil {
		t.Fatalf("append: %v", err)
	}

	// ensure file written
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file at %s", path)
	}

	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	user, err := reloaded.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.HighScore != 50 {
		t.Fatalf("expected high score 50, got %v", user.HighScore)
	}
	if len(user.PastScores) != 2 || user.PastScores[0] != 50 || user.PastScores[1] != 70 {
		t.Fatalf("unexpected past scores %v", user.PastScores)
	}
}

func TestStoreNotFound(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.SubmitScore(context.Background(), "ghost", 1); !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.AppendScore(context.Background(), "ghost", 1); !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreLeaderboard(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, u := range []core.User{
		{ID: "a", Username: "amy", HighScore: 10},
		{ID: "b", Username: "bob", HighScore: 30},
		{ID: "c", Username: "cat", HighScore: 10},
	} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	board, _ := store.Leaderboard(ctx, 2)
	if len(board) != 2 || board[0].Username != "bob" || board[1].Username != "amy" {
		t.Fatalf("unexpected board %+v", board)
	}
}

func TestNewRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path); err == nil {
		t.Fatal("expected parse error")
	}
}
