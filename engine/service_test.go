package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	mem "scoreboard/adapters/memory"
	"scoreboard/core"
)

func newTestService(t *testing.T, users ...core.User) (*ScoreService, *mem.Store) {
	t.Helper()
	store := mem.New()
	for _, u := range users {
		if err := store.CreateUser(context.Background(), u); err != nil {
			t.Fatal(err)
		}
	}
	return NewScoreService(store, NewEventBus(DispatchSync), DefaultRuleEngine()), store
}

func TestSubmitHighScoreScenario(t *testing.T) {
	svc, store := newTestService(t, core.User{ID: "u1", Username: "alice"})
	ctx := context.Background()

	high, err := svc.SubmitHighScore(ctx, "u1", 42)
	if err != nil || high != 42 {
		t.Fatalf("first submit: %v %v", high, err)
	}
	high, err = svc.SubmitHighScore(ctx, "u1", 10)
	if err != nil || high != 42 {
		t.Fatalf("second submit: %v %v", high, err)
	}
	u, _ := store.GetUser(ctx, "u1")
	if len(u.PastScores) != 2 || u.PastScores[0] != 42 || u.PastScores[1] != 10 {
		t.Fatalf("past scores = %v", u.PastScores)
	}
	got, err := svc.HighScore(ctx, "u1")
	if err != nil || got != 42 {
		t.Fatalf("high score = %v %v", got, err)
	}
}

func TestSubmitAlwaysGrowsHistory(t *testing.T) {
	svc, _ := newTestService(t, core.User{ID: "u1", Username: "alice", HighScore: 50})
	ctx := context.Background()
	for i, s := range []float64{10, 50, 60, -1} {
		if _, err := svc.SubmitHighScore(ctx, "u1", s); err != nil {
			t.Fatal(err)
		}
		scores, _ := svc.PastScores(ctx, "u1")
		if len(scores) != i+1 {
			t.Fatalf("after %d submits history has %d entries", i+1, len(scores))
		}
	}
	high, _ := svc.HighScore(ctx, "u1")
	if high != 60 {
		t.Fatalf("high = %v", high)
	}
}

func TestAppendPastScoreRoundTrip(t *testing.T) {
	svc, _ := newTestService(t, core.User{ID: "u1", Username: "alice", HighScore: 5})
	ctx := context.Background()
	for _, s := range []float64{10, 50, 30} {
		if _, err := svc.AppendPastScore(ctx, "u1", s); err != nil {
			t.Fatal(err)
		}
	}
	scores, err := svc.PastScores(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(scores) != "[10 50 30]" {
		t.Fatalf("scores = %v", scores)
	}
	high, _ := svc.HighScore(ctx, "u1")
	if high != 5 {
		t.Fatalf("append must not touch the high score, got %v", high)
	}
}

func TestUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.PastScores(ctx, "ghost"); !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.AppendPastScore(ctx, "ghost", 1); !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.SubmitHighScore(ctx, "ghost", 1); !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.User(ctx, " "); err == nil {
		t.Fatal("expected empty id error")
	}
}

func TestLeaderboardTopTen(t *testing.T) {
	var users []core.User
	for i := 0; i < 12; i++ {
		users = append(users, core.User{ID: core.UserID(fmt.Sprintf("u%d", i)), Username: fmt.Sprintf("p%d", i), HighScore: float64(i * 10)})
	}
	svc, _ := newTestService(t, users...)
	board, err := svc.Leaderboard(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(board) != core.LeaderboardSize {
		t.Fatalf("expected %d entries, got %d", core.LeaderboardSize, len(board))
	}
	for i := 1; i < len(board); i++ {
		if board[i-1].HighScore < board[i].HighScore {
			t.Fatalf("not sorted: %+v", board)
		}
	}
	if board[0].Username != "p11" {
		t.Fatalf("unexpected leader %+v", board[0])
	}
}

func TestLeaderboardEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	board, err := svc.Leaderboard(context.Background())
	if err != nil || board == nil || len(board) != 0 {
		t.Fatalf("got %#v %v", board, err)
	}
}

func TestHighScoreBeatenEvent(t *testing.T) {
	svc, _ := newTestService(t, core.User{ID: "u1", Username: "alice", HighScore: 20})
	ctx := context.Background()

	var beaten []core.Event
	svc.Subscribe(core.EventHighScoreBeaten, func(_ context.Context, e core.Event) { beaten = append(beaten, e) })
	submitted := 0
	svc.Subscribe(core.EventScoreSubmitted, func(context.Context, core.Event) { submitted++ })

	_, _ = svc.SubmitHighScore(ctx, "u1", 20)
	_, _ = svc.SubmitHighScore(ctx, "u1", 25)
	if submitted != 2 {
		t.Fatalf("submitted events = %d", submitted)
	}
	if len(beaten) != 1 || beaten[0].Previous != 20 || beaten[0].Score != 25 {
		t.Fatalf("unexpected beaten events %+v", beaten)
	}
}

// racedStorage reports a submission as applied while the record has already
// moved on, as when a concurrent writer commits right after.
type racedStorage struct{ *mem.Store }

func (r racedStorage) SubmitScore(_ context.Context, user core.UserID, score float64) (core.Submission, error) {
	return core.Submission{User: user, Score: score, HighScore: score, Previous: 20}, nil
}

func (r racedStorage) GetUser(context.Context, core.UserID) (core.User, error) {
	return core.User{}, errors.New("read after write must not be needed")
}

func TestSubmitHighScoreUsesAtomicResult(t *testing.T) {
	svc := NewScoreService(racedStorage{mem.New()}, NewEventBus(DispatchSync), DefaultRuleEngine())
	ctx := context.Background()

	var events []core.Event
	svc.Subscribe(core.EventScoreSubmitted, func(_ context.Context, e core.Event) { events = append(events, e) })
	svc.Subscribe(core.EventHighScoreBeaten, func(_ context.Context, e core.Event) { events = append(events, e) })

	high, err := svc.SubmitHighScore(ctx, "u1", 30)
	if err != nil || high != 30 {
		t.Fatalf("submit: %v %v", high, err)
	}
	if len(events) != 2 {
		t.Fatalf("expected submitted and beaten events, got %+v", events)
	}
	if events[0].HighScore != 30 || events[0].Previous != 20 {
		t.Fatalf("unexpected submitted event %+v", events[0])
	}
	if events[1].Type != core.EventHighScoreBeaten || events[1].Score != 30 {
		t.Fatalf("unexpected beaten event %+v", events[1])
	}
}
