package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scoreboard/core"
	"scoreboard/leaderboard"
)

// Store is a concurrent in-memory Store implementation. Each record has its own
// lock so submissions for one user are serialized without blocking others.
type Store struct {
	users sync.Map // map[core.UserID]*userRecord
	board *leaderboard.SkipList
}

type userRecord struct {
	mu   sync.Mutex
	user core.User
}

func New() *Store { return &Store{board: leaderboard.NewSkipList()} }

func (s *Store) lookup(user core.UserID) (*userRecord, error) {
	v, ok := s.users.Load(user)
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return v.(*userRecord), nil
}

// CreateUser registers a new record. Existing ids are rejected.
func (s *Store) CreateUser(_ context.Context, user core.User) error {
	rec := &userRecord{user: user.Clone()}
	if rec.user.Updated.IsZero() {
		rec.user.Updated = time.Now().UTC()
	}
	if _, loaded := s.users.LoadOrStore(user.ID, rec); loaded {
		return fmt.Errorf("user %s already exists", user.ID)
	}
	s.board.Set(leaderboard.Entry{User: user.ID, Username: user.Username, HighScore: user.HighScore})
	return nil
}

func (s *Store) GetUser(_ context.Context, user core.UserID) (core.User, error) {
	rec, err := s.lookup(user)
	if err != nil {
		return core.User{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.user.Clone(), nil
}

func (s *Store) SubmitScore(_ context.Context, user core.UserID, score float64) (core.Submission, error) {
	rec, err := s.lookup(user)
	if err != nil {
		return core.Submission{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	prev := rec.user.Submit(score, time.Now().UTC())
	if rec.user.HighScore != prev {
		s.board.Set(leaderboard.Entry{User: user, Username: rec.user.Username, HighScore: rec.user.HighScore})
	}
	return core.Submission{User: user, Score: score, HighScore: rec.user.HighScore, Previous: prev}, nil
}

func (s *Store) AppendScore(_ context.Context, user core.UserID, score float64) (core.User, error) {
	rec, err := s.lookup(user)
	if err != nil {
		return core.User{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.user.Append(score, time.Now().UTC())
	return rec.user.Clone(), nil
}

func (s *Store) Leaderboard(_ context.Context, limit int) ([]core.LeaderboardEntry, error) {
	top := s.board.Top(limit)
	out := make([]core.LeaderboardEntry, 0, len(top))
	for _, e := range top {
		out = append(out, e.Projection())
	}
	return out, nil
}

func (s *Store) Close() error { return nil }

var _ interface {
	Leaderboard(context.Context, int) ([]core.LeaderboardEntry, error)
	GetUser(context.Context, core.UserID) (core.User, error)
	SubmitScore(context.Context, core.UserID, float64) (core.Submission, error)
	AppendScore(context.Context, core.UserID, float64) (core.User, error)
	CreateUser(context.Context, core.User) error
	Close() error
} = (*Store)(nil)
