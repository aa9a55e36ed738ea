package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"scoreboard/core"
)

// Store persists every user record to a single JSON file.
// Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory cache for speed
	data map[core.UserID]core.User
}

func New(path string) (*Store, error) {
	s := &Store{path: path, data: map[core.UserID]core.User{}}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var raw map[string]core.User
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	for k, v := range raw {
		v.ID = core.UserID(k)
		s.data[core.UserID(k)] = v
	}
	return nil
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	raw := make(map[string]core.User, len(s.data))
	for k, v := range s.data {
		raw[string(k)] = v
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) CreateUser(_ context.Context, user core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[user.ID]; ok {
		return fmt.Errorf("user %s already exists", user.ID)
	}
	u := user.Clone()
	if u.Updated.IsZero() {
		u.Updated = time.Now().UTC()
	}
	s.data[user.ID] = u
	return s.persist()
}

func (s *Store) GetUser(_ context.Context, user core.UserID) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data[user]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return u.Clone(), nil
}

// SubmitScore keeps the previous record in memory when the write fails so the
// cache never diverges from disk.
func (s *Store) SubmitScore(_ context.Context, user core.UserID, score float64) (core.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.data[user]
	if !ok {
		return core.Submission{}, core.ErrUserNotFound
	}
	u := old.Clone()
	prev := u.Submit(score, time.Now().UTC())
	s.data[user] = u
	if err := s.persist(); err != nil {
		s.data[user] = old
		return core.Submission{}, err
	}
	return core.Submission{User: user, Score: score, HighScore: u.HighScore, Previous: prev}, nil
}

func (s *Store) AppendScore(_ context.Context, user core.UserID, score float64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.data[user]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	u := old.Clone()
	u.Append(score, time.Now().UTC())
	s.data[user] = u
	if err := s.persist(); err != nil {
		s.data[user] = old
		return core.User{}, err
	}
	return u.Clone(), nil
}

func (s *Store) Leaderboard(_ context.Context, limit int) ([]core.LeaderboardEntry, error) {
	s.mu.Lock()
	users := make([]core.User, 0, len(s.data))
	for _, u := range s.data {
		users = append(users, u)
	}
	s.mu.Unlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].HighScore == users[j].HighScore {
			return users[i].ID < users[j].ID
		}
		return users[i].HighScore > users[j].HighScore
	})
	if limit < len(users) {
		users = users[:max(limit, 0)]
	}
	out := make([]core.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		out = append(out, core.LeaderboardEntry{Username: u.Username, HighScore: u.HighScore})
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
