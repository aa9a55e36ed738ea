package engine

import (
	"context"
	"fmt"

	"scoreboard/core"
)

// ScoreService wires storage, event bus, and rules into the score API.
type ScoreService struct {
	storage Storage
	bus     *EventBus
	rules   RuleEngine
}

func NewScoreService(storage Storage, bus *EventBus, rules RuleEngine) *ScoreService {
	if storage == nil || bus == nil || rules == nil {
		panic("NewScoreService requires non-nil storage, bus, and rules")
	}
	return &ScoreService{storage: storage, bus: bus, rules: rules}
}

func DefaultRuleEngine() RuleEngine {
	return &simpleRuleEngine{rules: []core.Rule{core.HighScoreRule{}}}
}

// Subscribe convenience method.
func (s *ScoreService) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

// Leaderboard returns the top core.LeaderboardSize users by high score.
func (s *ScoreService) Leaderboard(ctx context.Context) ([]core.LeaderboardEntry, error) {
	entries, err := s.storage.Leaderboard(ctx, core.LeaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	if entries == nil {
		entries = []core.LeaderboardEntry{}
	}
	return entries, nil
}

// User returns the full record of the resolved identity.
func (s *ScoreService) User(ctx context.Context, user core.UserID) (core.User, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return core.User{}, err
	}
	u, err := s.storage.GetUser(ctx, normalized)
	if err != nil {
		return core.User{}, err
	}
	return u.Clone(), nil
}

// HighScore returns only the high score of the resolved identity.
func (s *ScoreService) HighScore(ctx context.Context, user core.UserID) (float64, error) {
	u, err := s.User(ctx, user)
	if err != nil {
		return 0, err
	}
	return u.HighScore, nil
}

// PastScores returns the submission history in insertion order.
func (s *ScoreService) PastScores(ctx context.Context, user core.UserID) ([]float64, error) {
	u, err := s.User(ctx, user)
	if err != nil {
		return nil, err
	}
	return u.PastScores, nil
}

// SubmitHighScore records score in the history and raises the high score when
// score is strictly greater than the current one. It returns the resulting high score.
func (s *ScoreService) SubmitHighScore(ctx context.Context, user core.UserID, score float64) (float64, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return 0, err
	}
	sub, err := s.storage.SubmitScore(ctx, normalized, score)
	if err != nil {
		return 0, err
	}
	ev := core.NewScoreSubmitted(normalized, score, sub.HighScore, sub.Previous)
	s.bus.Publish(ctx, ev)
	for _, d := range s.rules.Evaluate(ctx, core.User{ID: normalized, HighScore: sub.HighScore}, ev) {
		s.bus.Publish(ctx, d)
	}
	return sub.HighScore, nil
}

// AppendPastScore adds score to the history without touching the high score and
// returns the updated history.
func (s *ScoreService) AppendPastScore(ctx context.Context, user core.UserID, score float64) ([]float64, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return nil, err
	}
	u, err := s.storage.AppendScore(ctx, normalized, score)
	if err != nil {
		return nil, err
	}
	u = u.Clone()
	ev := core.NewPastScoreAppended(normalized, score, len(u.PastScores))
	s.bus.Publish(ctx, ev)
	for _, d := range s.rules.Evaluate(ctx, u, ev) {
		s.bus.Publish(ctx, d)
	}
	return u.PastScores, nil
}

// Ping verifies the store answers a minimal leaderboard query.
func (s *ScoreService) Ping(ctx context.Context) error {
	_, err := s.storage.Leaderboard(ctx, 1)
	return err
}

func (s *ScoreService) Close() { s.bus.Close() }

type simpleRuleEngine struct{ rules []core.Rule }

func (e *simpleRuleEngine) Evaluate(ctx context.Context, user core.User, trigger core.Event) []core.Event {
	var out []core.Event
	for _, r := range e.rules {
		out = append(out, r.Evaluate(ctx, user, trigger)...)
	}
	return out
}
