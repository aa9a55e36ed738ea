package core

import "context"

// Rule determines whether a trigger event should emit derived events.
type Rule interface {
	Evaluate(ctx context.Context, user User, trigger Event) []Event
}

// HighScoreRule emits a high score event when a submission beat the previous best.
type HighScoreRule struct{}

func (HighScoreRule) Evaluate(_ context.Context, user User, trigger Event) []Event {
	if trigger.Type != EventScoreSubmitted {
		return nil
	}
	if trigger.Score > trigger.Previous && user.HighScore == trigger.Score {
		return []Event{NewHighScoreBeaten(user.ID, trigger.Score, trigger.Previous)}
	}
	return nil
}
