package engine

import (
	"context"

	"scoreboard/core"
)

// Storage abstracts the user record store used by the score service.
// Implementations return core.ErrUserNotFound for unknown identities and must
// apply SubmitScore and AppendScore atomically per user.
type Storage interface {
	Leaderboard(ctx context.Context, limit int) ([]core.LeaderboardEntry, error)
	GetUser(ctx context.Context, user core.UserID) (core.User, error)
	SubmitScore(ctx context.Context, user core.UserID, score float64) (core.Submission, error)
	AppendScore(ctx context.Context, user core.UserID, score float64) (core.User, error)
}

// UserRegistry creates user records. It belongs to the account subsystem and is
// never called by the score service itself.
type UserRegistry interface {
	CreateUser(ctx context.Context, user core.User) error
}

// Store is the full contract every storage adapter satisfies.
type Store interface {
	Storage
	UserRegistry
	Close() error
}

// RuleEngine evaluates rules and emits derived events.
type RuleEngine interface {
	Evaluate(ctx context.Context, user core.User, trigger core.Event) []core.Event
}
