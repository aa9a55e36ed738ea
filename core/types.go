package core

import (
	"errors"
	"strings"
	"time"
)

// UserID uniquely identifies a user record. It is opaque to the score domain.
type UserID string

// LeaderboardSize is the number of entries returned by a leaderboard query.
const LeaderboardSize = 10

// User is a snapshot of a user record as seen by the score domain.
// Stores return deep copies so callers may mutate the result freely.
type User struct {
	ID         UserID    `json:"id"`
	Username   string    `json:"username"`
	HighScore  float64   `json:"highScore"`
	PastScores []float64 `json:"pastScores"`
	Updated    time.Time `json:"updated"`
}

// Clone returns a deep copy of the record. PastScores is never nil in the copy.
func (u User) Clone() User {
	cp := u
	cp.PastScores = make([]float64, len(u.PastScores))
	copy(cp.PastScores, u.PastScores)
	return cp
}

// Submit appends score to the history and raises the high score when score is
// strictly greater. It returns the high score held before the call.
func (u *User) Submit(score float64, now time.Time) (previous float64) {
	previous = u.HighScore
	u.PastScores = append(u.PastScores, score)
	if score > u.HighScore {
		u.HighScore = score
	}
	u.Updated = now
	return previous
}

// Append adds score to the history without touching the high score.
func (u *User) Append(score float64, now time.Time) {
	u.PastScores = append(u.PastScores, score)
	u.Updated = now
}

// LeaderboardEntry is one row of the derived, non-persisted leaderboard view.
type LeaderboardEntry struct {
	Username  string  `json:"username"`
	HighScore float64 `json:"highScore"`
}

// Submission is the outcome of an atomic high score submission, as observed
// inside the store operation that applied it.
type Submission struct {
	User      UserID
	Score     float64
	HighScore float64
	Previous  float64
}

// Improved reports whether the submission raised the high score.
func (s Submission) Improved() bool { return s.HighScore > s.Previous }

// NormalizeUserID trims surrounding whitespace and rejects empty identifiers.
// Case is preserved since identifiers are opaque.
func NormalizeUserID(id UserID) (UserID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", errors.New("empty user id")
	}
	return UserID(s), nil
}

// ValidateUsername ensures a non-empty display name with a simple charset check.
func ValidateUsername(name string) error {
	s := strings.TrimSpace(name)
	if s == "" {
		return errors.New("empty username")
	}
	if len(s) > 64 {
		return errors.New("username too long")
	}
	// alnum, dash, underscore, dot
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r == '.' {
			continue
		}
		return errors.New("invalid username")
	}
	return nil
}
