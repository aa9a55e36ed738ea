package leaderboard

import "scoreboard/core"

// Entry is one ranked user.
type Entry struct {
	User      core.UserID
	Username  string
	HighScore float64
}

// Projection drops the user id for the public leaderboard.
func (e Entry) Projection() core.LeaderboardEntry {
	return core.LeaderboardEntry{Username: e.Username, HighScore: e.HighScore}
}

// Board keeps users ordered by high score, highest first.
type Board interface {
	Set(e Entry)
	Top(n int) []Entry
	Len() int
}
