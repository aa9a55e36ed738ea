package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventScoreSubmitted    EventType = "score_submitted"
	EventHighScoreBeaten   EventType = "high_score_beaten"
	EventPastScoreAppended EventType = "past_score_appended"
)

// Event represents an immutable domain event.
type Event struct {
	Type      EventType      `json:"type"`
	Time      time.Time      `json:"time"`
	UserID    UserID         `json:"user_id"`
	Score     float64        `json:"score"`
	HighScore float64        `json:"high_score,omitempty"`
	Previous  float64        `json:"previous,omitempty"`
	Count     int            `json:"count,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewScoreSubmitted(user UserID, score, highScore, previous float64) Event {
	return Event{Type: EventScoreSubmitted, Time: time.Now().UTC(), UserID: user, Score: score, HighScore: highScore, Previous: previous}
}

func NewHighScoreBeaten(user UserID, score, previous float64) Event {
	return Event{Type: EventHighScoreBeaten, Time: time.Now().UTC(), UserID: user, Score: score, HighScore: score, Previous: previous}
}

func NewPastScoreAppended(user UserID, score float64, count int) Event {
	return Event{Type: EventPastScoreAppended, Time: time.Now().UTC(), UserID: user, Score: score, Count: count}
}
