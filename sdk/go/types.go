package sdk

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"scoreboard/core"
)

// UserData mirrors the /user-data response.
type UserData struct {
	HighScore  float64   `json:"highScore"`
	PastScores []float64 `json:"pastScores"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string         `json:"status"`
	Checks map[string]any `json:"checks"`
}

// Stats mirrors the /stats response.
type Stats struct {
	Submissions        int64 `json:"submissions"`
	HighScoresBeaten   int64 `json:"highScoresBeaten"`
	PastScoresAppended int64 `json:"pastScoresAppended"`
	ActiveToday        int   `json:"activeToday"`
}

// APIError carries a non-2xx status and the server's error message.
type APIError struct {
	StatusCode int
	Message    string
}

// ErrNotFound matches APIError values with status 404.
var ErrNotFound = errors.New("not found")

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

type leaderboardBody struct {
	Leaderboard []core.LeaderboardEntry `json:"leaderboard"`
}

type highScoreBody struct {
	HighScore float64 `json:"highScore"`
}

type pastScoresBody struct {
	Success    bool      `json:"success"`
	PastScores []float64 `json:"pastScores"`
}

type scoreBody struct {
	Score float64 `json:"score"`
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body struct {
			Error string `json:"error"`
		}
		if b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); err == nil && json.Unmarshal(b, &body) == nil {
			apiErr.Message = body.Error
		}
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(target)
}
