package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"scoreboard/auth"
	"scoreboard/core"
	"scoreboard/engine"
)

const (
	msgLeaderboardFailed = "Failed to fetch leaderboard"
	msgUserDataFailed    = "Failed to fetch user data"
	msgHighScoreFailed   = "Failed to fetch high score"
	msgUpdateHighFailed  = "Failed to update high score"
	msgUserNotFound      = "User not found"
	msgPastScoresFailed  = "Failed to fetch past scores"
	msgScoreNotNumber    = "Score must be a number"
	msgUpdatePastFailed  = "Failed to update past scores"

	maxScoreBodyBytes = 1 << 16
)

type handlers struct {
	svc             *engine.ScoreService
	logger          *slog.Logger
	unifiedNotFound bool
}

type leaderboardResponse struct {
	Leaderboard []core.LeaderboardEntry `json:"leaderboard"`
}

type userDataResponse struct {
	HighScore  float64   `json:"highScore"`
	PastScores []float64 `json:"pastScores"`
}

type highScoreResponse struct {
	HighScore float64 `json:"highScore"`
}

type pastScoresResponse struct {
	Success    bool      `json:"success"`
	PastScores []float64 `json:"pastScores"`
}

type scoreRequest struct {
	Score json.RawMessage `json:"score"`
}

func (h *handlers) leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Leaderboard(r.Context())
	if err != nil {
		h.logger.Error("leaderboard query failed", "error", err)
		writeError(w, http.StatusBadRequest, msgLeaderboardFailed)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Leaderboard: entries})
}

func (h *handlers) userData(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserIDFromContext(r.Context())
	u, err := h.svc.User(r.Context(), user)
	if err != nil {
		h.lookupFailed(w, user, err, msgUserDataFailed)
		return
	}
	writeJSON(w, http.StatusOK, userDataResponse{HighScore: u.HighScore, PastScores: u.PastScores})
}

func (h *handlers) highScore(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserIDFromContext(r.Context())
	score, err := h.svc.HighScore(r.Context(), user)
	if err != nil {
		h.lookupFailed(w, user, err, msgHighScoreFailed)
		return
	}
	writeJSON(w, http.StatusOK, highScoreResponse{HighScore: score})
}

func (h *handlers) submitHighScore(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserIDFromContext(r.Context())
	score, err := decodeScore(w, r, core.CoerceScore)
	if err != nil {
		h.logger.Warn("high score body rejected", "user", user, "error", err)
		writeError(w, http.StatusBadRequest, msgUpdateHighFailed)
		return
	}
	high, err := h.svc.SubmitHighScore(r.Context(), user, score)
	if err != nil {
		h.lookupFailed(w, user, err, msgUpdateHighFailed)
		return
	}
	writeJSON(w, http.StatusOK, highScoreResponse{HighScore: high})
}

func (h *handlers) pastScores(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserIDFromContext(r.Context())
	scores, err := h.svc.PastScores(r.Context(), user)
	switch {
	case errors.Is(err, core.ErrUserNotFound):
		writeError(w, http.StatusNotFound, msgUserNotFound)
	case err != nil:
		h.logger.Error("error fetching past scores", "user", user, "error", err)
		writeError(w, http.StatusInternalServerError, msgPastScoresFailed)
	default:
		writeJSON(w, http.StatusOK, pastScoresResponse{Success: true, PastScores: scores})
	}
}

func (h *handlers) appendPastScore(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserIDFromContext(r.Context())
	score, err := decodeScore(w, r, core.ParseScore)
	if err != nil {
		if !core.IsValidation(err) {
			h.logger.Warn("past score body malformed", "user", user, "error", err)
		}
		writeError(w, http.StatusBadRequest, msgScoreNotNumber)
		return
	}
	scores, err := h.svc.AppendPastScore(r.Context(), user, score)
	switch {
	case errors.Is(err, core.ErrUserNotFound):
		writeError(w, http.StatusNotFound, msgUserNotFound)
	case err != nil:
		h.logger.Error("error updating past scores", "user", user, "error", err)
		writeError(w, http.StatusInternalServerError, msgUpdatePastFailed)
	default:
		writeJSON(w, http.StatusOK, pastScoresResponse{Success: true, PastScores: scores})
	}
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
		},
	}
	code := http.StatusOK
	if err := h.svc.Ping(r.Context()); err != nil {
		h.logger.Error("health check failed", "error", err)
		code = http.StatusServiceUnavailable
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
	}
	writeJSON(w, code, status)
}

// lookupFailed maps an identity lookup error to the endpoint's failure response.
func (h *handlers) lookupFailed(w http.ResponseWriter, user core.UserID, err error, msg string) {
	if h.unifiedNotFound && errors.Is(err, core.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, msgUserNotFound)
		return
	}
	h.logger.Warn(msg, "user", user, "error", err)
	writeError(w, http.StatusBadRequest, msg)
}

// decodeScore reads {"score": ...} and hands the raw value to parse.
func decodeScore(w http.ResponseWriter, r *http.Request, parse func(json.RawMessage) (float64, error)) (float64, error) {
	var body scoreRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxScoreBodyBytes)).Decode(&body); err != nil {
		return 0, err
	}
	return parse(body.Score)
}
