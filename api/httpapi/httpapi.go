package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	wsadapter "scoreboard/adapters/websocket"
	"scoreboard/analytics"
	"scoreboard/auth"
	"scoreboard/engine"
	"scoreboard/realtime"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// Authenticator resolves the caller on protected routes. A nil
	// authenticator rejects every protected request.
	Authenticator auth.Authenticator
	// UnifiedNotFound reports a missing user as 404 "User not found" on every
	// identity lookup instead of the per-endpoint generic failure.
	UnifiedNotFound bool
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute, charged once per remote
	// IP and, on protected routes, once per authenticated user.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// RateLimitCleanup is how often idle buckets are swept. Defaults to 5m.
	RateLimitCleanup time.Duration
	// Stats, if set, is served at {prefix}/stats.
	Stats StatsSource
	// Logger receives access logs and handler failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// StatsSource exposes aggregated event counters.
type StatsSource interface {
	Snapshot() analytics.Stats
}

// NewMux builds an http.Handler exposing the score API and WebSocket stream.
// Routes:
//   - GET  {prefix}/leaderboard
//   - GET  {prefix}/user-data        (auth)
//   - GET  {prefix}/highscore        (auth)
//   - POST {prefix}/highscore        (auth) {"score": n}
//   - GET  {prefix}/past-scores      (auth)
//   - POST {prefix}/past-scores      (auth) {"score": n}
//   - GET  {prefix}/healthz
//   - GET  {prefix}/stats
//   - WS   {prefix}/ws
func NewMux(svc *engine.ScoreService, hub *realtime.Hub, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{svc: svc, logger: logger, unifiedNotFound: opts.UnifiedNotFound}
	var ipLimiter, userLimiter *rateLimiter
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		ipLimiter = newRateLimiter(opts.RateLimitRPM, opts.RateLimitBurst, opts.RateLimitCleanup)
		userLimiter = newRateLimiter(opts.RateLimitRPM, opts.RateLimitBurst, opts.RateLimitCleanup)
	}
	gate := requireAuth(opts.Authenticator, userLimiter, logger)

	root := mux.NewRouter()
	r := root
	if p := trimPrefix(opts.PathPrefix); p != "" {
		r = root.PathPrefix(p).Subrouter()
	}
	for _, rt := range []*mux.Router{root, r} {
		rt.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusNotFound, "Route not found")
		})
		rt.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		})
	}

	r.HandleFunc("/leaderboard", h.leaderboard).Methods(http.MethodGet)
	r.Handle("/user-data", gate(http.HandlerFunc(h.userData))).Methods(http.MethodGet)
	r.Handle("/highscore", gate(http.HandlerFunc(h.highScore))).Methods(http.MethodGet)
	r.Handle("/highscore", gate(http.HandlerFunc(h.submitHighScore))).Methods(http.MethodPost)
	r.Handle("/past-scores", gate(http.HandlerFunc(h.pastScores))).Methods(http.MethodGet)
	r.Handle("/past-scores", gate(http.HandlerFunc(h.appendPastScore))).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	if opts.Stats != nil {
		r.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, opts.Stats.Snapshot())
		}).Methods(http.MethodGet)
	}
	if hub != nil {
		r.Handle("/ws", wsadapter.Handler(hub)).Methods(http.MethodGet)
	}

	var handler http.Handler = root
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if ipLimiter != nil {
		handler = withRateLimit(handler, ipLimiter)
	}
	return withRequestLog(handler, logger)
}

func trimPrefix(prefix string) string {
	for len(prefix) > 0 && prefix[len(prefix)-1] == '/' {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
