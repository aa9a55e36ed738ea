package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"scoreboard/core"
)

const handshakeTimeout = 5 * time.Second

// Option configures the Client.
type Option func(*Client)

// Client talks to a scoreboard server over HTTP and WebSocket.
type Client struct {
	base    *url.URL
	http    *http.Client
	headers http.Header
}

// NewClient targets baseURL, which includes the API prefix
// (for example http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	raw := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if raw == "" {
		return nil, errors.New("baseURL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("baseURL scheme must be http or https, got %q", u.Scheme)
	}
	c := &Client{base: u, http: http.DefaultClient, headers: make(http.Header)}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithAuthToken authenticates with a bearer JWT.
func WithAuthToken(token string) Option {
	return WithHeader("Authorization", bearer(token))
}

// WithAPIKey authenticates with a static API key.
func WithAPIKey(key string) Option { return WithHeader("X-API-Key", strings.TrimSpace(key)) }

// WithHeader sets a header on every HTTP request and WebSocket handshake.
// Empty names or values are ignored.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" && v != "" {
			c.headers.Set(k, v)
		}
	}
}

func bearer(token string) string {
	if token = strings.TrimSpace(token); token == "" {
		return ""
	}
	return "Bearer " + token
}

// Leaderboard returns up to ten users ordered by high score.
func (c *Client) Leaderboard(ctx context.Context) ([]core.LeaderboardEntry, error) {
	body, err := call[leaderboardBody](ctx, c, http.MethodGet, "leaderboard", nil)
	return body.Leaderboard, err
}

// UserData returns the caller's high score and history.
func (c *Client) UserData(ctx context.Context) (UserData, error) {
	return call[UserData](ctx, c, http.MethodGet, "user-data", nil)
}

// HighScore returns the caller's high score.
func (c *Client) HighScore(ctx context.Context) (float64, error) {
	body, err := call[highScoreBody](ctx, c, http.MethodGet, "highscore", nil)
	return body.HighScore, err
}

// SubmitHighScore records score and returns the resulting high score.
func (c *Client) SubmitHighScore(ctx context.Context, score float64) (float64, error) {
	body, err := call[highScoreBody](ctx, c, http.MethodPost, "highscore", scoreBody{Score: score})
	return body.HighScore, err
}

// PastScores returns the caller's history in submission order.
func (c *Client) PastScores(ctx context.Context) ([]float64, error) {
	body, err := call[pastScoresBody](ctx, c, http.MethodGet, "past-scores", nil)
	return body.PastScores, err
}

// AppendPastScore adds score to the history and returns the updated history.
func (c *Client) AppendPastScore(ctx context.Context, score float64) ([]float64, error) {
	body, err := call[pastScoresBody](ctx, c, http.MethodPost, "past-scores", scoreBody{Score: score})
	return body.PastScores, err
}

// Health checks /healthz. A 503 is reported as an unhealthy status, not an error.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	hs, err := call[HealthStatus](ctx, c, http.MethodGet, "healthz", nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		return HealthStatus{Status: "unhealthy", Checks: map[string]any{"storage": "failed"}}, nil
	}
	return hs, err
}

// Stats returns the server's event counters.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	return call[Stats](ctx, c, http.MethodGet, "stats", nil)
}

// SubscribeEvents opens the event stream, optionally limited to types. The
// channel closes when ctx ends or the connection drops; events are skipped
// while the consumer is not receiving.
func (c *Client) SubscribeEvents(ctx context.Context, types ...core.EventType) (<-chan core.Event, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.streamURL(types), c.headers)
	if err != nil {
		return nil, fmt.Errorf("dial event stream: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	out := make(chan core.Event, 32)
	go func() {
		defer close(out)
		defer stop()
		defer conn.Close()
		for {
			var ev core.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			select {
			case out <- ev:
			default:
			}
		}
	}()
	return out, nil
}

func (c *Client) endpoint(path string) string {
	return c.base.JoinPath(path).String()
}

func (c *Client) streamURL(types []core.EventType) string {
	u := *c.base.JoinPath("ws")
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		u.RawQuery = url.Values{"types": {strings.Join(names, ",")}}.Encode()
	}
	return u.String()
}

// call sends one JSON request and decodes the response into T.
func call[T any](ctx context.Context, c *Client, method, path string, in any) (T, error) {
	var out T
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return out, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return out, err
	}
	for k, vals := range c.headers {
		req.Header[k] = append([]string(nil), vals...)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	err = decodeJSON(resp, &out)
	return out, err
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("scoreboard: status %d", e.StatusCode)
	}
	return fmt.Sprintf("scoreboard: status %d: %s", e.StatusCode, e.Message)
}
