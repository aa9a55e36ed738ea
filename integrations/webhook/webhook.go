package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"scoreboard/core"
)

const (
	HeaderEvent     = "X-Scoreboard-Event"
	HeaderSignature = "X-Scoreboard-Signature"
)

// Sink posts score events to HTTP endpoints. Delivery is synchronous, so it
// should sit behind the async event bus.
type Sink struct {
	client    *http.Client
	endpoints []string
	secret    []byte
	logger    *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the default client, which times out after 2s.
func WithClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSecret signs each body with HMAC-SHA256 in the X-Scoreboard-Signature
// header as "sha256=<hex>". An empty secret disables signing.
func WithSecret(secret string) Option {
	return func(s *Sink) {
		if secret != "" {
			s.secret = []byte(secret)
		}
	}
}

func New(endpoints []string, opts ...Option) *Sink {
	s := &Sink{
		client:    &http.Client{Timeout: 2 * time.Second},
		endpoints: append([]string(nil), endpoints...),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Endpoints returns a copy of the configured endpoints.
func (s *Sink) Endpoints() []string { return append([]string(nil), s.endpoints...) }

// Sign returns the signature header value for body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// OnEvent delivers e to every endpoint. Failures are logged, never returned.
func (s *Sink) OnEvent(e core.Event) {
	if len(s.endpoints) == 0 {
		return
	}
	body, err := json.Marshal(e)
	if err != nil {
		s.logger.Error("webhook encode failed", "event", e.Type, "error", err)
		return
	}
	for _, ep := range s.endpoints {
		if err := s.deliver(context.Background(), ep, e.Type, body); err != nil {
			s.logger.Warn("webhook delivery failed", "endpoint", ep, "event", e.Type, "error", err)
		}
	}
}

func (s *Sink) deliver(ctx context.Context, endpoint string, typ core.EventType, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, string(typ))
	if s.secret != nil {
		req.Header.Set(HeaderSignature, Sign(s.secret, body))
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("endpoint answered %d", resp.StatusCode)
	}
	return nil
}
