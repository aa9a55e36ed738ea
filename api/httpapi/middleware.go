package httpapi

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"scoreboard/auth"
)

const requestIDHeader = "X-Request-ID"

// requireAuth resolves the caller and stores the identity on the request context.
// A non-nil limiter is charged per resolved user, so unverified credentials never
// get a bucket of their own.
func requireAuth(a auth.Authenticator, limiter *rateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			user, err := a.Authenticate(r)
			if err != nil {
				if !errors.Is(err, auth.ErrMissingCredentials) {
					logger.Warn("authentication rejected", "path", r.URL.Path, "error", err)
				}
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if limiter != nil && !limiter.allow("user:"+string(user)) {
				writeError(w, http.StatusTooManyRequests, msgTooManyRequests)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), user)))
		})
	}
}

// withCORS wraps a handler with a CORS policy for a single origin (or "*").
func withCORS(next http.Handler, origin string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{origin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
	return c.Handler(next)
}

// withRateLimit charges every request to the caller's remote IP.
func withRateLimit(next http.Handler, limiter *rateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.allow("ip:" + remoteIP(r)) {
			writeError(w, http.StatusTooManyRequests, msgTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRequestLog tags each request with an id and logs it on completion.
func withRequestLog(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrade reach the underlying connection.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

const (
	msgTooManyRequests    = "Too many requests"
	defaultRateLimitSweep = 5 * time.Minute
)

type rateLimiter struct {
	rpm        float64
	burst      float64
	sweepEvery time.Duration
	now        func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newRateLimiter(rpm, burst int, sweepEvery time.Duration) *rateLimiter {
	if sweepEvery <= 0 {
		sweepEvery = defaultRateLimitSweep
	}
	return &rateLimiter{
		rpm:        float64(rpm),
		burst:      float64(burst),
		sweepEvery: sweepEvery,
		now:        time.Now,
		buckets:    make(map[string]*bucket),
		lastSweep:  time.Now(),
	}
}

func (l *rateLimiter) allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.sweepEvery {
		l.sweep(now)
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}

	b.tokens += now.Sub(b.last).Minutes() * l.rpm
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops buckets idle long enough to have refilled; a fresh bucket grants
// the same allowance.
func (l *rateLimiter) sweep(now time.Time) {
	refill := time.Duration(l.burst / l.rpm * float64(time.Minute))
	for k, b := range l.buckets {
		if now.Sub(b.last) >= refill {
			delete(l.buckets, k)
		}
	}
}

func (l *rateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
