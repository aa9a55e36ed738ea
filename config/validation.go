package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// oneOf reports a violation when value is not among allowed.
func oneOf(field, value string, allowed ...string) string {
	if slices.Contains(allowed, value) {
		return ""
	}
	return fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", "))
}

func joinErrs(errs []string) error {
	var kept []string
	for _, e := range errs {
		if e != "" {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return errors.New(strings.Join(kept, "; "))
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	var errs []string

	if s.Address == "" {
		errs = append(errs, "address cannot be empty")
	}
	if s.PathPrefix != "" && !strings.HasPrefix(s.PathPrefix, "/") {
		errs = append(errs, "path_prefix must start with /")
	}
	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"read_timeout", s.ReadTimeout},
		{"write_timeout", s.WriteTimeout},
		{"idle_timeout", s.IdleTimeout},
		{"read_header_timeout", s.ReadHeaderTimeout},
		{"shutdown_timeout", s.ShutdownTimeout},
	}
	for _, t := range timeouts {
		if t.value <= 0 {
			errs = append(errs, t.name+" must be positive")
		}
	}

	return joinErrs(errs)
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	errs := []string{oneOf("adapter", s.Adapter, AdapterMemory, AdapterRedis, AdapterSQL, AdapterFile)}

	switch s.Adapter {
	case AdapterRedis:
		if s.Redis.Addr == "" {
			errs = append(errs, "redis config: addr cannot be empty")
		}
	case AdapterSQL:
		if err := s.SQL.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("sql config: %v", err))
		}
	case AdapterFile:
		if err := s.File.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("file config: %v", err))
		}
	}

	return joinErrs(errs)
}

// Validate validates file storage configuration
func (f *FileConfig) Validate() error {
	if f.Path == "" {
		return errors.New("path cannot be empty")
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	return joinErrs([]string{
		oneOf("level", l.Level, "debug", "info", "warn", "error"),
		oneOf("format", l.Format, "json", "text"),
		oneOf("output", l.Output, "stdout", "stderr"),
	})
}

// Validate checks that protected routes have at least one way to authenticate.
// Production refuses the development signing secret.
func (a *AuthConfig) Validate(env Environment) error {
	var errs []string

	if a.JWTSecret == "" && len(a.APIKeys) == 0 {
		errs = append(errs, "jwt_secret or api_keys must be set")
	}
	if env == EnvProduction && a.JWTSecret == DevJWTSecret {
		errs = append(errs, "jwt_secret must be replaced in production")
	}
	if a.JWTSecret != "" && a.TokenTTL <= 0 {
		errs = append(errs, "token_ttl must be positive")
	}
	for key, user := range a.APIKeys {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, "api_keys contains an empty key")
		}
		if strings.TrimSpace(user) == "" {
			errs = append(errs, "api_keys maps a key to an empty user id")
		}
	}

	return joinErrs(errs)
}

// Validate validates security settings.
func (s *SecurityConfig) Validate() error {
	var errs []string
	if s.EnableRateLimit {
		if s.RateLimit.RequestsPerMinute <= 0 {
			errs = append(errs, "rate_limit.requests_per_minute must be > 0 when rate limiting is enabled")
		}
		if s.RateLimit.BurstSize <= 0 {
			errs = append(errs, "rate_limit.burst_size must be > 0 when rate limiting is enabled")
		}
		if s.RateLimit.CleanupInterval <= 0 {
			errs = append(errs, "rate_limit.cleanup_interval must be > 0 when rate limiting is enabled")
		}
	}
	return joinErrs(errs)
}

// Validate checks webhook endpoints are absolute http(s) URLs.
func (i *IntegrationsConfig) Validate() error {
	var errs []string
	for n, ep := range i.Webhooks {
		u, err := url.Parse(ep)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("webhooks[%d] must be an absolute http(s) URL", n))
		}
	}
	if len(i.Webhooks) > 0 && i.WebhookTimeout <= 0 {
		errs = append(errs, "webhook_timeout must be positive")
	}
	return joinErrs(errs)
}
