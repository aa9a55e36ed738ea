package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"scoreboard/adapters/redis"
	"scoreboard/adapters/sqlx"
)

// Environment names where the scoreboard runs; it selects validation strictness.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Storage adapters.
const (
	AdapterMemory = "memory"
	AdapterRedis  = "redis"
	AdapterSQL    = "sql"
	AdapterFile   = "file"
)

// DevJWTSecret signs tokens in development. Production rejects it.
const DevJWTSecret = "scoreboard-development-secret"

// Config is everything the scoreboard server reads at startup.
type Config struct {
	Environment Environment `json:"environment" yaml:"environment" env:"SCOREBOARD_ENV"`
	Profile     string      `json:"profile" yaml:"profile" env:"SCOREBOARD_PROFILE"`

	Server       ServerConfig       `json:"server" yaml:"server"`
	Storage      StorageConfig      `json:"storage" yaml:"storage"`
	Logging      LoggingConfig      `json:"logging" yaml:"logging"`
	Auth         AuthConfig         `json:"auth" yaml:"auth"`
	Security     SecurityConfig     `json:"security" yaml:"security"`
	Analytics    AnalyticsConfig    `json:"analytics" yaml:"analytics"`
	Integrations IntegrationsConfig `json:"integrations" yaml:"integrations"`
}

// ServerConfig controls the HTTP listener and route mounting.
type ServerConfig struct {
	Address           string        `json:"address" yaml:"address" env:"SCOREBOARD_SERVER_ADDR"`
	PathPrefix        string        `json:"path_prefix" yaml:"path_prefix" env:"SCOREBOARD_SERVER_PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" yaml:"cors_origin" env:"SCOREBOARD_SERVER_CORS_ORIGIN"`
	UnifiedNotFound   bool          `json:"unified_not_found" yaml:"unified_not_found" env:"SCOREBOARD_SERVER_UNIFIED_NOT_FOUND"`
	ReadTimeout       time.Duration `json:"read_timeout" yaml:"read_timeout" env:"SCOREBOARD_SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" yaml:"write_timeout" env:"SCOREBOARD_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" yaml:"idle_timeout" env:"SCOREBOARD_SERVER_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" yaml:"read_header_timeout" env:"SCOREBOARD_SERVER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" env:"SCOREBOARD_SERVER_SHUTDOWN_TIMEOUT"`
}

// StorageConfig picks the user store adapter and carries its settings.
type StorageConfig struct {
	Adapter string       `json:"adapter" yaml:"adapter" env:"SCOREBOARD_STORAGE_ADAPTER"`
	Redis   redis.Config `json:"redis,omitempty" yaml:"redis,omitempty"`
	SQL     sqlx.Config  `json:"sql,omitempty" yaml:"sql,omitempty"`
	File    FileConfig   `json:"file,omitempty" yaml:"file,omitempty"`
}

// FileConfig points the jsonfile adapter at its data file.
type FileConfig struct {
	Path string `json:"path" yaml:"path" env:"SCOREBOARD_STORAGE_FILE_PATH"`
}

// LoggingConfig shapes the slog handler.
type LoggingConfig struct {
	Level      string            `json:"level" yaml:"level" env:"SCOREBOARD_LOG_LEVEL"`
	Format     string            `json:"format" yaml:"format" env:"SCOREBOARD_LOG_FORMAT"`
	Output     string            `json:"output" yaml:"output" env:"SCOREBOARD_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty" env:"SCOREBOARD_LOG_ATTRIBUTES"`
}

// AuthConfig configures how protected routes resolve the caller.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret" env:"SCOREBOARD_AUTH_JWT_SECRET"`
	JWTIssuer string `json:"jwt_issuer" yaml:"jwt_issuer" env:"SCOREBOARD_AUTH_JWT_ISSUER"`
	// APIKeys maps a static key to the user id it authenticates as.
	APIKeys  map[string]string `json:"api_keys,omitempty" yaml:"api_keys,omitempty" env:"SCOREBOARD_AUTH_API_KEYS"`
	TokenTTL time.Duration     `json:"token_ttl" yaml:"token_ttl" env:"SCOREBOARD_AUTH_TOKEN_TTL"`
}

type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" yaml:"enable_rate_limit" env:"SCOREBOARD_SECURITY_RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
}

// RateLimitConfig is a token bucket charged per remote IP and per authenticated
// user. Idle buckets are swept every CleanupInterval.
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute" yaml:"requests_per_minute" env:"SCOREBOARD_SECURITY_RATE_LIMIT_RPM"`
	BurstSize         int           `json:"burst_size" yaml:"burst_size" env:"SCOREBOARD_SECURITY_RATE_LIMIT_BURST"`
	CleanupInterval   time.Duration `json:"cleanup_interval" yaml:"cleanup_interval" env:"SCOREBOARD_SECURITY_RATE_LIMIT_CLEANUP"`
}

// AnalyticsConfig toggles in-process event counters and the stats route.
type AnalyticsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" env:"SCOREBOARD_ANALYTICS_ENABLED"`
}

// IntegrationsConfig lists outbound event sinks.
type IntegrationsConfig struct {
	Webhooks       []string      `json:"webhooks,omitempty" yaml:"webhooks,omitempty" env:"SCOREBOARD_WEBHOOKS"`
	WebhookTimeout time.Duration `json:"webhook_timeout" yaml:"webhook_timeout" env:"SCOREBOARD_WEBHOOK_TIMEOUT"`
	WebhookSecret  string        `json:"webhook_secret,omitempty" yaml:"webhook_secret,omitempty" env:"SCOREBOARD_WEBHOOK_SECRET"`
}

// Load starts from DefaultConfig, applies SCOREBOARD_* variables and validates.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := loadFromEnv(cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// validateConfigPath rejects traversal, unknown extensions and missing files.
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}

	cleanPath := filepath.Clean(path)

	switch strings.ToLower(filepath.Ext(cleanPath)) {
	case ".json", ".yaml", ".yml":
	default:
		return errors.New("config file must have .json, .yaml or .yml extension")
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not readable: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON or YAML file. The profile named
// in the file, if any, supplies the base values the file then overrides.
// Environment variables override both.
func LoadFromFile(path string) (*Config, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("config path: %w", err)
	}

	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	unmarshal := json.Unmarshal
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		unmarshal = yaml.Unmarshal
	}

	var head struct {
		Profile string `json:"profile" yaml:"profile"`
	}
	if err := unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if head.Profile != "" && head.Profile != "default" {
		if cfg, err = LoadProfile(head.Profile); err != nil {
			return nil, err
		}
	}
	if err := unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := loadFromEnv(cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig is the development setup: in-memory store on :8080 under /api.
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "/api",
			CORSOrigin:        "*",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Adapter: AdapterMemory,
			Redis:   redis.DefaultConfig(),
			SQL:     sqlx.DefaultConfig(sqlx.DriverPostgres),
			File: FileConfig{
				Path: "./data/scoreboard.json",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Auth: AuthConfig{
			JWTSecret: DevJWTSecret,
			APIKeys:   map[string]string{},
			TokenTTL:  24 * time.Hour,
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				BurstSize:         10,
				CleanupInterval:   5 * time.Minute,
			},
		},
		Analytics: AnalyticsConfig{Enabled: true},
		Integrations: IntegrationsConfig{
			WebhookTimeout: 2 * time.Second,
		},
	}
}

// Validate checks every section and joins the problems into one error.
func (c *Config) Validate() error {
	var errs []string

	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}

	sections := []struct {
		name string
		err  error
	}{
		{"server", c.Server.Validate()},
		{"storage", c.Storage.Validate()},
		{"logging", c.Logging.Validate()},
		{"auth", c.Auth.Validate(c.Environment)},
		{"security", c.Security.Validate()},
		{"integrations", c.Integrations.Validate()},
	}
	for _, s := range sections {
		if s.err != nil {
			errs = append(errs, fmt.Sprintf("%s config: %v", s.name, s.err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// String renders the config as JSON with credentials masked, for startup logs.
func (c *Config) String() string {
	cfg := *c

	if cfg.Storage.SQL.DSN != "" {
		cfg.Storage.SQL.DSN = "[REDACTED]"
	}
	if cfg.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = "[REDACTED]"
	}
	if cfg.Auth.JWTSecret != "" {
		cfg.Auth.JWTSecret = "[REDACTED]"
	}
	if cfg.Integrations.WebhookSecret != "" {
		cfg.Integrations.WebhookSecret = "[REDACTED]"
	}
	if len(cfg.Auth.APIKeys) > 0 {
		redacted := make(map[string]string, len(cfg.Auth.APIKeys))
		for i := 0; i < len(cfg.Auth.APIKeys); i++ {
			redacted[fmt.Sprintf("[REDACTED-%d]", i)] = "[REDACTED]"
		}
		cfg.Auth.APIKeys = redacted
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
