package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	mem "scoreboard/adapters/memory"
	"scoreboard/adapters/jsonfile"
	redisAdapter "scoreboard/adapters/redis"
	sqlxAdapter "scoreboard/adapters/sqlx"
	"scoreboard/analytics"
	"scoreboard/api/httpapi"
	"scoreboard/auth"
	"scoreboard/config"
	"scoreboard/engine"
	"scoreboard/integrations/webhook"
	"scoreboard/realtime"
	"scoreboard/scores"
)

// ConfigPath is the optional --config file. Empty means defaults plus environment.
type ConfigPath string

// App aggregates the assembled server components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Hub     *realtime.Hub
	Store   engine.Store
	Service *engine.ScoreService
	Handler http.Handler
	Server  *http.Server
}

func provideConfig(ctx context.Context, path ConfigPath) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(string(path))
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if cfg.Environment == config.EnvProduction {
		if err := cfg.LoadSecretsFromEnv(ctx); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg, logOutput(cfg.Logging.Output))
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideCounters(cfg *config.Config) *analytics.Counters {
	if !cfg.Analytics.Enabled {
		return nil
	}
	return analytics.NewCounters()
}

func provideWebhooks(cfg *config.Config, logger *slog.Logger) *webhook.Sink {
	if len(cfg.Integrations.Webhooks) == 0 {
		return nil
	}
	sink := webhook.New(cfg.Integrations.Webhooks,
		webhook.WithClient(&http.Client{Timeout: cfg.Integrations.WebhookTimeout}),
		webhook.WithLogger(logger),
		webhook.WithSecret(cfg.Integrations.WebhookSecret),
	)
	logger.Info("webhook delivery enabled",
		"endpoints", sink.Endpoints(),
		"signed", cfg.Integrations.WebhookSecret != "")
	return sink
}

func provideStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (engine.Store, func(), error) {
	store, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}
	return store, cleanup, nil
}

func provideService(logger *slog.Logger, hub *realtime.Hub, store engine.Store, counters *analytics.Counters, sink *webhook.Sink) (*engine.ScoreService, func()) {
	opts := []scores.Option{
		scores.WithRealtime(hub),
		scores.WithStorage(store),
		scores.WithDispatchMode(engine.DispatchAsync),
		scores.WithLogger(logger),
	}
	if counters != nil {
		opts = append(opts, scores.WithHooks(counters))
	}
	if sink != nil {
		opts = append(opts, scores.WithHooks(sink))
	}
	svc := scores.New(opts...)
	return svc, svc.Close
}

func provideAuthenticator(cfg *config.Config) (auth.Authenticator, error) {
	var chain auth.Chain
	if cfg.Auth.JWTSecret != "" {
		var jwtOpts []auth.JWTOption
		if cfg.Auth.JWTIssuer != "" {
			jwtOpts = append(jwtOpts, auth.WithIssuer(cfg.Auth.JWTIssuer))
		}
		j, err := auth.NewJWT(cfg.Auth.JWTSecret, jwtOpts...)
		if err != nil {
			return nil, err
		}
		chain = append(chain, j)
	}
	if len(cfg.Auth.APIKeys) > 0 {
		chain = append(chain, auth.NewAPIKeys(cfg.Auth.APIKeys))
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no authenticator configured")
	}
	return chain, nil
}

func provideHandler(cfg *config.Config, svc *engine.ScoreService, hub *realtime.Hub, authn auth.Authenticator, counters *analytics.Counters, logger *slog.Logger) http.Handler {
	opts := httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		Authenticator:    authn,
		UnifiedNotFound:  cfg.Server.UnifiedNotFound,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		RateLimitCleanup: cfg.Security.RateLimit.CleanupInterval,
		Logger:           logger,
	}
	if counters != nil {
		opts.Stats = counters
	}
	return httpapi.NewMux(svc, hub, opts)
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func logOutput(name string) io.Writer {
	if name == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config, w io.Writer) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func convertAttributes(attrs map[string]string) []slog.Attr {
	result := make([]slog.Attr, 0, len(attrs))
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage creates the storage adapter named by configuration.
func setupStorage(_ context.Context, cfg *config.Config) (engine.Store, error) {
	switch cfg.Storage.Adapter {
	case config.AdapterMemory:
		return mem.New(), nil
	case config.AdapterRedis:
		return redisAdapter.New(cfg.Storage.Redis)
	case config.AdapterSQL:
		return sqlxAdapter.New(cfg.Storage.SQL)
	case config.AdapterFile:
		return jsonfile.New(cfg.Storage.File.Path)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}
