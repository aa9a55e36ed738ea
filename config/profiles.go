package config

import (
	"fmt"
	"time"

	"scoreboard/adapters/sqlx"
)

// LoadProfile returns the named preset. Values still need validating once
// secrets and environment overrides are applied.
func LoadProfile(name string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Profile = name

	switch name {
	case "development", "default":
		cfg.Environment = EnvDevelopment
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	case "testing":
		cfg.Environment = EnvTesting
		cfg.Server.Address = "127.0.0.1:0"
		cfg.Server.ShutdownTimeout = 5 * time.Second
		cfg.Storage.Adapter = AdapterMemory
		cfg.Logging.Level = "warn"
		cfg.Logging.Format = "text"
		cfg.Logging.Output = "stderr"
		cfg.Analytics.Enabled = false
	case "staging":
		cfg.Environment = EnvStaging
		cfg.Storage.Adapter = AdapterRedis
		cfg.Server.CORSOrigin = ""
		cfg.Security.EnableRateLimit = true
		cfg.Security.RateLimit.RequestsPerMinute = 300
		cfg.Security.RateLimit.BurstSize = 50
	case "production":
		cfg.Environment = EnvProduction
		cfg.Storage.Adapter = AdapterSQL
		cfg.Storage.SQL = sqlx.DefaultConfig(sqlx.DriverPostgres)
		cfg.Storage.SQL.MaxOpenConns = 25
		cfg.Storage.SQL.AutoMigrate = false
		cfg.Server.CORSOrigin = ""
		cfg.Server.ReadTimeout = 15 * time.Second
		cfg.Server.WriteTimeout = 15 * time.Second
		cfg.Auth.JWTSecret = ""
		cfg.Auth.TokenTTL = time.Hour
		cfg.Security.EnableRateLimit = true
		cfg.Security.RateLimit.RequestsPerMinute = 120
		cfg.Security.RateLimit.BurstSize = 20
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	return cfg, nil
}
