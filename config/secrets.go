package config

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrSecretNotFound is returned when a secret store has no value for a key.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore resolves sensitive values kept out of config files.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	GetWithDefault(ctx context.Context, key, def string) string
}

// EnvironmentSecretStore reads secrets from process environment variables.
type EnvironmentSecretStore struct {
	lookup lookupFunc
}

func NewEnvironmentSecretStore() *EnvironmentSecretStore {
	return &EnvironmentSecretStore{lookup: os.LookupEnv}
}

func (s *EnvironmentSecretStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.lookup(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	return v, nil
}

func (s *EnvironmentSecretStore) GetWithDefault(ctx context.Context, key, def string) string {
	v, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	return v
}

// Secret keys consulted by LoadSecrets.
const (
	SecretJWT           = "SCOREBOARD_JWT_SECRET"
	SecretSQLDSN        = "SCOREBOARD_DATABASE_URL"
	SecretRedisPassword = "SCOREBOARD_REDIS_PASSWORD"
)

// LoadSecrets fills sensitive fields from store, keeping current values for
// keys the store does not have.
func (c *Config) LoadSecrets(ctx context.Context, store SecretStore) error {
	if store == nil {
		return errors.New("secret store is nil")
	}
	c.Auth.JWTSecret = store.GetWithDefault(ctx, SecretJWT, c.Auth.JWTSecret)
	c.Storage.SQL.DSN = store.GetWithDefault(ctx, SecretSQLDSN, c.Storage.SQL.DSN)
	c.Storage.Redis.Password = store.GetWithDefault(ctx, SecretRedisPassword, c.Storage.Redis.Password)

	if c.Environment == EnvProduction && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == DevJWTSecret) && len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("%w: %s is required in production", ErrSecretNotFound, SecretJWT)
	}
	return nil
}

// LoadSecretsFromEnv is LoadSecrets backed by the process environment.
func (c *Config) LoadSecretsFromEnv(ctx context.Context) error {
	return c.LoadSecrets(ctx, NewEnvironmentSecretStore())
}
