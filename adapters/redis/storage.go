package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"scoreboard/core"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr" yaml:"addr" env:"SCOREBOARD_REDIS_ADDR"`
	Password     string        `json:"password" yaml:"password" env:"SCOREBOARD_REDIS_PASSWORD"`
	DB           int           `json:"db" yaml:"db" env:"SCOREBOARD_REDIS_DB"`
	PoolSize     int           `json:"pool_size" yaml:"pool_size" env:"SCOREBOARD_REDIS_POOL_SIZE"`
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns" env:"SCOREBOARD_REDIS_MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout" env:"SCOREBOARD_REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" env:"SCOREBOARD_REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" env:"SCOREBOARD_REDIS_WRITE_TIMEOUT"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store implements engine.Store on top of Redis.
// Data structure:
//   - user:{user_id} -> hash {username, high_score, updated}
//   - user:{user_id}:past_scores -> list of scores in submission order
//   - leaderboard:high_score -> sorted set of user ids scored by high score
type Store struct {
	client *redis.Client
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

const leaderboardKey = "leaderboard:high_score"

func userKey(userID core.UserID) string {
	return fmt.Sprintf("user:%s", userID)
}

func pastScoresKey(userID core.UserID) string {
	return fmt.Sprintf("user:%s:past_scores", userID)
}

const notFoundReply = "USER_NOT_FOUND"

// submitScript appends the score, raises the high score on a strictly greater
// value and returns {previous, current} high scores, all in one server-side step.
// KEYS: user hash, past scores list, leaderboard zset
// ARGV: score, updated timestamp, user id
var submitScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return redis.error_reply('USER_NOT_FOUND')
	end
	local prev = redis.call('HGET', KEYS[1], 'high_score') or '0'
	local high = prev
	redis.call('RPUSH', KEYS[2], ARGV[1])
	if tonumber(ARGV[1]) > tonumber(prev) then
		high = ARGV[1]
		redis.call('HSET', KEYS[1], 'high_score', high)
		redis.call('ZADD', KEYS[3], high, ARGV[3])
	end
	redis.call('HSET', KEYS[1], 'updated', ARGV[2])
	return {prev, high}
`)

// appendScript appends the score to the history only.
// KEYS: user hash, past scores list
// ARGV: score, updated timestamp
var appendScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return redis.error_reply('USER_NOT_FOUND')
	end
	redis.call('RPUSH', KEYS[2], ARGV[1])
	redis.call('HSET', KEYS[1], 'updated', ARGV[2])
	return redis.call('LLEN', KEYS[2])
`)

// CreateUser writes a new user hash, its history and leaderboard membership.
func (s *Store) CreateUser(ctx context.Context, user core.User) error {
	updated := user.Updated
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	created, err := s.client.HSetNX(ctx, userKey(user.ID), "username", user.Username).Result()
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if !created {
		return fmt.Errorf("user %s already exists", user.ID)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, userKey(user.ID),
			"high_score", formatScore(user.HighScore),
			"updated", updated.UnixNano())
		if len(user.PastScores) > 0 {
			vals := make([]any, len(user.PastScores))
			for i, v := range user.PastScores {
				vals[i] = formatScore(v)
			}
			pipe.RPush(ctx, pastScoresKey(user.ID), vals...)
		}
		pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: user.HighScore, Member: string(user.ID)})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser reads the user hash and its full history.
func (s *Store) GetUser(ctx context.Context, userID core.UserID) (core.User, error) {
	var (
		fields *redis.MapStringStringCmd
		scores *redis.StringSliceCmd
	)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		fields = pipe.HGetAll(ctx, userKey(userID))
		scores = pipe.LRange(ctx, pastScoresKey(userID), 0, -1)
		return nil
	})
	if err != nil {
		return core.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return decodeUser(userID, fields.Val(), scores.Val())
}

// SubmitScore atomically appends and conditionally raises the high score.
func (s *Store) SubmitScore(ctx context.Context, userID core.UserID, score float64) (core.Submission, error) {
	keys := []string{userKey(userID), pastScoresKey(userID), leaderboardKey}
	res, err := submitScript.Run(ctx, s.client, keys, formatScore(score), time.Now().UTC().UnixNano(), string(userID)).StringSlice()
	if err != nil {
		if isNotFound(err) {
			return core.Submission{}, core.ErrUserNotFound
		}
		return core.Submission{}, fmt.Errorf("failed to submit score: %w", err)
	}
	if len(res) != 2 {
		return core.Submission{}, fmt.Errorf("unexpected submit reply %q", res)
	}
	prev, err := strconv.ParseFloat(res[0], 64)
	if err != nil {
		return core.Submission{}, fmt.Errorf("unexpected previous high score %q: %w", res[0], err)
	}
	high, err := strconv.ParseFloat(res[1], 64)
	if err != nil {
		return core.Submission{}, fmt.Errorf("unexpected high score %q: %w", res[1], err)
	}
	return core.Submission{User: userID, Score: score, HighScore: high, Previous: prev}, nil
}

// AppendScore atomically appends to the history.
func (s *Store) AppendScore(ctx context.Context, userID core.UserID, score float64) (core.User, error) {
	keys := []string{userKey(userID), pastScoresKey(userID)}
	if err := appendScript.Run(ctx, s.client, keys, formatScore(score), time.Now().UTC().UnixNano()).Err(); err != nil {
		if isNotFound(err) {
			return core.User{}, core.ErrUserNotFound
		}
		return core.User{}, fmt.Errorf("failed to append score: %w", err)
	}
	return s.GetUser(ctx, userID)
}

// Leaderboard reads the top of the sorted set and resolves usernames.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]core.LeaderboardEntry, error) {
	if limit <= 0 {
		return []core.LeaderboardEntry{}, nil
	}
	top, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	names := make([]*redis.StringCmd, len(top))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, z := range top {
			names[i] = pipe.HGet(ctx, userKey(core.UserID(fmt.Sprint(z.Member))), "username")
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to resolve usernames: %w", err)
	}
	out := make([]core.LeaderboardEntry, 0, len(top))
	for i, z := range top {
		name, err := names[i].Result()
		if err != nil {
			// member without a backing hash
			continue
		}
		out = append(out, core.LeaderboardEntry{Username: name, HighScore: z.Score})
	}
	return out, nil
}

func decodeUser(userID core.UserID, fields map[string]string, scores []string) (core.User, error) {
	if len(fields) == 0 {
		return core.User{}, core.ErrUserNotFound
	}
	user := core.User{
		ID:         userID,
		Username:   fields["username"],
		PastScores: make([]float64, 0, len(scores)),
	}
	if v, ok := fields["high_score"]; ok {
		high, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return core.User{}, fmt.Errorf("invalid high score %q: %w", v, err)
		}
		user.HighScore = high
	}
	if v, ok := fields["updated"]; ok {
		if ns, err := strconv.ParseInt(v, 10, 64); err == nil {
			user.Updated = time.Unix(0, ns).UTC()
		}
	}
	for _, raw := range scores {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return core.User{}, fmt.Errorf("invalid past score %q: %w", raw, err)
		}
		user.PastScores = append(user.PastScores, v)
	}
	return user, nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), notFoundReply)
}
