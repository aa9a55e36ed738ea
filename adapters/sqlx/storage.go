package sqlx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"scoreboard/core"
)

// Driver names a database/sql driver supported by the store.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite3"
)

// Config holds SQL connection configuration.
type Config struct {
	Driver          Driver        `json:"driver" yaml:"driver" env:"SCOREBOARD_SQL_DRIVER"`
	DSN             string        `json:"dsn" yaml:"dsn" env:"SCOREBOARD_SQL_DSN"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns" env:"SCOREBOARD_SQL_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" env:"SCOREBOARD_SQL_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" env:"SCOREBOARD_SQL_CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `json:"auto_migrate" yaml:"auto_migrate" env:"SCOREBOARD_SQL_AUTO_MIGRATE"`
}

// DefaultConfig returns defaults for the given driver.
func DefaultConfig(driver Driver) Config {
	cfg := Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		AutoMigrate:     true,
	}
	switch driver {
	case DriverPostgres:
		cfg.DSN = "postgres://localhost:5432/scoreboard?sslmode=disable"
	case DriverMySQL:
		cfg.DSN = "root@tcp(localhost:3306)/scoreboard"
	case DriverSQLite:
		// one writer; see New
		cfg.DSN = "file:scoreboard.db?_busy_timeout=5000&_journal_mode=WAL"
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
	}
	return cfg
}

// Validate checks the driver and DSN.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.DSN == "" {
		return errors.New("dsn cannot be empty")
	}
	return nil
}

// Store implements engine.Store over a relational database.
// Tables:
//   - users(id, username, high_score, updated_at)
//   - past_scores(id, user_id, score) ordered by id
type Store struct {
	db     *sqlx.DB
	driver Driver
}

// New opens a connection pool and applies the schema when AutoMigrate is set.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := sqlx.Open(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// SQLite allows a single writer; serializing on one connection keeps
		// transactions from failing with SQLITE_BUSY.
		cfg.MaxOpenConns = 1
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := NewWithDB(db, cfg.Driver)
	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewWithDB wraps an existing connection (useful for testing).
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema(s.driver) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func schema(driver Driver) []string {
	var scoreType, serial, inlineIndex string
	switch driver {
	case DriverPostgres:
		scoreType, serial = "DOUBLE PRECISION", "BIGSERIAL PRIMARY KEY"
	case DriverMySQL:
		scoreType, serial = "DOUBLE", "BIGINT AUTO_INCREMENT PRIMARY KEY"
		inlineIndex = ",\n\t\t\tINDEX idx_past_scores_user (user_id, id)"
	default:
		scoreType, serial = "REAL", "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			high_score ` + scoreType + ` NOT NULL DEFAULT 0,
			updated_at BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS past_scores (
			id ` + serial + `,
			user_id VARCHAR(64) NOT NULL,
			score ` + scoreType + ` NOT NULL` + inlineIndex + `
		)`,
	}
	if inlineIndex == "" {
		stmts = append(stmts, `CREATE INDEX IF NOT EXISTS idx_past_scores_user ON past_scores (user_id, id)`)
	}
	return stmts
}

type userRow struct {
	ID        string  `db:"id"`
	Username  string  `db:"username"`
	HighScore float64 `db:"high_score"`
	UpdatedAt int64   `db:"updated_at"`
}

// lockClause returns the row lock suffix for drivers that support it.
func (s *Store) lockClause() string {
	if s.driver == DriverSQLite {
		return ""
	}
	return " FOR UPDATE"
}

// CreateUser inserts the user row and any seed history in one transaction.
func (s *Store) CreateUser(ctx context.Context, user core.User) error {
	updated := user.Updated
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO users (id, username, high_score, updated_at) VALUES (?, ?, ?, ?)`),
			string(user.ID), user.Username, user.HighScore, updated.UnixNano())
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		for _, v := range user.PastScores {
			if err := insertScore(ctx, tx, user.ID, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetUser reads the user row and its history.
func (s *Store) GetUser(ctx context.Context, userID core.UserID) (core.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT id, username, high_score, updated_at FROM users WHERE id = ?`), string(userID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	scores := []float64{}
	if err := s.db.SelectContext(ctx, &scores, s.db.Rebind(`SELECT score FROM past_scores WHERE user_id = ? ORDER BY id ASC`), string(userID)); err != nil {
		return core.User{}, fmt.Errorf("failed to get past scores: %w", err)
	}
	return core.User{
		ID:         core.UserID(row.ID),
		Username:   row.Username,
		HighScore:  row.HighScore,
		PastScores: scores,
		Updated:    time.Unix(0, row.UpdatedAt).UTC(),
	}, nil
}

// SubmitScore locks the user row, appends the score and raises the high score
// when the new value is strictly greater. The result reflects this transaction
// only, never a later writer.
func (s *Store) SubmitScore(ctx context.Context, userID core.UserID, score float64) (core.Submission, error) {
	var prev, high float64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &prev, tx.Rebind(`SELECT high_score FROM users WHERE id = ?`+s.lockClause()), string(userID))
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read high score: %w", err)
		}
		if err := insertScore(ctx, tx, userID, score); err != nil {
			return err
		}
		high = prev
		if score > prev {
			high = score
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET high_score = ?, updated_at = ? WHERE id = ?`),
			high, time.Now().UTC().UnixNano(), string(userID))
		if err != nil {
			return fmt.Errorf("failed to update high score: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Submission{}, err
	}
	return core.Submission{User: userID, Score: score, HighScore: high, Previous: prev}, nil
}

// AppendScore appends to the history without touching the high score.
func (s *Store) AppendScore(ctx context.Context, userID core.UserID, score float64) (core.User, error) {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET updated_at = ? WHERE id = ?`), time.Now().UTC().UnixNano(), string(userID))
		if err != nil {
			return fmt.Errorf("failed to touch user: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to touch user: %w", err)
		}
		if n == 0 {
			return core.ErrUserNotFound
		}
		return insertScore(ctx, tx, userID, score)
	})
	if err != nil {
		return core.User{}, err
	}
	return s.GetUser(ctx, userID)
}

// Leaderboard returns users ordered by high score, ties by id.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]core.LeaderboardEntry, error) {
	var rows []userRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT id, username, high_score, updated_at FROM users ORDER BY high_score DESC, id ASC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	out := make([]core.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.LeaderboardEntry{Username: r.Username, HighScore: r.HighScore})
	}
	return out, nil
}

func insertScore(ctx context.Context, tx *sqlx.Tx, userID core.UserID, score float64) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO past_scores (user_id, score) VALUES (?, ?)`), string(userID), score); err != nil {
		return fmt.Errorf("failed to append score: %w", err)
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
