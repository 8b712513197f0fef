// Package history keeps an audit log of completed prompts in SQLite.
// Only finished prompts are stored; open prompts never touch disk.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"vancedhelper/pkg/logger"
	"vancedhelper/pkg/prompt"
)

// Entry is one stored prompt outcome.
type Entry struct {
	ID        string
	UserID    string
	ChannelID string
	Channel   string
	Question  string
	Outcome   prompt.Outcome
	Answer    string
	Retries   int
	AskedAt   time.Time
	Duration  time.Duration
}

// StoreConfig configures the history store.
type StoreConfig struct {
	DBPath    string
	Retention time.Duration
}

// Store implements prompt.Recorder on top of SQLite.
type Store struct {
	log       *logger.Logger
	db        *sql.DB
	retention time.Duration
}

// NewStore opens the database and ensures the schema exists.
func NewStore(log *logger.Logger, cfg *StoreConfig) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode keeps reads from blocking the recorder's writes.
	dsn := cfg.DBPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{
		log:       log,
		db:        db,
		retention: cfg.Retention,
	}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS prompt_history (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		channel TEXT NOT NULL,
		question TEXT NOT NULL,
		outcome TEXT NOT NULL,
		answer TEXT NOT NULL DEFAULT '',
		retries INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL,
		asked_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_user ON prompt_history(user_id, asked_at);
	CREATE INDEX IF NOT EXISTS idx_history_asked ON prompt_history(asked_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record implements prompt.Recorder. Failures are logged and dropped so
// a broken audit log never changes a prompt's outcome.
func (s *Store) Record(ctx context.Context, res prompt.Result) {
	if err := s.insert(ctx, res); err != nil {
		s.log.Warn("failed to record prompt outcome",
			zap.String("prompt_id", res.ID),
			zap.String("user_id", res.UserID),
			zap.Error(err))
	}
}

func (s *Store) insert(ctx context.Context, res prompt.Result) error {
	query := `
	INSERT INTO prompt_history (
		id, user_id, channel_id, channel, question,
		outcome, answer, retries, duration_ms, asked_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		res.ID, res.UserID, res.ChannelID, res.Channel, res.Question,
		string(res.Outcome), res.Answer, res.Retries,
		res.Duration.Milliseconds(), res.AskedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert prompt history: %w", err)
	}
	return nil
}

// RecentByUser returns the user's most recent entries, newest first.
func (s *Store) RecentByUser(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
	SELECT id, user_id, channel_id, channel, question,
	       outcome, answer, retries, duration_ms, asked_at
	FROM prompt_history
	WHERE user_id = ?
	ORDER BY asked_at DESC, id DESC
	LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query prompt history: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.log.Warn("failed to close history rows", zap.Error(closeErr))
		}
	}()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var outcome string
		var durationMS, askedAt int64

		if err := rows.Scan(
			&e.ID, &e.UserID, &e.ChannelID, &e.Channel, &e.Question,
			&outcome, &e.Answer, &e.Retries, &durationMS, &askedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}

		e.Outcome = prompt.Outcome(outcome)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.AskedAt = time.Unix(askedAt, 0)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	return entries, nil
}

// TotalsByOutcome returns how many stored prompts ended in each outcome.
func (s *Store) TotalsByOutcome(ctx context.Context) (map[prompt.Outcome]int64, error) {
	query := `SELECT outcome, COUNT(*) FROM prompt_history GROUP BY outcome`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query outcome totals: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.log.Warn("failed to close totals rows", zap.Error(closeErr))
		}
	}()

	totals := make(map[prompt.Outcome]int64)
	for rows.Next() {
		var outcome string
		var count int64
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan totals row: %w", err)
		}
		totals[prompt.Outcome(outcome)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate totals rows: %w", err)
	}

	return totals, nil
}

// Sweep deletes entries older than the retention window and returns how
// many were removed. A zero retention disables sweeping.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}

	threshold := time.Now().Add(-s.retention).Unix()
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM prompt_history WHERE asked_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("sweep prompt history: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
