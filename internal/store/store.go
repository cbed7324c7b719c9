// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qvreis/earpro/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Pool names the two review pools.
type Pool string

// Review pools.
const (
	PoolMistakes Pool = "mistakes"
	PoolSlow     Pool = "slow_responses"
)

// Store wraps SQLite access for pools and session history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS mistakes (
			interval_id TEXT NOT NULL,
			root_pitch INTEGER NOT NULL,
			direction TEXT NOT NULL,
			added_at TEXT NOT NULL,
			PRIMARY KEY (interval_id, root_pitch)
		);`,
		`CREATE TABLE IF NOT EXISTS slow_responses (
			interval_id TEXT NOT NULL,
			root_pitch INTEGER NOT NULL,
			direction TEXT NOT NULL,
			added_at TEXT NOT NULL,
			PRIMARY KEY (interval_id, root_pitch)
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			mode TEXT NOT NULL,
			instrument TEXT NOT NULL,
			questions INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			avg_response_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_questions (
			session_id INTEGER NOT NULL,
			interval_id TEXT NOT NULL,
			root_pitch INTEGER NOT NULL,
			direction TEXT NOT NULL,
			correct INTEGER NOT NULL,
			response_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_session_questions_interval ON session_questions(interval_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func poolTable(pool Pool) (string, error) {
	switch pool {
	case PoolMistakes, PoolSlow:
		return string(pool), nil
	default:
		return "", fmt.Errorf("unknown pool %q", pool)
	}
}

// AddToPool inserts an entry unless one with the same (interval, root) key
// already exists.
func (s *Store) AddToPool(ctx context.Context, pool Pool, entry model.PoolEntry) error {
	table, err := poolTable(pool)
	if err != nil {
		return err
	}
	addedAt := entry.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT OR IGNORE INTO %s (interval_id, root_pitch, direction, added_at) VALUES (?, ?, ?, ?)`, table),
		string(entry.IntervalID), entry.Root, string(entry.Direction), addedAt.Format(time.RFC3339Nano))
	return err
}

// RemoveFromPool deletes the entry with the given (interval, root) key.
// Removing an absent entry is not an error.
func (s *Store) RemoveFromPool(ctx context.Context, pool Pool, intervalID model.IntervalID, root model.Pitch) error {
	table, err := poolTable(pool)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE interval_id = ? AND root_pitch = ?`, table),
		string(intervalID), root)
	return err
}

// ListPool returns all entries of a pool, oldest first.
func (s *Store) ListPool(ctx context.Context, pool Pool) ([]model.PoolEntry, error) {
	table, err := poolTable(pool)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT interval_id, root_pitch, direction, added_at FROM %s ORDER BY added_at ASC`, table))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var entries []model.PoolEntry
	for rows.Next() {
		var entry model.PoolEntry
		var intervalID, direction, addedAt string
		if err := rows.Scan(&intervalID, &entry.Root, &direction, &addedAt); err != nil {
			return nil, err
		}
		entry.IntervalID = model.IntervalID(intervalID)
		entry.Direction = model.Direction(direction)
		parsed, err := time.Parse(time.RFC3339Nano, addedAt)
		if err != nil {
			return nil, err
		}
		entry.AddedAt = parsed
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// CountPool returns the number of entries in a pool.
func (s *Store) CountPool(ctx context.Context, pool Pool) (int, error) {
	table, err := poolTable(pool)
	if err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// InsertSession stores a completed session and its per-question results.
func (s *Store) InsertSession(ctx context.Context, rec model.SessionRecord, results []model.QuestionResult) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (started_at, ended_at, mode, instrument, questions, correct, avg_response_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.StartedAt.Format(time.RFC3339Nano),
		rec.EndedAt.Format(time.RFC3339Nano),
		string(rec.Mode),
		string(rec.Instrument),
		rec.Questions,
		rec.Correct,
		rec.AvgResponseMs,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(results) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO session_questions (session_id, interval_id, root_pitch, direction, correct, response_ms)
			 VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, qr := range results {
			correct := 0
			if qr.Correct {
				correct = 1
			}
			if _, err := stmt.ExecContext(ctx, id, string(qr.IntervalID), qr.Root, string(qr.Direction), correct, qr.ResponseMs); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListSessions returns session aggregates filtered by stats config.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, ended_at, mode, questions, correct, avg_response_ms
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var endedAt, mode string
		if err := rows.Scan(&agg.SessionID, &endedAt, &mode, &agg.Questions, &agg.Correct, &agg.AvgResponseMs); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		agg.Mode = model.SessionMode(mode)
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	return sessions, nil
}

// GetWeakIntervals aggregates per-interval results over the most recent
// sessions.
func (s *Store) GetWeakIntervals(ctx context.Context, window int) ([]model.IntervalAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent_sessions AS (
		SELECT id FROM sessions
		ORDER BY ended_at DESC
		LIMIT ?
	)
	SELECT sq.interval_id,
		SUM(sq.correct) AS correct,
		SUM(1 - sq.correct) AS incorrect,
		SUM(sq.response_ms) AS response_sum_ms,
		COUNT(*) AS response_count
	FROM session_questions sq
	JOIN recent_sessions r ON r.id = sq.session_id
	GROUP BY sq.interval_id`

	rows, err := s.db.QueryContext(ctx, query, window)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.IntervalAggregate
	for rows.Next() {
		var agg model.IntervalAggregate
		var intervalID string
		if err := rows.Scan(&intervalID, &agg.Correct, &agg.Incorrect, &agg.ResponseSumMs, &agg.ResponseCount); err != nil {
			return nil, err
		}
		agg.IntervalID = model.IntervalID(intervalID)
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
