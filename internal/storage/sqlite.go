// Package storage persists preferences and the interaction log in SQLite.
//
// Every mutation runs in a transaction that advances a generation counter
// only if it still holds the value this handle last saw. A second process
// writing the same file therefore surfaces as ErrConcurrentModification
// instead of interleaved sequence numbers.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hb-chen/skillrt/pkg/logger"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const defaultPageSize = 256

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS interaction_log (
	seq       INTEGER PRIMARY KEY,
	command   TEXT NOT NULL,
	skill     TEXT,
	response  TEXT NOT NULL,
	outcome   TEXT NOT NULL CHECK (outcome IN ('ok', 'error', 'no_match', 'cancelled')),
	timestamp TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS store_meta (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	generation INTEGER NOT NULL
);
INSERT OR IGNORE INTO store_meta (id, generation) VALUES (1, 0);
`

// SQLiteStore implements the preference and interaction log store.
type SQLiteStore struct {
	db       *sql.DB
	log      logger.Logger
	now      func() time.Time
	pageSize int

	mu         sync.Mutex
	generation int64
}

// Open opens or creates the store at path. Use MemoryPath for a throwaway
// store.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	log := logger.Named("storage")

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate", path)
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == MemoryPath {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &SQLiteStore{
		db:       db,
		log:      log,
		now:      time.Now,
		pageSize: defaultPageSize,
	}
	if err := s.resync(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Debugf("Opened store at %s (generation=%d)", path, s.generation)
	return s, nil
}

// Close closes the store and releases any resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) resync(ctx context.Context) error {
	var gen int64
	if err := s.db.QueryRowContext(ctx, "SELECT generation FROM store_meta WHERE id = 1").Scan(&gen); err != nil {
		return persistErr("read generation", err)
	}
	s.generation = gen
	return nil
}

// mutate runs fn in a transaction guarded by the generation check.
func (s *SQLiteStore) mutate(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr(op, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE store_meta SET generation = generation + 1 WHERE id = 1 AND generation = ?",
		s.generation,
	)
	if err != nil {
		return persistErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr(op, err)
	}
	if n == 0 {
		tx.Rollback()
		if err := s.resync(ctx); err != nil {
			s.log.Errorf("Resync after conflict failed: %v", err)
		}
		s.log.Warnf("Write conflict during %s, store resynchronized at generation %d", op, s.generation)
		return fmt.Errorf("%w: %s", ErrConcurrentModification, op)
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return persistErr(op, err)
	}
	s.generation++
	return nil
}

// GetPreference returns the value for key and whether it is set.
func (s *SQLiteStore) GetPreference(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, persistErr("get preference", err)
	}
	return value, true, nil
}

// SetPreference upserts key, overwriting any previous value.
func (s *SQLiteStore) SetPreference(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("preference key cannot be empty")
	}
	return s.mutate(ctx, "set preference", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, s.now().UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return persistErr("set preference", err)
		}
		return nil
	})
}

// UnsetPreference deletes key. It reports whether the key existed.
func (s *SQLiteStore) UnsetPreference(ctx context.Context, key string) (bool, error) {
	var existed bool
	err := s.mutate(ctx, "unset preference", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM preferences WHERE key = ?", key)
		if err != nil {
			return persistErr("unset preference", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return persistErr("unset preference", err)
		}
		existed = n > 0
		return nil
	})
	return existed, err
}

// Preferences returns a snapshot of every preference.
func (s *SQLiteStore) Preferences(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM preferences")
	if err != nil {
		return nil, persistErr("list preferences", err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, persistErr("list preferences", err)
		}
		prefs[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list preferences", err)
	}
	return prefs, nil
}

// AppendLog assigns the next sequence number to e and persists it. The
// stored entry is returned.
func (s *SQLiteStore) AppendLog(ctx context.Context, e LogEntry) (LogEntry, error) {
	if !e.Outcome.Valid() {
		return LogEntry{}, fmt.Errorf("%w: outcome %q", ErrInvalidEntry, e.Outcome)
	}
	if e.At.IsZero() {
		e.At = s.now()
	}
	e.At = e.At.UTC()

	err := s.mutate(ctx, "append log", func(tx *sql.Tx) error {
		var last int64
		if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM interaction_log").Scan(&last); err != nil {
			return persistErr("append log", err)
		}
		e.Seq = last + 1

		var skillName sql.NullString
		if e.Skill != "" {
			skillName = sql.NullString{String: e.Skill, Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO interaction_log (seq, command, skill, response, outcome, timestamp)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			e.Seq, e.Command, skillName, e.Response, string(e.Outcome), e.At.Format(time.RFC3339Nano),
		)
		if err != nil {
			return persistErr("append log", err)
		}
		return nil
	})
	if err != nil {
		return LogEntry{}, err
	}
	return e, nil
}

// ReadLog yields entries with sequence numbers greater than since, in order.
// Rows are fetched page by page and no connection is held while the caller
// handles an entry. Ranging again re-reads the log.
func (s *SQLiteStore) ReadLog(ctx context.Context, since int64) iter.Seq2[LogEntry, error] {
	return func(yield func(LogEntry, error) bool) {
		cursor := since
		for {
			page, err := s.readPage(ctx, cursor, s.pageSize)
			if err != nil {
				yield(LogEntry{}, err)
				return
			}
			for _, e := range page {
				if !yield(e, nil) {
					return
				}
				cursor = e.Seq
			}
			if len(page) < s.pageSize {
				return
			}
		}
	}
}

// RecentLog returns the last limit entries, oldest first.
func (s *SQLiteStore) RecentLog(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, command, skill, response, outcome, timestamp
		 FROM interaction_log ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, persistErr("recent log", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (s *SQLiteStore) readPage(ctx context.Context, after int64, limit int) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, command, skill, response, outcome, timestamp
		 FROM interaction_log WHERE seq > ? ORDER BY seq LIMIT ?`, after, limit)
	if err != nil {
		return nil, persistErr("read log", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]LogEntry, error) {
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var (
			e         LogEntry
			skillName sql.NullString
			outcome   string
			ts        string
		)
		if err := rows.Scan(&e.Seq, &e.Command, &skillName, &e.Response, &outcome, &ts); err != nil {
			return nil, persistErr("scan log", err)
		}
		e.Skill = skillName.String
		e.Outcome = Outcome(outcome)
		at, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, persistErr("parse timestamp", err)
		}
		e.At = at
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("read log", err)
	}
	return entries, nil
}
