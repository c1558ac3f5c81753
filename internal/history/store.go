// Package history keeps a SQLite log of finished recordings.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Entry is one finished recording.
type Entry struct {
	ID         int64
	SessionID  string
	StartedAt  time.Time
	EndedAt    time.Time
	Duration   time.Duration
	OutputPath string
	Command    string
	Clean      bool
	Forced     bool
	Warning    string
	Error      string
}

// Store wraps SQLite access for recording history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// one writer at a time keeps SQLite from reporting SQLITE_BUSY
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recordings (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			output_path TEXT NOT NULL,
			command TEXT NOT NULL,
			clean INTEGER NOT NULL,
			forced INTEGER NOT NULL,
			warning TEXT NOT NULL,
			error TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_recordings_ended_at ON recordings(ended_at);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// Insert stores a finished recording and returns its row id.
func (s *Store) Insert(ctx context.Context, e Entry) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings (session_id, started_at, ended_at, duration_ms, output_path, command, clean, forced, warning, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID,
		e.StartedAt.UTC().Format(time.RFC3339Nano),
		e.EndedAt.UTC().Format(time.RFC3339Nano),
		e.Duration.Milliseconds(),
		e.OutputPath,
		e.Command,
		e.Clean,
		e.Forced,
		e.Warning,
		e.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert recording %s: %w", e.SessionID, err)
	}

	return res.LastInsertId()
}

// List returns up to limit recordings, newest first. A limit of zero or less
// returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, started_at, ended_at, duration_ms, output_path, command, clean, forced, warning, error
		 FROM recordings
		 ORDER BY ended_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recordings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e              Entry
			started, ended string
			durationMs     int64
		)

		if err := rows.Scan(&e.ID, &e.SessionID, &started, &ended, &durationMs, &e.OutputPath,
			&e.Command, &e.Clean, &e.Forced, &e.Warning, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan recording: %w", err)
		}

		if e.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("bad started_at for %s: %w", e.SessionID, err)
		}
		if e.EndedAt, err = time.Parse(time.RFC3339Nano, ended); err != nil {
			return nil, fmt.Errorf("bad ended_at for %s: %w", e.SessionID, err)
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
