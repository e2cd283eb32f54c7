// Package state persists build history in SQLite so watch sessions and the
// history command can inspect past cycles. The store is optional; builds
// run fine without one.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/sitegen/internal/site"
)

// Record is one persisted build cycle.
type Record struct {
	BuildID   string
	Trigger   string
	Outcome   string
	StartedAt time.Time
	Duration  time.Duration
	Pages     int
	Assets    int
	Warnings  []string
	Error     string
}

// FromBuildResult maps a finished cycle onto its persisted form.
func FromBuildResult(r *site.BuildResult) Record {
	return Record{
		BuildID:   r.ID.String(),
		Trigger:   r.Trigger,
		Outcome:   r.Outcome,
		StartedAt: r.Start,
		Duration:  r.Duration,
		Pages:     r.Pages,
		Assets:    r.Assets,
		Warnings:  r.Warnings,
		Error:     r.ErrText(),
	}
}

// Store is a SQLite-backed build history.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (creating if needed) the history database at dbPath. Use
// ":memory:" for an ephemeral store.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		triggered_by TEXT NOT NULL,
		outcome TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		pages INTEGER NOT NULL,
		assets INTEGER NOT NULL,
		warnings TEXT,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_builds_build_id ON builds(build_id);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends one build cycle to the history.
func (s *Store) Record(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var warningsJSON []byte
	if len(rec.Warnings) > 0 {
		var err error
		warningsJSON, err = json.Marshal(rec.Warnings)
		if err != nil {
			return fmt.Errorf("marshal warnings: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (build_id, triggered_by, outcome, started_at, duration_ms, pages, assets, warnings, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BuildID, rec.Trigger, rec.Outcome, rec.StartedAt.Unix(), rec.Duration.Milliseconds(),
		rec.Pages, rec.Assets, warningsJSON, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("insert build record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT build_id, triggered_by, outcome, started_at, duration_ms, pages, assets, warnings, error
		 FROM builds ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query build records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var startedUnix, durationMS int64
		var warningsJSON []byte

		err := rows.Scan(&rec.BuildID, &rec.Trigger, &rec.Outcome, &startedUnix, &durationMS,
			&rec.Pages, &rec.Assets, &warningsJSON, &rec.Error)
		if err != nil {
			return nil, fmt.Errorf("scan build record: %w", err)
		}

		rec.StartedAt = time.Unix(startedUnix, 0)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if len(warningsJSON) > 0 {
			if err := json.Unmarshal(warningsJSON, &rec.Warnings); err != nil {
				return nil, fmt.Errorf("unmarshal warnings: %w", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate build records: %w", err)
	}
	return records, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
