// Package store keeps the client's local state in SQLite: the gateway token
// cookie and the history of provisioning runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"openclaw-setup/internal/domain"
)

// DefaultHistoryLimit is used when ListRuns is called with limit <= 0.
const DefaultHistoryLimit = 20

// Store is the SQLite state database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the state database at path and migrates it.
// The parent directory is created with owner-only permissions.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, domain.NewDomainError("Store.Open", domain.ErrStateStore, err.Error())
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.NewDomainError("Store.Open", domain.ErrStateStore, err.Error())
	}
	// One writer; the poller and a run may both touch the store.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, domain.NewDomainError("Store.Open", domain.ErrStateStore, "set WAL mode: "+err.Error())
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, domain.NewDomainError("Store.Open", domain.ErrStateStore, "migrate: "+err.Error())
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cookies (
			name       TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			path       TEXT NOT NULL DEFAULT '/',
			expires_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			started_at  TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			outcome     TEXT NOT NULL,
			provider    TEXT NOT NULL DEFAULT '',
			auth_choice TEXT NOT NULL DEFAULT '',
			error       TEXT NOT NULL DEFAULT '',
			stages      TEXT NOT NULL DEFAULT '[]'
		);
		CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun implements domain.RunHistory. Recording the same ID twice
// replaces the earlier row.
func (s *Store) RecordRun(ctx context.Context, rec domain.RunRecord) error {
	stages, err := json.Marshal(rec.Stages)
	if err != nil {
		return fmt.Errorf("marshal stages: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, started_at, finished_at, outcome, provider, auth_choice, error, stages)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
		string(rec.Outcome),
		rec.Provider,
		rec.AuthChoice,
		rec.Error,
		string(stages),
	)
	if err != nil {
		return domain.NewDomainError("Store.RecordRun", domain.ErrStateStore, err.Error())
	}
	return nil
}

// ListRuns implements domain.RunHistory, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, outcome, provider, auth_choice, error, stages
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, domain.NewDomainError("Store.ListRuns", domain.ErrStateStore, err.Error())
	}
	defer rows.Close()

	var out []domain.RunRecord
	for rows.Next() {
		var rec domain.RunRecord
		var started, finished, outcome, stages string
		if err := rows.Scan(&rec.ID, &started, &finished, &outcome, &rec.Provider, &rec.AuthChoice, &rec.Error, &stages); err != nil {
			return nil, domain.NewDomainError("Store.ListRuns", domain.ErrStateStore, err.Error())
		}
		rec.Outcome = domain.RunOutcome(outcome)
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		if err := json.Unmarshal([]byte(stages), &rec.Stages); err != nil {
			return nil, fmt.Errorf("unmarshal stages of run %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ domain.RunHistory = (*Store)(nil)
