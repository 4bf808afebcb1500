// Copyright 2025 Oskar Olofsson
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package history keeps a local journal of upload sessions in SQLite. The
// journal is diagnostic: it records how far each session got and how it
// ended, so a support conversation about "my upload disappeared" has
// something to look at. The analysis results themselves live on the backend.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SessionRecord is one journaled upload session.
type SessionRecord struct {
	ID         string    `json:"id"`
	AnalysisID string    `json:"analysis_id,omitempty"`
	Phase      string    `json:"phase"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store is the SQLite-backed session journal.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	analysis_id TEXT NOT NULL DEFAULT '',
	phase       TEXT NOT NULL DEFAULT 'idle',
	status      TEXT NOT NULL DEFAULT 'open',
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions (started_at DESC);
`

// Open opens or creates the journal database at the given path and ensures
// the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session journal: %w", err)
	}
	// SQLite allows one writer; the journal is written from callbacks on
	// several goroutines.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing session journal: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Begin journals a new open session.
func (s *Store) Begin(ctx context.Context, id string, startedAt time.Time) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, updated_at) VALUES (?, ?, ?)`,
		id, startedAt.UTC(), now)
	if err != nil {
		return fmt.Errorf("journaling session start: %w", err)
	}
	return nil
}

// SetAnalysisID attaches the backend-assigned analysis identifier.
func (s *Store) SetAnalysisID(ctx context.Context, id, analysisID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET analysis_id = ?, updated_at = ? WHERE id = ?`,
		analysisID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("journaling analysis id: %w", err)
	}
	return nil
}

// SetPhase records the furthest phase the session reached.
func (s *Store) SetPhase(ctx context.Context, id, phase string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET phase = ?, updated_at = ? WHERE id = ?`,
		phase, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("journaling session phase: %w", err)
	}
	return nil
}

// Finish closes the session with a terminal status and optional error text.
func (s *Store) Finish(ctx context.Context, id, status, errText string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		status, errText, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("journaling session end: %w", err)
	}
	return nil
}

// List returns the most recent sessions, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, analysis_id, phase, status, error, started_at, updated_at
		 FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.ID, &rec.AnalysisID, &rec.Phase, &rec.Status, &rec.Error, &rec.StartedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
