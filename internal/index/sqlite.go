// Package index maintains a sqlite-backed registry of past debates so the
// CLI and the read API can list and resolve deliberations without walking
// the whole store.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hugo-lorenzo-mato/consilium/internal/core"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS debates (
	task_id              TEXT PRIMARY KEY,
	task                 TEXT NOT NULL,
	status               TEXT NOT NULL,
	consensus_percentage REAL NOT NULL DEFAULT 0,
	total_rounds         INTEGER NOT NULL DEFAULT 0,
	created_at           TIMESTAMP NOT NULL,
	updated_at           TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_debates_updated ON debates(updated_at DESC);
`

// Entry is one indexed debate.
type Entry struct {
	TaskID              string    `json:"task_id"`
	Task                string    `json:"task"`
	Status              string    `json:"status"`
	ConsensusPercentage float64   `json:"consensus_percentage"`
	TotalRounds         int       `json:"total_rounds"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// DebateIndex is the sqlite-backed registry.
type DebateIndex struct {
	db *sql.DB
}

// Open opens (creating if needed) the index at dbPath.
func Open(dbPath string) (*DebateIndex, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying index schema: %w", err)
	}
	return &DebateIndex{db: db}, nil
}

// Close releases the database handle.
func (i *DebateIndex) Close() error {
	return i.db.Close()
}

// Record upserts a debate's terminal (or running) state.
func (i *DebateIndex) Record(ctx context.Context, entry Entry) error {
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	_, err := i.db.ExecContext(ctx, `
		INSERT INTO debates (task_id, task, status, consensus_percentage, total_rounds, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			status = excluded.status,
			consensus_percentage = excluded.consensus_percentage,
			total_rounds = excluded.total_rounds,
			updated_at = excluded.updated_at`,
		entry.TaskID, entry.Task, entry.Status, entry.ConsensusPercentage,
		entry.TotalRounds, entry.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("recording debate %s: %w", entry.TaskID, err)
	}
	return nil
}

// RecordDossier indexes a finished debate from its dossier.
func (i *DebateIndex) RecordDossier(ctx context.Context, task string, dossier *core.FinalDossier) error {
	return i.Record(ctx, Entry{
		TaskID:              dossier.TaskID,
		Task:                task,
		Status:              string(dossier.Status),
		ConsensusPercentage: dossier.ConsensusPercentage,
		TotalRounds:         dossier.TotalRounds,
	})
}

// Get returns one debate by exact task id.
func (i *DebateIndex) Get(ctx context.Context, taskID string) (*Entry, error) {
	row := i.db.QueryRowContext(ctx, `
		SELECT task_id, task, status, consensus_percentage, total_rounds, created_at, updated_at
		FROM debates WHERE task_id = ?`, taskID)

	var e Entry
	err := row.Scan(&e.TaskID, &e.Task, &e.Status, &e.ConsensusPercentage,
		&e.TotalRounds, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading debate %s: %w", taskID, err)
	}
	return &e, nil
}

// List returns debates, most recently updated first.
func (i *DebateIndex) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := i.db.QueryContext(ctx, `
		SELECT task_id, task, status, consensus_percentage, total_rounds, created_at, updated_at
		FROM debates ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing debates: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.TaskID, &e.Task, &e.Status, &e.ConsensusPercentage,
			&e.TotalRounds, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning debate row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes a debate from the index.
func (i *DebateIndex) Delete(ctx context.Context, taskID string) error {
	_, err := i.db.ExecContext(ctx, `DELETE FROM debates WHERE task_id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("deleting debate %s: %w", taskID, err)
	}
	return nil
}
