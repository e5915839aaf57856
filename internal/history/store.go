// Package history persists a record of every generation attempt so
// operators can audit what was asked, what the model produced, and how
// many attempts it took.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Record is one generation outcome.
type Record struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Element      string    `json:"element"`
	Prompt       string    `json:"prompt"`
	Status       string    `json:"status"`
	Attempts     int       `json:"attempts"`
	Error        string    `json:"error,omitempty"`
	ArtifactPath string    `json:"artifactPath,omitempty"`
	DurationMS   int64     `json:"durationMs"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Generation outcomes.
const (
	StatusSucceeded = "succeeded"
	StatusRejected  = "rejected"
	StatusFailed    = "failed"
	StatusCached    = "cached"
)

// Store is a SQLite-backed history log.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

// NewStore opens (or creates) the history database. Use ":memory:" for
// an in-memory store.
func NewStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS generations (
		id            TEXT PRIMARY KEY,
		filename      TEXT NOT NULL,
		element       TEXT NOT NULL,
		prompt        TEXT NOT NULL,
		status        TEXT NOT NULL,
		attempts      INTEGER NOT NULL,
		error         TEXT,
		artifact_path TEXT,
		duration_ms   INTEGER NOT NULL,
		created_at    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_generations_filename ON generations(filename);
	CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Append writes one record. A missing ID or timestamp is filled in.
func (s *Store) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generations
		 (id, filename, element, prompt, status, attempts, error, artifact_path, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Filename, rec.Element, rec.Prompt, rec.Status, rec.Attempts,
		rec.Error, rec.ArtifactPath, rec.DurationMS, rec.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("append generation record: %w", err)
	}
	return nil
}

// List returns the most recent records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, element, prompt, status, attempts, error, artifact_path, duration_ms, created_at
		 FROM generations ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ByFilename returns records for one artifact, newest first.
func (s *Store) ByFilename(ctx context.Context, filename string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, element, prompt, status, attempts, error, artifact_path, duration_ms, created_at
		 FROM generations WHERE filename = ? ORDER BY created_at DESC, id`, filename)
	if err != nil {
		return nil, fmt.Errorf("list generations for %q: %w", filename, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var rec Record
		var errText, artifactPath sql.NullString
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.Element, &rec.Prompt, &rec.Status,
			&rec.Attempts, &errText, &artifactPath, &rec.DurationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan generation record: %w", err)
		}
		rec.Error = errText.String
		rec.ArtifactPath = artifactPath.String
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
