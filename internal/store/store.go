// Package store is the persistence collaborator: a SQLite-backed
// document store for specifications, plus per-run stage snapshots so a
// crashed pipeline can resume from its last completed stage.
//
// Writes are serialized per document id via optimistic versioning:
// every Save names the version it read, and a concurrent writer gets
// ErrVersionConflict instead of silently clobbering. The orchestrator
// assumes at most one writer per document and relies on this check.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/HendryAvila/specforge/internal/spec"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Sentinel errors callers branch on.
var (
	ErrNotFound        = errors.New("store: not found")
	ErrVersionConflict = errors.New("store: version conflict")
)

// Metadata is free-form run metadata persisted alongside a document
// (analysis traces, versioning tags).
type Metadata map[string]string

// Summary is a compact listing view of a stored specification.
type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Domain    string `json:"domain,omitempty"`
	Version   int64  `json:"version"`
	UpdatedAt string `json:"updated_at"`
	Models    int    `json:"models"`
	Actions   int    `json:"actions"`
	Schedules int    `json:"schedules"`
}

// Store defines the persistence interface the pipeline and tools
// depend on. Abstracted for testability (DIP).
type Store interface {
	// Get loads a specification and the version to pass back to Save.
	// Returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (*spec.Specification, int64, error)
	// Save persists a specification. expectedVersion must be the
	// version returned by Get (0 for a new document); on mismatch the
	// write is rejected with ErrVersionConflict. Returns the new version.
	Save(ctx context.Context, id string, s *spec.Specification, expectedVersion int64, meta Metadata) (int64, error)
	// List returns summaries of all stored specifications.
	List(ctx context.Context) ([]Summary, error)
	// SaveSnapshot records the accumulated pipeline state after a stage.
	SaveSnapshot(ctx context.Context, runID, stage string, payload []byte) error
	// LatestSnapshot returns the most recent snapshot for a run, or
	// ErrNotFound when the run has none.
	LatestSnapshot(ctx context.Context, runID string) (stage string, payload []byte, err error)
}

// --- Config ---

// Config holds store configuration.
type Config struct {
	DataDir string
}

// DefaultConfig places the database under ~/.specforge.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".specforge")}
}

// --- SQLite implementation ---

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// New creates the data directory if needed, opens SQLite with WAL
// mode, and runs migrations.
func New(cfg Config) (*SQLiteStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "specforge.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS specifications (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			domain     TEXT,
			body       TEXT NOT NULL,
			meta       TEXT,
			version    INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS snapshots (
			run_id     TEXT NOT NULL,
			stage      TEXT NOT NULL,
			payload    TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (run_id, stage)
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_run
			ON snapshots(run_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*spec.Specification, int64, error) {
	var body string
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT body, version FROM specifications WHERE id = ?`, id,
	).Scan(&body, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("store: get %q: %w", id, err)
	}

	var doc spec.Specification
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, 0, fmt.Errorf("store: decode %q: %w", id, err)
	}
	return &doc, version, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, id string, doc *spec.Specification, expectedVersion int64, meta Metadata) (int64, error) {
	if doc == nil {
		return 0, fmt.Errorf("store: save %q: nil specification", id)
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("store: encode %q: %w", id, err)
	}
	metaJSON := "{}"
	if len(meta) > 0 {
		m, err := json.Marshal(meta)
		if err != nil {
			return 0, fmt.Errorf("store: encode metadata for %q: %w", id, err)
		}
		metaJSON = string(m)
	}

	now := timeNow().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin save %q: %w", id, err)
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM specifications WHERE id = ?`, id,
	).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if expectedVersion != 0 {
			return 0, fmt.Errorf("%w: document %q does not exist but expected version %d", ErrVersionConflict, id, expectedVersion)
		}
		createdAt := doc.CreatedAt
		if createdAt == "" {
			createdAt = now
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO specifications (id, name, domain, body, meta, version, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
			id, doc.Name, doc.Domain, string(body), metaJSON, createdAt, now)
		if err != nil {
			return 0, fmt.Errorf("store: insert %q: %w", id, err)
		}
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("store: commit %q: %w", id, err)
		}
		return 1, nil
	case err != nil:
		return 0, fmt.Errorf("store: read version of %q: %w", id, err)
	}

	if current != expectedVersion {
		return 0, fmt.Errorf("%w: document %q is at version %d, save expected %d", ErrVersionConflict, id, current, expectedVersion)
	}

	next := current + 1
	_, err = tx.ExecContext(ctx,
		`UPDATE specifications SET name = ?, domain = ?, body = ?, meta = ?, version = ?, updated_at = ?
		 WHERE id = ?`,
		doc.Name, doc.Domain, string(body), metaJSON, next, now, id)
	if err != nil {
		return 0, fmt.Errorf("store: update %q: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit %q: %w", id, err)
	}
	return next, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, body, version, updated_at FROM specifications ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var id, body, updatedAt string
		var version int64
		if err := rows.Scan(&id, &body, &version, &updatedAt); err != nil {
			return nil, fmt.Errorf("store: list scan: %w", err)
		}
		var doc spec.Specification
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("store: decode %q: %w", id, err)
		}
		out = append(out, Summary{
			ID:        id,
			Name:      doc.Name,
			Domain:    doc.Domain,
			Version:   version,
			UpdatedAt: updatedAt,
			Models:    len(doc.Models),
			Actions:   len(doc.Actions),
			Schedules: len(doc.Schedules),
		})
	}
	return out, rows.Err()
}

// SaveSnapshot implements Store. One row per (run, stage); re-running a
// stage overwrites its snapshot.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, runID, stage string, payload []byte) error {
	now := timeNow().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (run_id, stage, payload, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (run_id, stage) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		runID, stage, string(payload), now)
	if err != nil {
		return fmt.Errorf("store: snapshot %s/%s: %w", runID, stage, err)
	}
	return nil
}

// LatestSnapshot implements Store.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context, runID string) (string, []byte, error) {
	var stage, payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT stage, payload FROM snapshots
		 WHERE run_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT 1`, runID,
	).Scan(&stage, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("store: latest snapshot for %q: %w", runID, err)
	}
	return stage, []byte(payload), nil
}
