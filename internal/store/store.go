// Package store persists loaded issue sources in SQLite so the timeline
// survives restarts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/antigravity-dev/beadsmap/internal/beads"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a source key is not stored.
var ErrNotFound = errors.New("store: source not found")

// Store provides SQLite-backed persistence for beadsmap sources.
type Store struct {
	db *sql.DB
}

// SourceInfo is a stored source without its issue payload.
type SourceInfo struct {
	Key        string    `json:"key"`
	Label      string    `json:"label"`
	Repo       string    `json:"repo,omitempty"`
	SHA        string    `json:"sha,omitempty"`
	Position   int       `json:"position"`
	IssueCount int       `json:"issue_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS sources (
	key TEXT PRIMARY KEY,
	label TEXT NOT NULL DEFAULT '',
	repo TEXT NOT NULL DEFAULT '',
	sha TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL,
	issue_count INTEGER NOT NULL DEFAULT 0,
	issues_jsonl TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_sources_position ON sources(position);
`

// Open creates or opens a SQLite database at the given path and ensures the
// schema exists. ":memory:" opens a private in-memory database.
func Open(dbPath string) (*Store, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("store: create dir for %s: %w", dbPath, err)
		}
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dbPath, err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	s := New(db)
	if err := s.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle. Callers must run EnsureSchema.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the sources table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// PutSource inserts src or replaces the stored source with the same key.
// Replacing keeps the existing position; new keys are appended after the
// current last source.
func (s *Store) PutSource(ctx context.Context, src beads.Source) error {
	if src.Key == "" {
		return fmt.Errorf("store: put source: empty key")
	}
	payload, err := beads.ExportJSONL(src.Issues)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", src.Key, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin put %s: %w", src.Key, err)
	}
	defer tx.Rollback()

	var position int
	err = tx.QueryRowContext(ctx, `SELECT position FROM sources WHERE key = ?`, src.Key).Scan(&position)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM sources`).Scan(&position); err != nil {
			return fmt.Errorf("store: next position: %w", err)
		}
	case err != nil:
		return fmt.Errorf("store: lookup %s: %w", src.Key, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sources (key, label, repo, sha, position, issue_count, issues_jsonl, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET
			label = excluded.label,
			repo = excluded.repo,
			sha = excluded.sha,
			issue_count = excluded.issue_count,
			issues_jsonl = excluded.issues_jsonl,
			updated_at = excluded.updated_at`,
		src.Key, src.Label, src.Repo, src.SHA, position, len(src.Issues), payload,
	)
	if err != nil {
		return fmt.Errorf("store: upsert %s: %w", src.Key, err)
	}
	return tx.Commit()
}

// GetSource loads one source with its issues.
func (s *Store) GetSource(ctx context.Context, key string, now time.Time) (beads.Source, error) {
	var src beads.Source
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT key, label, repo, sha, issues_jsonl FROM sources WHERE key = ?`, key,
	).Scan(&src.Key, &src.Label, &src.Repo, &src.SHA, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return beads.Source{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return beads.Source{}, fmt.Errorf("store: get %s: %w", key, err)
	}
	src.Issues = beads.ParseJSONLString(payload, now)
	return src, nil
}

// ListSources returns source metadata in position order.
func (s *Store) ListSources(ctx context.Context) ([]SourceInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, label, repo, sha, position, issue_count, updated_at FROM sources ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("store: list sources: %w", err)
	}
	defer rows.Close()

	infos := make([]SourceInfo, 0)
	for rows.Next() {
		var info SourceInfo
		if err := rows.Scan(&info.Key, &info.Label, &info.Repo, &info.SHA, &info.Position, &info.IssueCount, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan source: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Sources loads every source with its issues, in position order.
func (s *Store) Sources(ctx context.Context, now time.Time) (beads.Sources, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, label, repo, sha, issues_jsonl FROM sources ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("store: load sources: %w", err)
	}
	defer rows.Close()

	var out beads.Sources
	for rows.Next() {
		var src beads.Source
		var payload string
		if err := rows.Scan(&src.Key, &src.Label, &src.Repo, &src.SHA, &payload); err != nil {
			return nil, fmt.Errorf("store: scan source: %w", err)
		}
		src.Issues = beads.ParseJSONLString(payload, now)
		out = append(out, src)
	}
	return out, rows.Err()
}

// Issues returns the merged issues of every stored source.
func (s *Store) Issues(ctx context.Context, now time.Time) ([]beads.Issue, error) {
	sources, err := s.Sources(ctx, now)
	if err != nil {
		return nil, err
	}
	return sources.Merge(), nil
}

// DeleteSource removes a source. Missing keys return ErrNotFound.
func (s *Store) DeleteSource(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}

// Clear removes every source.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sources`); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	return nil
}
