// Package kb manages the offline knowledge-base lookup database backing the
// resolver's primary stage. The store is a local SQLite file built once via
// the import path and opened read-mostly during processing runs.
package kb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"vttlink/internal/linking"
)

// Store is the SQLite-backed candidate lookup.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the knowledge-base database and applies
// migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("knowledge base path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure knowledge base directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) applyMigrations(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entities (
			qid   TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			score REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_label ON entities(label COLLATE NOCASE)`,
		`CREATE TABLE IF NOT EXISTS aliases (
			alias TEXT NOT NULL,
			qid   TEXT NOT NULL REFERENCES entities(qid) ON DELETE CASCADE,
			PRIMARY KEY (alias, qid)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_aliases_alias ON aliases(alias COLLATE NOCASE)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

// Lookup returns the ranked candidates whose label or alias matches the
// mention text case-insensitively. Label matches rank before alias-only
// matches; each candidate carries its full alias list so the resolver can
// confirm alias matches itself.
func (s *Store) Lookup(ctx context.Context, text string) ([]linking.Candidate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT qid, label, score, 0 AS rank FROM entities WHERE label = ? COLLATE NOCASE
		UNION
		SELECT e.qid, e.label, e.score, 1 AS rank
		FROM aliases a JOIN entities e ON e.qid = a.qid
		WHERE a.alias = ? COLLATE NOCASE
		ORDER BY rank, qid`,
		text, text)
	if err != nil {
		return nil, fmt.Errorf("query knowledge base: %w", err)
	}
	defer rows.Close()

	var candidates []linking.Candidate
	seen := make(map[string]struct{})
	for rows.Next() {
		var (
			qid, label string
			score      sql.NullFloat64
			rank       int
		)
		if err := rows.Scan(&qid, &label, &score, &rank); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if _, dup := seen[qid]; dup {
			continue
		}
		seen[qid] = struct{}{}
		candidate := linking.Candidate{QID: qid, Label: label, Source: linking.SourceKBLookup}
		if score.Valid {
			value := score.Float64
			candidate.Score = &value
		}
		candidates = append(candidates, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	for i := range candidates {
		aliases, err := s.aliasesFor(ctx, candidates[i].QID)
		if err != nil {
			return nil, err
		}
		candidates[i].Aliases = aliases
	}
	return candidates, nil
}

func (s *Store) aliasesFor(ctx context.Context, qid string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT alias FROM aliases WHERE qid = ? ORDER BY alias`, qid)
	if err != nil {
		return nil, fmt.Errorf("query aliases: %w", err)
	}
	defer rows.Close()

	var aliases []string
	for rows.Next() {
		var alias string
		if err := rows.Scan(&alias); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		aliases = append(aliases, alias)
	}
	return aliases, rows.Err()
}
