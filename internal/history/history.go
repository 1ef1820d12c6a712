// Package history persists per-repo cycle outcomes to SQLite so that
// status tooling can answer "how did the last few cycles go?" without
// re-running anything.
package history

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed log of repository sync-cycle outcomes.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens (creating if necessary) the history database at dbPath and
// applies any pending migrations.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging history database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts a completed run record and sets its ID.
func (s *Store) RecordRun(r *RunRecord) error {
	const query = `
		INSERT INTO repo_runs (
			repo, started_at, ended_at, network, local_copied,
			corrupted, failed, skipped, metadata_regenerated, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.Exec(query,
		r.Repo, r.StartedAt, r.EndedAt, r.Network, r.LocalCopied,
		r.Corrupted, r.Failed, r.Skipped, r.MetadataRegenerated, r.ErrorMessage)
	if err != nil {
		return fmt.Errorf("inserting repo run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted run id: %w", err)
	}
	r.ID = id
	return nil
}

// RecentRuns returns the most recent runs for repo, newest first, capped
// at limit.
func (s *Store) RecentRuns(repo string, limit int) ([]RunRecord, error) {
	const query = `
		SELECT id, repo, started_at, ended_at, network, local_copied,
		       corrupted, failed, skipped, metadata_regenerated, error_message
		FROM repo_runs
		WHERE repo = ?
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, repo, limit)
	if err != nil {
		return nil, fmt.Errorf("querying repo runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Repo, &r.StartedAt, &r.EndedAt, &r.Network, &r.LocalCopied,
			&r.Corrupted, &r.Failed, &r.Skipped, &r.MetadataRegenerated, &r.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scanning repo run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating repo run rows: %w", err)
	}
	return runs, nil
}
