package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/romangod6/sitemapgen/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            id UUID PRIMARY KEY,
            source VARCHAR(2048) NOT NULL,
            hostname VARCHAR(2048),
            output VARCHAR(1024),
            status VARCHAR(32) NOT NULL,
            entries INTEGER NOT NULL DEFAULT 0,
            skipped JSONB,
            error TEXT,
            started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            finished_at TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS run_entries (
            run_id UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
            position INTEGER NOT NULL,
            loc VARCHAR(2048) NOT NULL,
            lastmod VARCHAR(32),
            changefreq VARCHAR(16),
            priority VARCHAR(8),
            PRIMARY KEY (run_id, position)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}

	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.Run) error {
	query := `
        INSERT INTO runs (id, source, hostname, output, status, entries, skipped, error, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `

	skipped, err := encodeSkipped(run.Skipped)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query,
		run.ID,
		run.Source,
		run.Hostname,
		run.Output,
		run.Status,
		run.Entries,
		skipped,
		run.Error,
		run.StartedAt,
		run.FinishedAt,
	)
	return err
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *models.Run) error {
	query := `
        UPDATE runs
        SET output = $1, status = $2, entries = $3, skipped = $4, error = $5, finished_at = $6
        WHERE id = $7
    `

	skipped, err := encodeSkipped(run.Skipped)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, query,
		run.Output,
		run.Status,
		run.Entries,
		skipped,
		run.Error,
		run.FinishedAt,
		run.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	query := `
        SELECT id, source, hostname, output, status, entries, skipped, error, started_at, finished_at
        FROM runs
        WHERE id = $1
    `

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, error) {
	query := `
        SELECT id, source, hostname, output, status, entries, skipped, error, started_at, finished_at
        FROM runs
        ORDER BY started_at DESC
        LIMIT $1 OFFSET $2
    `

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveEntries replaces the entries of a run using a COPY stream.
func (s *PostgresStore) SaveEntries(ctx context.Context, runID uuid.UUID, entries []models.URL) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_entries WHERE run_id = $1`, runID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("run_entries", "run_id", "position", "loc", "lastmod", "changefreq", "priority"))
	if err != nil {
		return err
	}

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, runID.String(), i, e.Loc, e.LastMod, e.ChangeFreq, e.Priority); err != nil {
			stmt.Close()
			return err
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return err
	}
	if err := stmt.Close(); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) ListEntries(ctx context.Context, runID uuid.UUID, limit, offset int) ([]models.URL, error) {
	query := `
        SELECT loc, COALESCE(lastmod, ''), COALESCE(changefreq, ''), COALESCE(priority, '')
        FROM run_entries
        WHERE run_id = $1
        ORDER BY position
        LIMIT $2 OFFSET $3
    `

	rows, err := s.db.QueryContext(ctx, query, runID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.URL
	for rows.Next() {
		var e models.URL
		if err := rows.Scan(&e.Loc, &e.LastMod, &e.ChangeFreq, &e.Priority); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
