package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/romangod6/sitemapgen/internal/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            id TEXT PRIMARY KEY,
            source TEXT NOT NULL,
            hostname TEXT,
            output TEXT,
            status TEXT NOT NULL,
            entries INTEGER NOT NULL DEFAULT 0,
            skipped TEXT,
            error TEXT,
            started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            finished_at DATETIME
        )`,
		`CREATE TABLE IF NOT EXISTS run_entries (
            run_id TEXT NOT NULL,
            position INTEGER NOT NULL,
            loc TEXT NOT NULL,
            lastmod TEXT,
            changefreq TEXT,
            priority TEXT,
            PRIMARY KEY (run_id, position),
            FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
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

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.Run) error {
	query := `
        INSERT INTO runs (id, source, hostname, output, status, entries, skipped, error, started_at, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	skipped, err := encodeSkipped(run.Skipped)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query,
		run.ID.String(),
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

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *models.Run) error {
	query := `
        UPDATE runs
        SET output = ?, status = ?, entries = ?, skipped = ?, error = ?, finished_at = ?
        WHERE id = ?
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
		run.ID.String(),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	query := `
        SELECT id, source, hostname, output, status, entries, skipped, error, started_at, finished_at
        FROM runs
        WHERE id = ?
    `

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, error) {
	query := `
        SELECT id, source, hostname, output, status, entries, skipped, error, started_at, finished_at
        FROM runs
        ORDER BY started_at DESC
        LIMIT ? OFFSET ?
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

func (s *SQLiteStore) SaveEntries(ctx context.Context, runID uuid.UUID, entries []models.URL) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_entries WHERE run_id = ?`, runID.String()); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO run_entries (run_id, position, loc, lastmod, changefreq, priority)
        VALUES (?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, runID.String(), i, e.Loc, e.LastMod, e.ChangeFreq, e.Priority); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListEntries(ctx context.Context, runID uuid.UUID, limit, offset int) ([]models.URL, error) {
	query := `
        SELECT loc, lastmod, changefreq, priority
        FROM run_entries
        WHERE run_id = ?
        ORDER BY position
        LIMIT ? OFFSET ?
    `

	rows, err := s.db.QueryContext(ctx, query, runID.String(), limit, offset)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var (
		run      models.Run
		idStr    string
		hostname sql.NullString
		output   sql.NullString
		skipped  sql.NullString
		errMsg   sql.NullString
		finished sql.NullTime
	)

	err := row.Scan(
		&idStr,
		&run.Source,
		&hostname,
		&output,
		&run.Status,
		&run.Entries,
		&skipped,
		&errMsg,
		&run.StartedAt,
		&finished,
	)
	if err != nil {
		return nil, err
	}

	run.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", idStr, err)
	}
	run.Hostname = hostname.String
	run.Output = output.String
	run.Skipped = decodeSkipped(skipped.String)
	run.Error = errMsg.String
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
