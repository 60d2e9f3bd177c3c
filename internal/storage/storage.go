package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/romangod6/sitemapgen/internal/models"
)

// Store persists generation runs and the entries each run produced.
// Get methods return nil and no error when the record does not exist.
type Store interface {
	Initialize() error
	Close() error

	// Run operations
	CreateRun(ctx context.Context, run *models.Run) error
	UpdateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, error)

	// Entry operations
	SaveEntries(ctx context.Context, runID uuid.UUID, entries []models.URL) error
	ListEntries(ctx context.Context, runID uuid.UUID, limit, offset int) ([]models.URL, error)
}

// Open connects to the store for driver ("sqlite" or "postgres") and
// creates its schema.
func Open(driver, dsn string) (Store, error) {
	var (
		store Store
		err   error
	)
	switch driver {
	case "sqlite", "sqlite3", "":
		store, err = NewSQLiteStore(dsn)
	case "postgres", "postgresql":
		store, err = NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func encodeSkipped(skipped map[string]int) (string, error) {
	if len(skipped) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(skipped)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeSkipped(raw string) map[string]int {
	skipped := make(map[string]int)
	if raw == "" {
		return skipped
	}
	_ = json.Unmarshal([]byte(raw), &skipped)
	return skipped
}
