package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romangod6/sitemapgen/internal/models"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := Open("sqlite", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	run := models.NewRun("src", "https://example.com")
	require.NoError(t, store.CreateRun(ctx, run))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.RunStatusRunning, got.Status)
	assert.Nil(t, got.FinishedAt)
	assert.Empty(t, got.Skipped)

	run.Entries = 3
	run.Output = "sitemap.xml"
	run.Skipped = map[string]int{"private": 2}
	run.Finish(errors.New("boom"))
	require.NoError(t, store.UpdateRun(ctx, run))

	got, err = store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusError, got.Status)
	assert.Equal(t, "boom", got.Error)
	assert.Equal(t, 3, got.Entries)
	assert.Equal(t, map[string]int{"private": 2}, got.Skipped)
	require.NotNil(t, got.FinishedAt)
	assert.WithinDuration(t, *run.FinishedAt, *got.FinishedAt, time.Second)
}

func TestGetRunMissing(t *testing.T) {
	got, err := newTestStore(t).GetRun(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateRunMissing(t *testing.T) {
	err := newTestStore(t).UpdateRun(context.Background(), models.NewRun("src", ""))
	assert.ErrorContains(t, err, "not found")
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	older := models.NewRun("a", "")
	older.StartedAt = time.Now().Add(-time.Hour)
	newer := models.NewRun("b", "")
	require.NoError(t, store.CreateRun(ctx, older))
	require.NoError(t, store.CreateRun(ctx, newer))

	runs, err := store.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)

	runs, err = store.ListRuns(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, older.ID, runs[0].ID)
}

func TestEntriesReplaced(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	run := models.NewRun("src", "")
	require.NoError(t, store.CreateRun(ctx, run))

	require.NoError(t, store.SaveEntries(ctx, run.ID, []models.URL{
		{Loc: "https://example.com/a", LastMod: "2024-01-01"},
		{Loc: "https://example.com/b"},
	}))
	require.NoError(t, store.SaveEntries(ctx, run.ID, []models.URL{
		{Loc: "https://example.com/c", ChangeFreq: "daily", Priority: "0.5"},
	}))

	entries, err := store.ListEntries(ctx, run.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.URL{{Loc: "https://example.com/c", ChangeFreq: "daily", Priority: "0.5"}}, entries)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("mongo", "")
	assert.ErrorContains(t, err, "unsupported")
}
