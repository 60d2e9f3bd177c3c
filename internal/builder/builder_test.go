package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romangod6/sitemapgen/internal/metrics"
	"github.com/romangod6/sitemapgen/internal/models"
	"github.com/romangod6/sitemapgen/internal/pipeline"
	"github.com/romangod6/sitemapgen/internal/sitemap"
	"github.com/romangod6/sitemapgen/internal/storage"
)

var fixedNow = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	target := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte(content), 0o644))
}

func newGenerator(t *testing.T, opts sitemap.Options) *sitemap.Generator {
	t.Helper()
	gen, err := sitemap.New(opts, sitemap.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return gen
}

func TestBuildFromDirectory(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, src, "index.md", "---\nmodified: 2024-01-10\n---\n# Home\n")
	writeFile(t, src, "docs/index.md", "Docs\n")
	writeFile(t, src, "drafts/wip.md", "---\ndraft: true\n---\nWIP\n")

	store, err := storage.Open("sqlite", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	pipe := pipeline.New(src, dst, zerolog.Nop()).
		Use("markdown", pipeline.Markdown()).
		Use("permalinks", pipeline.Permalinks())
	b := New("src", DirSource(src, zerolog.Nop()), pipe,
		newGenerator(t, sitemap.Options{Hostname: "https://example.com/"}),
		WithStore(store), WithMetrics(metrics.NewRecorder()), WithWrite(true))

	result, err := b.Build(context.Background())
	require.NoError(t, err)

	locs := make([]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		locs = append(locs, e.Loc)
	}
	assert.Equal(t, []string{"https://example.com/docs/", "https://example.com/"}, locs)
	assert.Equal(t, 1, result.Report.Skipped[sitemap.SkipDraft])
	assert.Equal(t, 1, result.Report.Skipped[sitemap.SkipNoURL])
	assert.Equal(t, "index.html", result.Report.Homepage)

	info, err := os.Stat(filepath.Join(src, "index.md"))
	require.NoError(t, err)
	assert.Equal(t, info.ModTime().UTC().Format(sitemap.DateLayout), result.Entries[1].LastMod)
	assert.Same(t, result, b.Latest())

	written, err := os.ReadFile(filepath.Join(dst, "sitemap.xml"))
	require.NoError(t, err)
	assert.Equal(t, result.Document, written)

	run, err := store.GetRun(context.Background(), result.Run.ID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.Entries)

	entries, err := store.ListEntries(context.Background(), run.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, result.Entries, entries)
}

func TestBuildFailureRecorded(t *testing.T) {
	store, err := storage.Open("sqlite", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	source := func(context.Context) (*models.Files, error) {
		files := models.NewFiles()
		files.Set("a.html", models.NewFileRecord(nil))
		return files, nil
	}
	broken := sitemap.Func(func(*models.FileRecord) (any, error) {
		return nil, errors.New("no url")
	})

	b := New("memory", source, pipeline.New("", "", zerolog.Nop()),
		newGenerator(t, sitemap.Options{URLProperty: broken}), WithStore(store))

	_, err = b.Build(context.Background())
	require.ErrorIs(t, err, sitemap.ErrExtraction)
	assert.Nil(t, b.Latest())

	runs, err := store.ListRuns(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusError, runs[0].Status)
	assert.Contains(t, runs[0].Error, "no url")
}

func TestBuildSourceError(t *testing.T) {
	source := func(context.Context) (*models.Files, error) { return nil, errors.New("offline") }
	b := New("memory", source, pipeline.New("", "", zerolog.Nop()), newGenerator(t, sitemap.Options{}))

	_, err := b.Build(context.Background())
	assert.ErrorContains(t, err, "load source: offline")
}

func TestWatchRebuilds(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "index.html", "<p>home</p>")

	pipe := pipeline.New(src, "", zerolog.Nop()).Use("permalinks", pipeline.Permalinks())
	b := New("src", DirSource(src, zerolog.Nop()), pipe, newGenerator(t, sitemap.Options{Hostname: "https://example.com/"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Watch(ctx, src, 10*time.Millisecond) }()

	n := 0
	require.Eventually(t, func() bool {
		n++
		writeFile(t, src, "page.html", "<p>"+time.Now().String()+"</p>")
		return b.Latest() != nil
	}, 5*time.Second, 50*time.Millisecond)
	assert.Positive(t, n)
}

func TestScheduleRebuilds(t *testing.T) {
	source := func(context.Context) (*models.Files, error) {
		files := models.NewFiles()
		rec := models.NewFileRecord(nil)
		rec.Set("path", "a.html")
		files.Set("a.html", rec)
		return files, nil
	}
	b := New("memory", source, pipeline.New("", "", zerolog.Nop()), newGenerator(t, sitemap.Options{Hostname: "https://example.com/"}))

	s, err := b.Schedule(20 * time.Millisecond)
	require.NoError(t, err)
	defer s.Stop()

	require.Eventually(t, func() bool { return b.Latest() != nil }, 5*time.Second, 10*time.Millisecond)
}

func TestIgnoreEvent(t *testing.T) {
	assert.True(t, ignoreEvent("/a/.hidden"))
	assert.True(t, ignoreEvent("/a/file.swp"))
	assert.True(t, ignoreEvent("/a/file~"))
	assert.False(t, ignoreEvent("/a/index.md"))
}
