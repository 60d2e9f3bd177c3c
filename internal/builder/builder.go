// Package builder runs complete sitemap generations: it loads a file
// collection from a source, pushes it through the host pipeline with the
// sitemap generator as the last plugin, and records the outcome.
package builder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/romangod6/sitemapgen/internal/metrics"
	"github.com/romangod6/sitemapgen/internal/models"
	"github.com/romangod6/sitemapgen/internal/pipeline"
	"github.com/romangod6/sitemapgen/internal/sitemap"
	"github.com/romangod6/sitemapgen/internal/storage"
)

// Source produces the file collection of one build.
type Source func(ctx context.Context) (*models.Files, error)

// DirSource reads files from a directory.
func DirSource(dir string, logger zerolog.Logger) Source {
	return func(ctx context.Context) (*models.Files, error) {
		return pipeline.Read(ctx, dir, logger)
	}
}

// Result is the outcome of a successful build.
type Result struct {
	Run      *models.Run
	Report   *sitemap.Report
	Document []byte
	Entries  []models.URL
	Files    *models.Files
}

type Builder struct {
	name    string
	source  Source
	pipe    *pipeline.Pipeline
	gen     *sitemap.Generator
	store   storage.Store
	metrics *metrics.Recorder
	log     zerolog.Logger
	write   bool

	// mu serializes builds.
	mu     sync.Mutex
	report *sitemap.Report

	latestMu sync.RWMutex
	latest   *Result
}

type Option func(*Builder)

// WithStore records every run and its entries.
func WithStore(store storage.Store) Option {
	return func(b *Builder) { b.store = store }
}

// WithMetrics records run metrics.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(b *Builder) { b.metrics = recorder }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(b *Builder) { b.log = logger }
}

// WithWrite writes the whole collection to the pipeline destination after
// each successful build.
func WithWrite(write bool) Option {
	return func(b *Builder) { b.write = write }
}

// New creates a builder named after its source. The generator is appended
// to pipe as its final plugin.
func New(name string, source Source, pipe *pipeline.Pipeline, gen *sitemap.Generator, opts ...Option) *Builder {
	b := &Builder{
		name:   name,
		source: source,
		pipe:   pipe,
		gen:    gen,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	pipe.Use("sitemap", b.sitemapPlugin())
	return b
}

func (b *Builder) sitemapPlugin() pipeline.Plugin {
	return func(files *models.Files, _ *pipeline.Pipeline, done func(error)) {
		report, err := b.gen.Run(files)
		b.report = report
		done(err)
	}
}

// Latest returns the result of the most recent successful build, or nil.
func (b *Builder) Latest() *Result {
	b.latestMu.RLock()
	defer b.latestMu.RUnlock()
	return b.latest
}

// Build runs one generation.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := b.gen.Options()
	run := models.NewRun(b.name, opts.Hostname)
	run.Output = opts.Output
	b.createRun(ctx, run)

	start := time.Now()
	result, err := b.build(ctx, run)
	b.metrics.ObserveRun(time.Since(start), err)

	run.Finish(err)
	b.finishRun(ctx, run, result)

	if err != nil {
		b.log.Error().Err(err).Str("run", run.ID.String()).Msg("Build failed")
		return nil, err
	}

	b.metrics.ObserveDocument(result.Report.Entries, result.Report.Bytes, result.Report.Skipped)
	b.latestMu.Lock()
	b.latest = result
	b.latestMu.Unlock()

	b.log.Info().
		Str("run", run.ID.String()).
		Int("entries", run.Entries).
		Dur("duration", time.Since(start)).
		Msg("Build completed")
	return result, nil
}

func (b *Builder) build(ctx context.Context, run *models.Run) (*Result, error) {
	b.report = nil

	files, err := b.source(ctx)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	if err := b.pipe.Run(ctx, files); err != nil {
		return nil, err
	}
	if b.report == nil {
		return nil, fmt.Errorf("sitemap plugin did not run")
	}

	rec, ok := files.Get(b.report.Output)
	if !ok {
		return nil, fmt.Errorf("output %s missing after build", b.report.Output)
	}

	result := &Result{
		Run:      run,
		Report:   b.report,
		Document: rec.Contents,
		Files:    files,
	}
	if sm, err := models.ParseSitemap(rec.Contents); err == nil {
		result.Entries = sm.URLs
	} else {
		b.log.Debug().Err(err).Msg("Generated document is not a urlset, entries not indexed")
	}

	run.Entries = b.report.Entries
	run.Skipped = b.report.Skipped

	if b.write && b.pipe.Destination() != "" {
		if err := pipeline.Write(b.pipe.Destination(), files); err != nil {
			return nil, fmt.Errorf("write destination: %w", err)
		}
	}
	return result, nil
}

func (b *Builder) createRun(ctx context.Context, run *models.Run) {
	if b.store == nil {
		return
	}
	if err := b.store.CreateRun(ctx, run); err != nil {
		b.log.Warn().Err(err).Msg("Failed to record run")
	}
}

func (b *Builder) finishRun(ctx context.Context, run *models.Run, result *Result) {
	if b.store == nil {
		return
	}
	if err := b.store.UpdateRun(ctx, run); err != nil {
		b.log.Warn().Err(err).Msg("Failed to update run")
		return
	}
	if result != nil && len(result.Entries) > 0 {
		if err := b.store.SaveEntries(ctx, run.ID, result.Entries); err != nil {
			b.log.Warn().Err(err).Msg("Failed to record entries")
		}
	}
}
