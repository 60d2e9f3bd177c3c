// Package sitemap turns a build's file collection into a sitemap document
// and stores it back into the collection.
package sitemap

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/romangod6/sitemapgen/internal/models"
)

// Generator produces sitemap documents from file collections.
type Generator struct {
	opts     *Resolved
	log      zerolog.Logger
	now      Clock
	renderer Renderer
}

// Option customizes a Generator.
type Option func(*Generator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Generator) { g.log = logger }
}

// WithClock replaces time.Now.
func WithClock(now Clock) Option {
	return func(g *Generator) { g.now = now }
}

// WithRenderer replaces the template renderer built from the options.
func WithRenderer(renderer Renderer) Option {
	return func(g *Generator) { g.renderer = renderer }
}

// Report summarizes one run.
type Report struct {
	Entries  int            `json:"entries"`
	Skipped  map[string]int `json:"skipped"`
	Homepage string         `json:"homepage,omitempty"`
	Output   string         `json:"output"`
	Bytes    int            `json:"bytes"`
	Duration time.Duration  `json:"duration"`
}

// New resolves opts and returns a Generator.
func New(opts Options, options ...Option) (*Generator, error) {
	resolved, err := Resolve(opts)
	if err != nil {
		return nil, err
	}

	g := &Generator{
		opts:     resolved,
		log:      zerolog.Nop(),
		now:      time.Now,
		renderer: resolved.renderer,
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Options returns the resolved configuration.
func (g *Generator) Options() *Resolved {
	return g.opts
}

// Run renders the sitemap of files and stores it under the output key. On
// error nothing is written and the run stops at the offending file.
func (g *Generator) Run(files *models.Files) (*Report, error) {
	start := time.Now()
	report := &Report{
		Skipped: make(map[string]int),
		Output:  g.opts.Output,
	}

	var (
		entries  strings.Builder
		homepage *models.FileRecord
		rootLoc  = g.opts.resolveLoc("")
	)

	for _, key := range files.Keys() {
		rec, ok := files.Get(key)
		if !ok || rec == nil {
			continue
		}

		if reason := g.opts.excluded(key, rec); reason != "" {
			g.skip(report, key, reason)
			continue
		}

		rawURL, err := g.opts.urlOf(key, rec)
		if err != nil {
			g.log.Error().Err(err).Str("file", key).Msg("Failed to fetch information for file")
			return nil, err
		}
		modified, err := g.opts.modifiedOf(key, rec)
		if err != nil {
			g.log.Error().Err(err).Str("file", key).Msg("Failed to fetch information for file")
			return nil, err
		}

		if s, isString := rawURL.(string); isString && s == "" {
			homepage = rec
			report.Homepage = key
		}

		ref := urlString(rawURL)
		if ref == "" {
			g.skip(report, key, SkipNoURL)
			continue
		}

		entry := g.opts.fileEntry(ref, modified, rec, g.now)
		if g.opts.OmitRootDuplicate && entry.Loc == rootLoc {
			g.log.Debug().Str("file", key).Str("loc", entry.Loc).Msg("Leaving root location to the root entry")
			continue
		}

		rendered, err := g.renderer.Render(EntryTemplateName, entry.bindings())
		if err != nil {
			return nil, err
		}
		entries.WriteString(rendered)
		report.Entries++
	}

	root := g.opts.rootEntry(homepage, g.now)
	rendered, err := g.renderer.Render(EntryTemplateName, root.bindings())
	if err != nil {
		return nil, err
	}
	entries.WriteString(rendered)
	report.Entries++

	doc, err := g.renderer.Render(SitemapTemplateName, map[string]string{"entries": entries.String()})
	if err != nil {
		return nil, err
	}

	out := models.NewFileRecord([]byte(doc))
	files.Set(g.opts.Output, out)

	report.Bytes = len(doc)
	report.Duration = time.Since(start)
	g.log.Info().
		Int("entries", report.Entries).
		Str("output", report.Output).
		Str("homepage", report.Homepage).
		Dur("duration", report.Duration).
		Msg("Sitemap generated")

	return report, nil
}

// Transform runs the generator with the host pipeline calling convention:
// done is called exactly once, with nil on success.
func (g *Generator) Transform(files *models.Files, _ any, done func(error)) {
	_, err := g.Run(files)
	done(err)
}

func (g *Generator) skip(report *Report, key, reason string) {
	report.Skipped[reason]++
	g.log.Debug().Str("file", key).Str("reason", reason).Msg("Skipping file")
}
