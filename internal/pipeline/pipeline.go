// Package pipeline is a small Metalsmith-style build host: a source is read
// into an ordered file collection, plugins transform it in sequence, and the
// result is written to a destination directory.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/romangod6/sitemapgen/internal/models"
)

// ErrNoCompletion is returned when a plugin returns without calling done.
var ErrNoCompletion = errors.New("plugin returned without signalling completion")

// Plugin transforms the file collection and reports the outcome through done
// exactly once before returning.
type Plugin func(files *models.Files, p *Pipeline, done func(error))

type namedPlugin struct {
	name   string
	plugin Plugin
}

// Pipeline runs plugins over a file collection.
type Pipeline struct {
	source      string
	destination string
	plugins     []namedPlugin
	metadata    map[string]any
	log         zerolog.Logger
}

// New creates a pipeline reading from source and writing to destination.
func New(source, destination string, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		source:      source,
		destination: destination,
		metadata:    make(map[string]any),
		log:         logger,
	}
}

// Use appends a plugin.
func (p *Pipeline) Use(name string, plugin Plugin) *Pipeline {
	p.plugins = append(p.plugins, namedPlugin{name: name, plugin: plugin})
	return p
}

// Source returns the source directory.
func (p *Pipeline) Source() string { return p.source }

// Destination returns the destination directory.
func (p *Pipeline) Destination() string { return p.destination }

// Metadata is global build metadata shared between plugins.
func (p *Pipeline) Metadata() map[string]any { return p.metadata }

// Logger returns the pipeline logger.
func (p *Pipeline) Logger() zerolog.Logger { return p.log }

// Run applies all plugins in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context, files *models.Files) error {
	for _, np := range p.plugins {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		if err := p.runPlugin(np, files); err != nil {
			p.log.Error().Err(err).Str("plugin", np.name).Msg("Plugin failed")
			return fmt.Errorf("plugin %s: %w", np.name, err)
		}
		p.log.Debug().
			Str("plugin", np.name).
			Int("files", files.Len()).
			Dur("duration", time.Since(start)).
			Msg("Plugin completed")
	}
	return nil
}

func (p *Pipeline) runPlugin(np namedPlugin, files *models.Files) error {
	var (
		called bool
		result error
	)
	np.plugin(files, p, func(err error) {
		if called {
			p.log.Warn().Str("plugin", np.name).Msg("Plugin signalled completion more than once")
			return
		}
		called = true
		result = err
	})
	if !called {
		return ErrNoCompletion
	}
	return result
}

// Process reads the source directory and runs the plugins.
func (p *Pipeline) Process(ctx context.Context) (*models.Files, error) {
	files, err := Read(ctx, p.source, p.log)
	if err != nil {
		return nil, err
	}
	if err := p.Run(ctx, files); err != nil {
		return nil, err
	}
	return files, nil
}

// Build processes the source and writes the result to the destination.
func (p *Pipeline) Build(ctx context.Context) (*models.Files, error) {
	files, err := p.Process(ctx)
	if err != nil {
		return nil, err
	}
	if err := Write(p.destination, files); err != nil {
		return nil, err
	}
	p.log.Info().Int("files", files.Len()).Str("destination", p.destination).Msg("Build written")
	return files, nil
}

// Sync wraps a plain function as a Plugin.
func Sync(fn func(files *models.Files, p *Pipeline) error) Plugin {
	return func(files *models.Files, p *Pipeline, done func(error)) {
		done(fn(files, p))
	}
}
