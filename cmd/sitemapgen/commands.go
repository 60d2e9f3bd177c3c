package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/romangod6/sitemapgen/internal/api"
	"github.com/romangod6/sitemapgen/internal/builder"
	"github.com/romangod6/sitemapgen/internal/checker"
	"github.com/romangod6/sitemapgen/internal/metrics"
)

type BuildCmd struct {
	Source      string `arg:"" optional:"" help:"Source directory (overrides source.dir)" type:"path"`
	Destination string `short:"o" help:"Destination directory (overrides source.destination)" type:"path"`
	Hostname    string `short:"H" help:"Site hostname, e.g. https://example.com/"`
	DryRun      bool   `help:"Print the sitemap to stdout instead of writing the destination"`
	History     bool   `help:"Record the run in the configured database"`
}

func (c *BuildCmd) Run(g *Globals) error {
	a, err := newApp(g, "build")
	if err != nil {
		return err
	}
	defer a.Close()

	if c.Source != "" {
		a.cfg.Source.Dir = c.Source
	}
	if c.Destination != "" {
		a.cfg.Source.Destination = c.Destination
	}
	if c.Hostname != "" {
		a.cfg.Sitemap.Hostname = c.Hostname
	}
	if c.History {
		if err := a.openStore(); err != nil {
			return err
		}
	}

	b, err := a.dirBuilder(!c.DryRun)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := b.Build(ctx)
	if err != nil {
		return err
	}
	if c.DryRun {
		_, err = os.Stdout.Write(result.Document)
		return err
	}
	return nil
}

type CrawlCmd struct {
	URL      string `arg:"" optional:"" help:"Start URL (overrides crawler.startURL)"`
	Out      string `short:"o" help:"File to write the sitemap to" default:"sitemap.xml" type:"path"`
	Depth    int    `help:"Maximum link depth (overrides crawler.maxDepth)"`
	Hostname string `short:"H" help:"Hostname used in the sitemap (default: crawled site root)"`
	History  bool   `help:"Record the run in the configured database"`
}

func (c *CrawlCmd) Run(g *Globals) error {
	a, err := newApp(g, "crawl")
	if err != nil {
		return err
	}
	defer a.Close()

	if c.URL != "" {
		a.cfg.Crawler.StartURL = c.URL
	}
	if c.Depth > 0 {
		a.cfg.Crawler.MaxDepth = c.Depth
	}
	if c.Hostname != "" {
		a.cfg.Sitemap.Hostname = c.Hostname
	}
	if a.cfg.Crawler.StartURL == "" {
		return errors.New("no start URL: pass one or set crawler.startURL")
	}
	if c.History {
		if err := a.openStore(); err != nil {
			return err
		}
	}

	b, err := a.crawlBuilder()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := b.Build(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.Out, result.Document, 0o644); err != nil {
		return fmt.Errorf("write sitemap: %w", err)
	}
	a.log.Info().Str("file", c.Out).Int("entries", result.Report.Entries).Msg("Sitemap written")
	return nil
}

type ServeCmd struct {
	Port      int    `short:"p" help:"Port to listen on (overrides server.port)"`
	Watch     bool   `help:"Rebuild when source files change"`
	Interval  string `help:"Rebuild periodically, e.g. 1h (overrides server.interval)"`
	Crawl     bool   `help:"Build from the crawler instead of the source directory"`
	NoHistory bool   `help:"Do not record runs in the database"`
}

func (c *ServeCmd) Run(g *Globals) error {
	a, err := newApp(g, "serve")
	if err != nil {
		return err
	}
	defer a.Close()

	if c.Port != 0 {
		a.cfg.Server.Port = c.Port
	}
	if c.Interval != "" {
		a.cfg.Server.Interval = c.Interval
	}
	watch := c.Watch || a.cfg.Server.Watch

	if !c.NoHistory {
		if err := a.openStore(); err != nil {
			return err
		}
	}
	a.metrics = metrics.NewRecorder()

	var b *builder.Builder
	if c.Crawl {
		b, err = a.crawlBuilder()
	} else {
		b, err = a.dirBuilder(true)
	}
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if _, err := b.Build(ctx); err != nil {
		a.log.Warn().Err(err).Msg("Initial build failed; serving once a rebuild succeeds")
	}

	if watch && !c.Crawl {
		go func() {
			if err := b.Watch(ctx, a.cfg.Source.Dir, builder.DefaultDebounce); err != nil {
				a.log.Error().Err(err).Msg("Watcher stopped")
			}
		}()
	}
	if interval := a.cfg.GetScheduleInterval(); interval > 0 {
		s, err := b.Schedule(interval)
		if err != nil {
			return err
		}
		defer s.Stop()
	}

	server := api.NewServer(a.cfg.Server.Port, b, a.store, a.metrics, a.log.Logger)
	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Int("port", a.cfg.Server.Port).Msg("Starting API server")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start API server: %w", err)
	case <-ctx.Done():
	}

	a.log.Info().Msg("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("Error shutting down server")
	}
	a.log.Info().Msg("Server shut down gracefully")
	return nil
}

type CheckCmd struct {
	Target string `arg:"" help:"Sitemap file path or URL"`
	Pages  int    `short:"n" help:"Number of listed pages to fetch and inspect"`
}

// ErrCheckFailed is returned when the checked sitemap has issues.
var ErrCheckFailed = errors.New("sitemap check found issues")

func (c *CheckCmd) Run(g *Globals) error {
	a, err := newApp(g, "check")
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	report, err := checker.New(nil, a.log.Logger).Check(ctx, c.Target, c.Pages)
	if err != nil {
		return err
	}
	report.Write(os.Stdout)
	if !report.OK() {
		return ErrCheckFailed
	}
	return nil
}
