package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/romangod6/sitemapgen/config"
	"github.com/romangod6/sitemapgen/internal/builder"
	"github.com/romangod6/sitemapgen/internal/crawler"
	"github.com/romangod6/sitemapgen/internal/metrics"
	"github.com/romangod6/sitemapgen/internal/pipeline"
	"github.com/romangod6/sitemapgen/internal/sitemap"
	"github.com/romangod6/sitemapgen/internal/storage"
	"github.com/romangod6/sitemapgen/internal/utils"
)

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	log     *utils.RunLogger
	store   storage.Store
	metrics *metrics.Recorder
}

func newApp(g *Globals, name string) (*app, error) {
	cfg, err := config.LoadConfig(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Verbose {
		cfg.Log.Level = "debug"
	}
	if g.LogFile {
		cfg.Log.File = true
	}

	logger, err := utils.NewRunLogger(name, cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: logger}, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close store")
		}
	}
	_ = a.log.Close()
}

// openStore connects the configured run history database.
func (a *app) openStore() error {
	store, err := storage.Open(a.cfg.Database.Driver, a.cfg.Database.URL)
	if err != nil {
		return err
	}
	a.store = store
	a.log.Debug().Str("driver", a.cfg.Database.Driver).Msg("Run history enabled")
	return nil
}

func (a *app) generator() (*sitemap.Generator, error) {
	return sitemap.New(a.cfg.Sitemap.Options, sitemap.WithLogger(a.log.Logger))
}

func (a *app) builderOptions(write bool) []builder.Option {
	opts := []builder.Option{builder.WithLogger(a.log.Logger), builder.WithWrite(write)}
	if a.store != nil {
		opts = append(opts, builder.WithStore(a.store))
	}
	if a.metrics != nil {
		opts = append(opts, builder.WithMetrics(a.metrics))
	}
	return opts
}

// dirBuilder builds from the configured source directory.
func (a *app) dirBuilder(write bool) (*builder.Builder, error) {
	src := a.cfg.Source
	pipe := pipeline.New(src.Dir, src.Destination, a.log.Logger)
	if src.Markdown {
		pipe.Use("markdown", pipeline.Markdown())
	}
	pipe.Use("permalinks", pipeline.Permalinks())
	if src.HTMLMeta {
		pipe.Use("htmlmeta", pipeline.HTMLMeta())
	}
	if src.GitDates {
		pipe.Use("gitdates", pipeline.GitDates())
	}

	gen, err := a.generator()
	if err != nil {
		return nil, err
	}
	return builder.New(src.Dir, builder.DirSource(src.Dir, a.log.Logger), pipe, gen, a.builderOptions(write)...), nil
}

// crawlBuilder builds from the configured start URL. Without a configured
// hostname the crawled site root is used.
func (a *app) crawlBuilder() (*builder.Builder, error) {
	cc := a.cfg.Crawler
	c, err := crawler.NewCrawler(crawler.CrawlerConfig{
		StartURL:       cc.StartURL,
		UserAgent:      cc.UserAgent,
		MaxDepth:       cc.MaxDepth,
		AllowedDomains: cc.AllowedDomains,
		Parallelism:    cc.Parallelism,
		Delay:          a.cfg.GetCrawlDelay(),
	}, a.log.Logger)
	if err != nil {
		return nil, err
	}
	if a.cfg.Sitemap.Hostname == "" {
		a.cfg.Sitemap.Hostname = c.Hostname()
	}

	gen, err := a.generator()
	if err != nil {
		return nil, err
	}
	pipe := pipeline.New("", "", a.log.Logger)
	return builder.New(cc.StartURL, c.Crawl, pipe, gen, a.builderOptions(false)...), nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
