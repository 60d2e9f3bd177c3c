package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"

	"github.com/romangod6/sitemapgen/internal/models"
	"github.com/romangod6/sitemapgen/internal/pipeline"
)

type CrawlerConfig struct {
	StartURL       string
	SitemapURL     string
	UserAgent      string
	MaxDepth       int
	AllowedDomains []string
	Parallelism    int
	Delay          time.Duration
}

// Crawler builds a file collection from a live site. Every HTML page within
// the allowed domains becomes one record whose path field is its URL path.
type Crawler struct {
	config CrawlerConfig
	base   *url.URL
	log    zerolog.Logger

	mu     sync.Mutex
	pages  map[string]*models.FileRecord
	failed int
}

func NewCrawler(config CrawlerConfig, logger zerolog.Logger) (*Crawler, error) {
	base, err := url.Parse(config.StartURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid start URL %q: scheme and host required", config.StartURL)
	}
	if len(config.AllowedDomains) == 0 {
		config.AllowedDomains = []string{base.Hostname()}
	}
	if config.Parallelism <= 0 {
		config.Parallelism = 2
	}

	return &Crawler{
		config: config,
		base:   base,
		log:    logger,
		pages:  make(map[string]*models.FileRecord),
	}, nil
}

// Hostname returns the site root that crawled paths are relative to.
func (c *Crawler) Hostname() string {
	return c.base.Scheme + "://" + c.base.Host + "/"
}

func (c *Crawler) newCollector(ctx context.Context) *colly.Collector {
	opts := []colly.CollectorOption{
		colly.AllowedDomains(c.config.AllowedDomains...),
		colly.Async(true),
		colly.StdlibContext(ctx),
	}
	if c.config.UserAgent != "" {
		opts = append(opts, colly.UserAgent(c.config.UserAgent))
	}
	if c.config.MaxDepth > 0 {
		opts = append(opts, colly.MaxDepth(c.config.MaxDepth))
	}
	collector := colly.NewCollector(opts...)

	// Set reasonable limits
	collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: c.config.Parallelism,
		RandomDelay: c.config.Delay,
	})
	return collector
}

func (c *Crawler) setupHandlers(collector *colly.Collector) {
	collector.OnHTML("html", func(e *colly.HTMLElement) {
		c.log.Debug().Str("url", e.Request.URL.String()).Msg("Processing URL")
		c.addPage(e)
	})

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" || strings.EqualFold(e.Attr("rel"), "nofollow") {
			return
		}
		_ = e.Request.Visit(link)
	})

	collector.OnError(func(r *colly.Response, err error) {
		c.mu.Lock()
		c.failed++
		c.mu.Unlock()
		c.log.Warn().Err(err).Str("url", r.Request.URL.String()).Int("status", r.StatusCode).Msg("Error visiting page")
	})
}

func (c *Crawler) addPage(e *colly.HTMLElement) {
	path, ok := c.relativePath(e.Request.URL)
	if !ok {
		return
	}

	rec := models.NewFileRecord([]byte(cleanHTML(string(e.Response.Body))))
	rec.Stats = &models.Stats{Size: int64(len(e.Response.Body))}
	applyResponseMeta(e.Response, rec)
	pipeline.ApplyHTMLMeta(e.DOM, rec)
	rec.Set(pipeline.PathKey, path)
	rec.Set("url", e.Request.URL.String())

	key := PageKey(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.pages[key]; !seen {
		c.pages[key] = rec
	}
}

// relativePath returns the URL path relative to the site root.
func (c *Crawler) relativePath(u *url.URL) (string, bool) {
	if !strings.EqualFold(u.Host, c.base.Host) {
		return "", false
	}
	return strings.TrimPrefix(u.EscapedPath(), "/"), true
}

// Crawl visits the site and returns the pages found, ordered by key. Each
// call starts from an empty page set.
func (c *Crawler) Crawl(ctx context.Context) (*models.Files, error) {
	started := time.Now()
	c.mu.Lock()
	c.pages = make(map[string]*models.FileRecord)
	c.failed = 0
	c.mu.Unlock()

	collector := c.newCollector(ctx)
	c.setupHandlers(collector)

	seeds := []string{c.config.StartURL}
	if c.config.SitemapURL != "" {
		locs, err := c.sitemapLocs(ctx)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, locs...)
	}

	for idx, seed := range seeds {
		if err := collector.Visit(seed); err != nil && idx == 0 {
			return nil, fmt.Errorf("failed to visit start URL: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		collector.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		<-done
		return nil, ctx.Err()
	case <-done:
	}

	files, failed := c.collected()
	c.log.Info().
		Int("pages", files.Len()).
		Int("failed", failed).
		Dur("duration", time.Since(started)).
		Msg("Crawl completed")
	return files, nil
}

// sitemapLocs fetches an existing sitemap to seed the crawl.
func (c *Crawler) sitemapLocs(ctx context.Context) ([]string, error) {
	fetcher := colly.NewCollector(colly.StdlibContext(ctx), colly.UserAgent(c.config.UserAgent))

	var (
		locs     []string
		parseErr error
	)
	fetcher.OnResponse(func(r *colly.Response) {
		sm, err := models.ParseSitemap(r.Body)
		if err != nil {
			parseErr = err
			return
		}
		for _, u := range sm.URLs {
			locs = append(locs, u.Loc)
		}
	})
	if err := fetcher.Visit(c.config.SitemapURL); err != nil {
		return nil, fmt.Errorf("failed to fetch sitemap: %w", err)
	}
	if parseErr != nil {
		return nil, fmt.Errorf("failed to parse sitemap: %w", parseErr)
	}
	c.log.Debug().Int("urls", len(locs)).Str("sitemap", c.config.SitemapURL).Msg("Seeded crawl from sitemap")
	return locs, nil
}

func (c *Crawler) collected() (*models.Files, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.pages))
	for k := range c.pages {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	files := models.NewFiles()
	for _, k := range keys {
		files.Set(k, c.pages[k])
	}
	return files, c.failed
}

func applyResponseMeta(r *colly.Response, rec *models.FileRecord) {
	if r.Headers == nil {
		return
	}
	if lm := r.Headers.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			rec.Stats.Mtime = t.UTC()
		}
	}
	if robots := r.Headers.Get("X-Robots-Tag"); strings.Contains(strings.ToLower(robots), "noindex") {
		rec.Private = true
	}
}
