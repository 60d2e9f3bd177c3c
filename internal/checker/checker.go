// Package checker validates sitemap documents and optionally inspects the
// pages they list.
package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/romangod6/sitemapgen/internal/models"
)

// Issue kinds.
const (
	KindDuplicate  = "duplicate"
	KindLoc        = "loc"
	KindLastmod    = "lastmod"
	KindChangefreq = "changefreq"
	KindPriority   = "priority"
	KindStatus     = "status"
	KindNoindex    = "noindex"
	KindCanonical  = "canonical"
	KindFetch      = "fetch"
)

var changefreqs = map[string]bool{
	"always": true, "hourly": true, "daily": true, "weekly": true,
	"monthly": true, "yearly": true, "never": true,
}

// W3C datetime profiles accepted for lastmod.
var lastmodLayouts = []string{
	"2006",
	"2006-01",
	"2006-01-02",
	"2006-01-02T15:04Z07:00",
	time.RFC3339,
	time.RFC3339Nano,
}

type Issue struct {
	Loc    string `json:"loc"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

type Report struct {
	Source    string  `json:"source"`
	Total     int     `json:"total"`
	Inspected int     `json:"inspected"`
	Issues    []Issue `json:"issues"`
}

// OK reports whether no issue was found.
func (r *Report) OK() bool { return len(r.Issues) == 0 }

// Count returns the number of issues of kind.
func (r *Report) Count(kind string) int {
	n := 0
	for _, i := range r.Issues {
		if i.Kind == kind {
			n++
		}
	}
	return n
}

// Write prints a human-readable summary.
func (r *Report) Write(w io.Writer) {
	fmt.Fprintf(w, "Sitemap: %s\n", r.Source)
	fmt.Fprintf(w, "Total URLs found: %d\n", r.Total)
	if r.Inspected > 0 {
		fmt.Fprintf(w, "Pages inspected: %d\n", r.Inspected)
	}
	if r.OK() {
		fmt.Fprintln(w, "No issues found")
		return
	}
	fmt.Fprintf(w, "Issues: %d\n", len(r.Issues))
	for _, i := range r.Issues {
		fmt.Fprintf(w, "  [%s] %s: %s\n", i.Kind, i.Loc, i.Detail)
	}
}

type Checker struct {
	client *http.Client
	log    zerolog.Logger
}

func New(client *http.Client, logger zerolog.Logger) *Checker {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Checker{client: client, log: logger}
}

// Check loads target (a file path or http(s) URL), validates every entry and
// inspects up to pages of the listed pages.
func (c *Checker) Check(ctx context.Context, target string, pages int) (*Report, error) {
	data, err := c.load(ctx, target)
	if err != nil {
		return nil, err
	}
	sm, err := models.ParseSitemap(data)
	if err != nil {
		return nil, err
	}

	report := Analyze(sm)
	report.Source = target
	for i := 0; i < pages && i < len(sm.URLs); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Issues = append(report.Issues, c.inspect(ctx, sm.URLs[i].Loc)...)
		report.Inspected++
	}

	c.log.Info().
		Str("source", target).
		Int("urls", report.Total).
		Int("issues", len(report.Issues)).
		Msg("Sitemap checked")
	return report, nil
}

func (c *Checker) load(ctx context.Context, target string) ([]byte, error) {
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return os.ReadFile(target)
	}

	resp, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", target, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Checker) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

// Analyze validates entries without network access.
func Analyze(sm *models.Sitemap) *Report {
	report := &Report{Total: len(sm.URLs)}
	seen := make(map[string]bool, len(sm.URLs))

	add := func(loc, kind, detail string) {
		report.Issues = append(report.Issues, Issue{Loc: loc, Kind: kind, Detail: detail})
	}

	for _, u := range sm.URLs {
		if seen[u.Loc] {
			add(u.Loc, KindDuplicate, "location listed more than once")
		}
		seen[u.Loc] = true

		if parsed, err := url.Parse(u.Loc); err != nil || !parsed.IsAbs() || parsed.Host == "" {
			add(u.Loc, KindLoc, "location is not an absolute URL")
		}
		if u.LastMod != "" && !validLastmod(u.LastMod) {
			add(u.Loc, KindLastmod, fmt.Sprintf("invalid lastmod %q", u.LastMod))
		}
		if u.ChangeFreq != "" && !changefreqs[u.ChangeFreq] {
			add(u.Loc, KindChangefreq, fmt.Sprintf("invalid changefreq %q", u.ChangeFreq))
		}
		if u.Priority != "" {
			p, err := strconv.ParseFloat(u.Priority, 64)
			if err != nil || p < 0 || p > 1 {
				add(u.Loc, KindPriority, fmt.Sprintf("priority %q outside 0.0-1.0", u.Priority))
			}
		}
	}
	return report
}

func validLastmod(v string) bool {
	for _, layout := range lastmodLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}
