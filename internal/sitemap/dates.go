package sitemap

import (
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/romangod6/sitemapgen/internal/models"
)

// DateLayout is the lastmod format written to every entry.
const DateLayout = "2006-01-02"

// Clock returns the current time.
type Clock func() time.Time

// FormatDate normalizes a modified value to YYYY-MM-DD in UTC. Numbers are
// epoch milliseconds. It reports false for absent, zero or unparseable values.
func FormatDate(v any) (string, bool) {
	var t time.Time
	switch d := v.(type) {
	case nil:
		return "", false
	case time.Time:
		t = d
	case *time.Time:
		if d == nil {
			return "", false
		}
		t = *d
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return "", false
		}
		parsed, err := cast.ToTimeE(s)
		if err != nil {
			return "", false
		}
		t = parsed
	case int, int32, int64, uint, uint32, uint64, float32, float64:
		ms, err := cast.ToInt64E(d)
		if err != nil || ms == 0 {
			return "", false
		}
		t = time.UnixMilli(ms)
	default:
		parsed, err := cast.ToTimeE(d)
		if err != nil {
			return "", false
		}
		t = parsed
	}
	if t.IsZero() {
		return "", false
	}
	return t.UTC().Format(DateLayout), true
}

// fileLastmod applies the file rule: modified value, then mtime, then now.
func fileLastmod(modified any, rec *models.FileRecord, now Clock) string {
	if s, ok := FormatDate(modified); ok {
		return s
	}
	if mtime, ok := rec.Mtime(); ok {
		return mtime.UTC().Format(DateLayout)
	}
	return now().UTC().Format(DateLayout)
}

// rootLastmod applies the root rule: configured date, then the homepage
// mtime, then now.
func rootLastmod(configured time.Time, homepage *models.FileRecord, now Clock) string {
	if !configured.IsZero() {
		return configured.UTC().Format(DateLayout)
	}
	if mtime, ok := homepage.Mtime(); ok {
		return mtime.UTC().Format(DateLayout)
	}
	return now().UTC().Format(DateLayout)
}
