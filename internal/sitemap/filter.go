package sitemap

import (
	"github.com/spf13/cast"

	"github.com/romangod6/sitemapgen/internal/models"
)

// Skip reasons reported for files that get no entry.
const (
	SkipIgnored = "ignored"
	SkipPrivate = "private"
	SkipDraft   = "draft"
	SkipNoURL   = "no-url"
)

// ignored reports whether key matches an ignore pattern or glob.
func (r *Resolved) ignored(key string) bool {
	for _, re := range r.ignore {
		if re.MatchString(key) {
			return true
		}
	}
	return r.globs != nil && r.globs.MatchesPath(key)
}

// excluded returns the reason a file is left out before its URL is read, or
// "" when it may participate.
func (r *Resolved) excluded(key string, rec *models.FileRecord) string {
	switch {
	case r.ignored(key):
		return SkipIgnored
	case rec.Private || flag(rec, "private"):
		return SkipPrivate
	case rec.Draft || flag(rec, "draft"):
		return SkipDraft
	}
	return ""
}

// flag reports a truthy metadata value, as set by plugins that write the
// field directly.
func flag(rec *models.FileRecord, name string) bool {
	return cast.ToBool(rec.Metadata[name])
}

// urlString turns an extracted URL value into text. Absent and falsy values
// yield "".
func urlString(v any) string {
	switch u := v.(type) {
	case nil:
		return ""
	case string:
		return u
	case bool:
		if !u {
			return ""
		}
	}
	s, err := cast.ToStringE(v)
	if err != nil || s == "0" {
		return ""
	}
	return s
}
