package sitemap

import (
	"net/url"
	"strings"

	"github.com/romangod6/sitemapgen/internal/models"
)

// Entry is one sitemap location before rendering.
type Entry struct {
	Loc        string
	Lastmod    string
	ChangeFreq string
	Priority   string
}

// bindings returns the values handed to the entry template.
func (e Entry) bindings() map[string]string {
	return map[string]string{
		"loc":        e.Loc,
		"lastmod":    e.Lastmod,
		"changefreq": e.ChangeFreq,
		"priority":   e.Priority,
	}
}

// resolveLoc resolves ref against the configured hostname with RFC 3986
// reference resolution. A host without a path gets "/". Without a hostname
// the reference is returned as is.
func (r *Resolved) resolveLoc(ref string) string {
	refURL, err := url.Parse(ref)
	if err != nil {
		if r.Hostname == "" {
			return ref
		}
		return r.baseDir(ref) + strings.TrimLeft(ref, "/")
	}
	if r.Hostname == "" {
		return refURL.String()
	}
	loc := r.base.ResolveReference(refURL)
	if loc.Host != "" && loc.Path == "" {
		loc.Path = "/"
	}
	return loc.String()
}

// baseDir returns the prefix an unparseable ref is appended to: the host root
// for absolute paths, otherwise the directory of the hostname path.
func (r *Resolved) baseDir(ref string) string {
	dir := *r.base
	dir.RawPath, dir.RawQuery, dir.Fragment = "", "", ""
	if strings.HasPrefix(ref, "/") {
		dir.Path = "/"
	} else if i := strings.LastIndex(dir.Path, "/"); i >= 0 {
		dir.Path = dir.Path[:i+1]
	} else {
		dir.Path = "/"
	}
	return dir.String()
}

// fileEntry builds the entry of a qualifying file.
func (r *Resolved) fileEntry(ref string, modified any, rec *models.FileRecord, now Clock) Entry {
	entry := Entry{
		Loc:        r.resolveLoc(ref),
		Lastmod:    fileLastmod(modified, rec, now),
		ChangeFreq: r.Defaults.ChangeFreq,
		Priority:   r.Defaults.Priority,
	}
	if rec.Sitemap != nil {
		if rec.Sitemap.ChangeFreq != "" {
			entry.ChangeFreq = rec.Sitemap.ChangeFreq
		}
		if rec.Sitemap.Priority != "" {
			entry.Priority = rec.Sitemap.Priority
		}
	}
	return entry
}

// rootEntry builds the entry of the site root.
func (r *Resolved) rootEntry(homepage *models.FileRecord, now Clock) Entry {
	return Entry{
		Loc:        r.resolveLoc(""),
		Lastmod:    rootLastmod(r.Root.LastModified, homepage, now),
		ChangeFreq: firstNonEmpty(r.Root.ChangeFreq, r.Defaults.ChangeFreq),
		Priority:   firstNonEmpty(r.Root.Priority, r.Defaults.Priority),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
