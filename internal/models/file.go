package models

import (
	"os"
	"time"
)

// FileRecord is one entry of a build's file collection. Records are produced
// by a source (directory loader or crawler) and mutated by pipeline plugins.
type FileRecord struct {
	Contents []byte      `json:"-"`
	Mode     os.FileMode `json:"mode,omitempty"`
	Stats    *Stats      `json:"stats,omitempty"`

	Private bool         `json:"private,omitempty"`
	Draft   bool         `json:"draft,omitempty"`
	Sitemap *SitemapMeta `json:"sitemap,omitempty"`

	// Metadata holds frontmatter and plugin-provided fields such as "path"
	// and "modified".
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Stats mirrors the parts of a file's stat information the pipeline keeps.
type Stats struct {
	Mtime time.Time `json:"mtime"`
	Size  int64     `json:"size"`
}

// SitemapMeta is a per-file override of the sitemap entry metadata.
type SitemapMeta struct {
	Priority   string `json:"priority,omitempty" yaml:"priority" mapstructure:"priority"`
	ChangeFreq string `json:"changefreq,omitempty" yaml:"changefreq" mapstructure:"changefreq"`
}

// NewFileRecord creates a record with initialized metadata.
func NewFileRecord(contents []byte) *FileRecord {
	return &FileRecord{
		Contents: contents,
		Metadata: make(map[string]any),
	}
}

// Mtime returns the modification time, if the record has one.
func (f *FileRecord) Mtime() (time.Time, bool) {
	if f == nil || f.Stats == nil || f.Stats.Mtime.IsZero() {
		return time.Time{}, false
	}
	return f.Stats.Mtime, true
}

// Set stores a metadata field.
func (f *FileRecord) Set(key string, value any) {
	if f.Metadata == nil {
		f.Metadata = make(map[string]any)
	}
	f.Metadata[key] = value
}
