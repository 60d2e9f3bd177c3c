package models

import (
	"encoding/xml"
	"fmt"
)

// Sitemap represents the structure of an XML sitemap.
type Sitemap struct {
	XMLName xml.Name `xml:"urlset" json:"-"`
	URLs    []URL    `xml:"url" json:"urls"`
}

// URL represents a single URL entry in the sitemap.
type URL struct {
	Loc        string `xml:"loc" json:"loc"`
	LastMod    string `xml:"lastmod,omitempty" json:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty" json:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty" json:"priority,omitempty"`
}

// ParseSitemap decodes a urlset document.
func ParseSitemap(data []byte) (*Sitemap, error) {
	var sitemap Sitemap
	if err := xml.Unmarshal(data, &sitemap); err != nil {
		return nil, fmt.Errorf("parse sitemap: %w", err)
	}
	return &sitemap, nil
}

// Count returns how many entries carry the given location.
func (s *Sitemap) Count(loc string) int {
	n := 0
	for _, u := range s.URLs {
		if u.Loc == loc {
			n++
		}
	}
	return n
}
