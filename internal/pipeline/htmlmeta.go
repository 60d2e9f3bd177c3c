package pipeline

import (
	"bytes"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/romangod6/sitemapgen/internal/models"
)

// HTMLMeta reads page-level hints from HTML documents: a robots noindex
// marks the page private, sitemap:priority and sitemap:changefreq meta tags
// fill the sitemap override, and article:modified_time fills the modified
// field. Frontmatter values take precedence.
func HTMLMeta() Plugin {
	return Sync(func(files *models.Files, p *Pipeline) error {
		log := p.Logger()
		files.Range(func(key string, rec *models.FileRecord) bool {
			if ext := strings.ToLower(path.Ext(key)); ext != ".html" && ext != ".htm" {
				return true
			}
			doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rec.Contents))
			if err != nil {
				log.Warn().Err(err).Str("file", key).Msg("Failed to parse HTML")
				return true
			}
			ApplyHTMLMeta(doc.Selection, rec)
			return true
		})
		return nil
	})
}

// ApplyHTMLMeta copies meta hints found below doc into rec.
func ApplyHTMLMeta(doc *goquery.Selection, rec *models.FileRecord) {
	if robots, ok := doc.Find(`meta[name="robots"]`).Attr("content"); ok {
		if strings.Contains(strings.ToLower(robots), "noindex") {
			rec.Private = true
		}
	}

	priority := metaContent(doc, `meta[name="sitemap:priority"]`)
	changefreq := metaContent(doc, `meta[name="sitemap:changefreq"]`)
	if priority != "" || changefreq != "" {
		if rec.Sitemap == nil {
			rec.Sitemap = &models.SitemapMeta{}
		}
		if rec.Sitemap.Priority == "" {
			rec.Sitemap.Priority = priority
		}
		if rec.Sitemap.ChangeFreq == "" {
			rec.Sitemap.ChangeFreq = changefreq
		}
	}

	if _, ok := rec.Metadata["modified"]; !ok {
		if modified := metaContent(doc, `meta[property="article:modified_time"]`); modified != "" {
			rec.Set("modified", modified)
		}
	}

	if _, ok := rec.Metadata["title"]; !ok {
		if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
			rec.Set("title", title)
		}
	}
}

func metaContent(doc *goquery.Selection, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}
