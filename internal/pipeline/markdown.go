package pipeline

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/romangod6/sitemapgen/internal/models"
)

// Markdown converts .md and .markdown files to HTML and renames them to
// .html, keeping their position in the collection.
func Markdown() Plugin {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	return Sync(func(files *models.Files, p *Pipeline) error {
		log := p.Logger()
		for _, key := range files.Keys() {
			ext := strings.ToLower(path.Ext(key))
			if ext != ".md" && ext != ".markdown" {
				continue
			}
			rec, _ := files.Get(key)

			var buf bytes.Buffer
			if err := md.Convert(rec.Contents, &buf); err != nil {
				return fmt.Errorf("render markdown %s: %w", key, err)
			}
			rec.Contents = buf.Bytes()

			target := strings.TrimSuffix(key, path.Ext(key)) + ".html"
			if _, taken := files.Get(target); taken {
				log.Warn().Str("file", key).Str("target", target).Msg("Markdown output replaces existing file")
			}
			files.Rename(key, target)
		}
		return nil
	})
}
