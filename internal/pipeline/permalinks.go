package pipeline

import (
	"path"
	"strings"

	"github.com/romangod6/sitemapgen/internal/models"
)

// PathKey is the metadata field holding a page's site-relative URL.
const PathKey = "path"

// Permalinks sets the path field on HTML pages that do not declare one.
// index.html maps to "" and dir/index.html to "dir/".
func Permalinks() Plugin {
	return Sync(func(files *models.Files, _ *Pipeline) error {
		files.Range(func(key string, rec *models.FileRecord) bool {
			if _, ok := rec.Metadata[PathKey]; ok {
				return true
			}
			if ext := strings.ToLower(path.Ext(key)); ext != ".html" && ext != ".htm" {
				return true
			}
			rec.Set(PathKey, Permalink(key))
			return true
		})
		return nil
	})
}

// Permalink returns the site-relative URL for a file key.
func Permalink(key string) string {
	base := path.Base(key)
	if base != "index.html" && base != "index.htm" {
		return key
	}
	dir := path.Dir(key)
	if dir == "." {
		return ""
	}
	return dir + "/"
}
