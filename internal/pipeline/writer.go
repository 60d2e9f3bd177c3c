package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/romangod6/sitemapgen/internal/models"
)

// Write stores every record under dir using its key as relative path.
func Write(dir string, files *models.Files) error {
	var err error
	files.Range(func(key string, rec *models.FileRecord) bool {
		target := filepath.Join(dir, filepath.FromSlash(key))
		if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			err = fmt.Errorf("create directory for %s: %w", key, err)
			return false
		}
		mode := rec.Mode
		if mode == 0 {
			mode = 0o644
		}
		if err = os.WriteFile(target, rec.Contents, mode); err != nil {
			err = fmt.Errorf("write %s: %w", key, err)
			return false
		}
		return true
	})
	return err
}
