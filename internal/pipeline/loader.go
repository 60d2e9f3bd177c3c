package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/cast"

	"github.com/romangod6/sitemapgen/internal/models"
)

// SourcePathKey is the metadata field holding a file's path relative to the
// source directory as it was read.
const SourcePathKey = "sourcePath"

// frontmatterExts lists extensions whose leading YAML block is parsed.
var frontmatterExts = map[string]bool{
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
}

// Read loads every file below dir into a collection keyed by slash-separated
// relative path, in lexical order. Dot-files and paths matched by a
// .gitignore in dir are skipped.
func Read(ctx context.Context, dir string, logger zerolog.Logger) (*models.Files, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("read source: %s is not a directory", dir)
	}

	var ignored *ignore.GitIgnore
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore")); err == nil {
		ignored = gi
	}

	files := models.NewFiles()
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ignored != nil && ignored.MatchesPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rec, err := readFile(path, rel)
		if err != nil {
			return err
		}
		files.Set(rel, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("source", dir).Int("files", files.Len()).Msg("Source read")
	return files, nil
}

func readFile(path, rel string) (*models.FileRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	rec := models.NewFileRecord(content)
	rec.Mode = info.Mode().Perm()
	rec.Stats = &models.Stats{Mtime: info.ModTime(), Size: info.Size()}

	if frontmatterExts[strings.ToLower(filepath.Ext(rel))] {
		fields, body, err := splitFrontmatter(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rel, err)
		}
		rec.Contents = body
		applyFields(rec, fields)
	}
	rec.Set(SourcePathKey, rel)
	return rec, nil
}

// applyFields copies frontmatter into the record, lifting the well-known
// flags and sitemap override into typed fields.
func applyFields(rec *models.FileRecord, fields map[string]any) {
	for k, v := range fields {
		switch k {
		case "private":
			rec.Private = cast.ToBool(v)
		case "draft":
			rec.Draft = cast.ToBool(v)
		case "sitemap":
			rec.Sitemap = sitemapMeta(v)
		default:
			rec.Set(k, v)
		}
	}
}

func sitemapMeta(v any) *models.SitemapMeta {
	m, err := cast.ToStringMapE(v)
	if err != nil {
		return nil
	}
	meta := &models.SitemapMeta{}
	if p, ok := m["priority"]; ok {
		meta.Priority = formatPriority(p)
	}
	if c, ok := m["changefreq"]; ok {
		meta.ChangeFreq = cast.ToString(c)
	}
	return meta
}

// formatPriority keeps one decimal for whole numbers so `priority: 1` renders
// as 1.0.
func formatPriority(v any) string {
	switch p := v.(type) {
	case int:
		return fmt.Sprintf("%d.0", p)
	case float64:
		if p == float64(int64(p)) {
			return fmt.Sprintf("%.1f", p)
		}
	}
	return cast.ToString(v)
}
