package pipeline

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFrontmatter(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		fields    map[string]any
		body      string
		wantError bool
	}{
		{name: "no frontmatter", input: "# Title\n", body: "# Title\n"},
		{name: "fields", input: "---\ntitle: Hi\ndraft: true\n---\nbody\n", fields: map[string]any{"title": "Hi", "draft": true}, body: "body\n"},
		{name: "empty block", input: "---\n---\nbody", fields: map[string]any{}, body: "body"},
		{name: "crlf", input: "---\r\ntitle: Hi\r\n---\r\nbody", fields: map[string]any{"title": "Hi"}, body: "body"},
		{name: "unterminated", input: "---\ntitle: Hi\n", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, body, err := splitFrontmatter([]byte(tt.input))
			if tt.wantError {
				assert.ErrorIs(t, err, ErrUnterminatedFrontmatter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.fields, fields)
			assert.Equal(t, tt.body, string(body))
		})
	}
}

func TestReadSkipsIgnoredAndDotFiles(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		".gitignore":         "build/\n*.tmp\n",
		".hidden/page.html":  "x",
		"build/out.html":     "x",
		"notes.tmp":          "x",
		"blog/post.html":     "---\ndraft: true\nmodified: 2024-01-02\n---\n<p>post</p>",
		"blog/zz/index.html": "<p>nested</p>",
	})

	files, err := Read(context.Background(), dir, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"blog/post.html", "blog/zz/index.html"}, files.Keys())

	post, _ := files.Get("blog/post.html")
	assert.True(t, post.Draft)
	assert.Equal(t, "<p>post</p>", string(post.Contents))
	assert.Equal(t, "blog/post.html", post.Metadata[SourcePathKey])
	assert.NotNil(t, post.Metadata["modified"])
	require.NotNil(t, post.Stats)
	assert.False(t, post.Stats.Mtime.IsZero())
	assert.EqualValues(t, len("---\ndraft: true\nmodified: 2024-01-02\n---\n<p>post</p>"), post.Stats.Size)
}

func TestReadMissingSource(t *testing.T) {
	_, err := Read(context.Background(), t.TempDir()+"/nope", zerolog.Nop())
	assert.Error(t, err)
}

func TestSitemapMetaPriorityFormatting(t *testing.T) {
	assert.Equal(t, "1.0", sitemapMeta(map[string]any{"priority": 1}).Priority)
	assert.Equal(t, "0.3", sitemapMeta(map[string]any{"priority": 0.3}).Priority)
	assert.Equal(t, "weekly", sitemapMeta(map[string]any{"changefreq": "weekly"}).ChangeFreq)
	assert.Nil(t, sitemapMeta("not a map"))
}

func TestPermalink(t *testing.T) {
	assert.Equal(t, "", Permalink("index.html"))
	assert.Equal(t, "docs/", Permalink("docs/index.html"))
	assert.Equal(t, "docs/a.html", Permalink("docs/a.html"))
}
