package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "my_site", SanitizeName(" My Site "))
	assert.Equal(t, "https___example.com", SanitizeName("https://example.com"))
	assert.Equal(t, "default", SanitizeName(""))
}

func TestNewRunLogger_ConsoleJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewRunLogger("docs", LogConfig{Level: "debug", JSON: true}, &buf)
	require.NoError(t, err)
	defer logger.Close()

	logger.Debug().Str("file", "a.html").Msg("Skipping file")
	assert.Contains(t, buf.String(), `"file":"a.html"`)
	assert.Contains(t, buf.String(), `"source":"docs"`)
}

func TestNewRunLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewRunLogger("docs", LogConfig{Level: "warn", JSON: true}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestNewRunLogger_InvalidLevel(t *testing.T) {
	_, err := NewRunLogger("docs", LogConfig{Level: "loud"}, nil)
	assert.Error(t, err)
}

func TestNewRunLogger_WritesFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	logger, err := NewRunLogger("My Site", LogConfig{JSON: true, File: true, Dir: dir}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("hello")
	require.NoError(t, logger.Close())

	matches, err := filepath.Glob(filepath.Join(dir, "my_site", "sitemap_my_site_*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
