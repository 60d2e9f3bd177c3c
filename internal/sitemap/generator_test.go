package sitemap

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romangod6/sitemapgen/internal/models"
)

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func page(path string) *models.FileRecord {
	rec := models.NewFileRecord([]byte("<html></html>"))
	rec.Set("path", path)
	return rec
}

func generate(t *testing.T, opts Options, files *models.Files) *models.Sitemap {
	t.Helper()
	g, err := New(opts, WithClock(fixedClock))
	require.NoError(t, err)

	_, err = g.Run(files)
	require.NoError(t, err)

	out, ok := files.Get(g.Options().Output)
	require.True(t, ok, "output record must be written")

	sm, err := models.ParseSitemap(out.Contents)
	require.NoError(t, err)
	return sm
}

func TestRun_QualifyingFilesGetOneEntryEach(t *testing.T) {
	files := models.NewFiles()
	files.Set("about/index.html", page("about/"))
	files.Set("blog/post.html", page("blog/post.html"))
	files.Set("contact.html", page("/contact.html"))

	sm := generate(t, Options{Hostname: "https://example.com"}, files)

	require.Len(t, sm.URLs, 4)
	assert.Equal(t, "https://example.com/about/", sm.URLs[0].Loc)
	assert.Equal(t, "https://example.com/blog/post.html", sm.URLs[1].Loc)
	assert.Equal(t, "https://example.com/contact.html", sm.URLs[2].Loc)
	for _, loc := range []string{"https://example.com/about/", "https://example.com/blog/post.html", "https://example.com/contact.html"} {
		assert.Equal(t, 1, sm.Count(loc), loc)
	}
}

func TestRun_FilteredFilesAreOmitted(t *testing.T) {
	files := models.NewFiles()
	files.Set("keep.html", page("keep.html"))

	ignored := page("ignored.html")
	files.Set("drafts/ignored.html", ignored)

	private := page("private.html")
	private.Private = true
	files.Set("private.html", private)

	draft := page("draft.html")
	draft.Draft = true
	files.Set("draft.html", draft)

	globbed := page("assets/app.js")
	files.Set("assets/app.js", globbed)

	noURL := models.NewFileRecord(nil)
	files.Set("style.css", noURL)

	g, err := New(Options{
		Hostname:    "https://example.com",
		IgnoreFiles: []string{`^drafts/`},
		IgnoreGlobs: []string{"assets/"},
	}, WithClock(fixedClock))
	require.NoError(t, err)

	report, err := g.Run(files)
	require.NoError(t, err)

	out, _ := files.Get("sitemap.xml")
	sm, err := models.ParseSitemap(out.Contents)
	require.NoError(t, err)

	require.Len(t, sm.URLs, 2)
	assert.Equal(t, "https://example.com/keep.html", sm.URLs[0].Loc)
	for _, loc := range []string{"ignored.html", "private.html", "draft.html", "assets/app.js"} {
		assert.Zero(t, sm.Count("https://example.com/"+loc), loc)
	}

	assert.Equal(t, 2, report.Entries)
	assert.Equal(t, map[string]int{
		SkipIgnored: 2,
		SkipPrivate: 1,
		SkipDraft:   1,
		SkipNoURL:   1,
	}, report.Skipped)
}

func TestRun_MetadataFlagsAreFiltered(t *testing.T) {
	files := models.NewFiles()
	files.Set("keep.html", page("keep.html"))

	private := page("private.html")
	private.Set("private", true)
	files.Set("private.html", private)

	draft := page("draft.html")
	draft.Set("draft", "true")
	files.Set("draft.html", draft)

	g, err := New(Options{Hostname: "https://example.com"}, WithClock(fixedClock))
	require.NoError(t, err)

	report, err := g.Run(files)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Entries)
	assert.Equal(t, 1, report.Skipped[SkipPrivate])
	assert.Equal(t, 1, report.Skipped[SkipDraft])
}

func TestRun_RootEntryAlwaysLastEvenWithHomepageDuplicate(t *testing.T) {
	files := models.NewFiles()
	home := page("/")
	files.Set("index.html", home)
	files.Set("about.html", page("about.html"))

	sm := generate(t, Options{Hostname: "https://example.com"}, files)

	require.Len(t, sm.URLs, 3)
	assert.Equal(t, "https://example.com/", sm.URLs[0].Loc)
	assert.Equal(t, "https://example.com/", sm.URLs[2].Loc)
	assert.Equal(t, 2, sm.Count("https://example.com/"))
	assert.Equal(t, "1.0", sm.URLs[2].Priority)
}

func TestRun_RootEntryWithEmptyCollection(t *testing.T) {
	sm := generate(t, Options{Hostname: "https://example.com"}, models.NewFiles())

	require.Len(t, sm.URLs, 1)
	assert.Equal(t, "https://example.com/", sm.URLs[0].Loc)
	assert.Equal(t, "2024-03-15", sm.URLs[0].LastMod)
	assert.Equal(t, "daily", sm.URLs[0].ChangeFreq)
	assert.Equal(t, "1.0", sm.URLs[0].Priority)
}

func TestRun_OmitRootDuplicate(t *testing.T) {
	files := models.NewFiles()
	files.Set("index.html", page("/"))
	files.Set("about.html", page("about.html"))

	sm := generate(t, Options{Hostname: "https://example.com", OmitRootDuplicate: true}, files)

	require.Len(t, sm.URLs, 2)
	assert.Equal(t, 1, sm.Count("https://example.com/"))
	assert.Equal(t, "https://example.com/", sm.URLs[1].Loc)
}

func TestRun_LastmodAlwaysDateOnly(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	files := models.NewFiles()
	withTime := page("a.html")
	withTime.Set("modified", time.Date(2022, 1, 2, 23, 59, 0, 0, time.UTC))
	files.Set("a.html", withTime)

	withString := page("b.html")
	withString.Set("modified", "2021-07-04T12:00:00Z")
	files.Set("b.html", withString)

	withGarbage := page("c.html")
	withGarbage.Set("modified", "not a date")
	files.Set("c.html", withGarbage)

	files.Set("d.html", page("d.html"))

	sm := generate(t, Options{Hostname: "https://example.com"}, files)

	require.Len(t, sm.URLs, 5)
	for _, u := range sm.URLs {
		assert.Regexp(t, pattern, u.LastMod, u.Loc)
	}
	assert.Equal(t, "2022-01-02", sm.URLs[0].LastMod)
	assert.Equal(t, "2021-07-04", sm.URLs[1].LastMod)
	assert.Equal(t, "2024-03-15", sm.URLs[2].LastMod)
	assert.Equal(t, "2024-03-15", sm.URLs[3].LastMod)
}

func TestRun_LastmodFallsBackToMtime(t *testing.T) {
	files := models.NewFiles()
	rec := page("post.html")
	rec.Stats = &models.Stats{Mtime: time.UnixMilli(1685577600000)}
	files.Set("post.html", rec)

	sm := generate(t, Options{Hostname: "https://example.com"}, files)

	require.Len(t, sm.URLs, 2)
	assert.Equal(t, "2023-06-01", sm.URLs[0].LastMod)
}

func TestRun_SitemapOverrideWinsOverDefaults(t *testing.T) {
	files := models.NewFiles()
	rec := page("special.html")
	rec.Sitemap = &models.SitemapMeta{Priority: "0.9", ChangeFreq: "weekly"}
	files.Set("special.html", rec)

	partial := page("partial.html")
	partial.Sitemap = &models.SitemapMeta{Priority: "0.2"}
	files.Set("partial.html", partial)

	sm := generate(t, Options{Hostname: "https://example.com"}, files)

	require.Len(t, sm.URLs, 3)
	assert.Equal(t, "0.9", sm.URLs[0].Priority)
	assert.Equal(t, "weekly", sm.URLs[0].ChangeFreq)
	assert.Equal(t, "0.2", sm.URLs[1].Priority)
	assert.Equal(t, "daily", sm.URLs[1].ChangeFreq)
}

func TestRun_ExtractionFailureStopsRun(t *testing.T) {
	files := models.NewFiles()
	files.Set("good.html", page("good.html"))
	broken := page("broken.html")
	broken.Set("broken", true)
	files.Set("broken.html", broken)
	files.Set("later.html", page("later.html"))

	previous := models.NewFileRecord([]byte("previous"))
	files.Set("sitemap.xml", previous)

	var seen []string
	g, err := New(Options{
		Hostname: "https://example.com",
		URLProperty: Func(func(rec *models.FileRecord) (any, error) {
			seen = append(seen, rec.Metadata["path"].(string))
			if rec.Metadata["broken"] == true {
				return nil, errors.New("boom")
			}
			return rec.Metadata["path"], nil
		}),
	}, WithClock(fixedClock))
	require.NoError(t, err)

	report, err := g.Run(files)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrExtraction)

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, "broken.html", extractionErr.Key)
	assert.Contains(t, err.Error(), "boom")

	assert.Equal(t, []string{"good.html", "broken.html"}, seen, "iteration must stop at the failing file")

	out, ok := files.Get("sitemap.xml")
	require.True(t, ok)
	assert.Same(t, previous, out)
}

func TestRun_ExtractionPanicIsReported(t *testing.T) {
	files := models.NewFiles()
	files.Set("broken.html", page("broken.html"))

	g, err := New(Options{
		ModifiedProperty: Func(func(*models.FileRecord) (any, error) {
			panic("bad accessor")
		}),
	})
	require.NoError(t, err)

	_, err = g.Run(files)
	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, "broken.html", extractionErr.Key)
	_, written := files.Get("sitemap.xml")
	assert.False(t, written)
}

func TestRun_DottedPathThroughMissingValueFails(t *testing.T) {
	files := models.NewFiles()
	ok := page("")
	ok.Set("permalink", map[string]any{"url": "fine/"})
	files.Set("fine.html", ok)
	files.Set("broken.html", page("broken.html"))

	g, err := New(Options{URLProperty: Key("permalink.url")})
	require.NoError(t, err)

	_, err = g.Run(files)
	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, "broken.html", extractionErr.Key)
	assert.Equal(t, "permalink.url", extractionErr.Property)
}

func TestRun_RootLastmodFromHomepageMtime(t *testing.T) {
	files := models.NewFiles()
	home := page("")
	home.Stats = &models.Stats{Mtime: time.Date(2020, 5, 6, 0, 0, 0, 0, time.UTC)}
	files.Set("index.html", home)
	other := page("")
	other.Stats = &models.Stats{Mtime: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)}
	files.Set("other/index.html", other)

	g, err := New(Options{Hostname: "https://example.com"}, WithClock(fixedClock))
	require.NoError(t, err)
	report, err := g.Run(files)
	require.NoError(t, err)
	assert.Equal(t, "other/index.html", report.Homepage, "last empty URL wins")

	out, _ := files.Get("sitemap.xml")
	sm, err := models.ParseSitemap(out.Contents)
	require.NoError(t, err)
	require.Len(t, sm.URLs, 1)
	assert.Equal(t, "2019-01-01", sm.URLs[0].LastMod)
}

func TestRun_RootLastmodConfiguredWins(t *testing.T) {
	files := models.NewFiles()
	home := page("")
	home.Stats = &models.Stats{Mtime: time.Date(2020, 5, 6, 0, 0, 0, 0, time.UTC)}
	files.Set("index.html", home)

	sm := generate(t, Options{
		Hostname: "https://example.com",
		Root:     RootMeta{LastModified: time.Date(2018, 8, 9, 0, 0, 0, 0, time.UTC), Priority: "0.8"},
	}, files)

	require.Len(t, sm.URLs, 1)
	assert.Equal(t, "2018-08-09", sm.URLs[0].LastMod)
	assert.Equal(t, "0.8", sm.URLs[0].Priority)
	assert.Equal(t, "daily", sm.URLs[0].ChangeFreq)
}

func TestRun_OverwritesExistingOutputAndCustomTemplates(t *testing.T) {
	files := models.NewFiles()
	files.Set("out/map.txt", models.NewFileRecord([]byte("stale")))
	files.Set("a.html", page("a.html"))

	g, err := New(Options{
		Hostname:        "https://example.com/",
		Output:          "out/map.txt",
		EntryTemplate:   "{{.loc}} {{.lastmod}} {{.changefreq}} {{.priority}}\n",
		SitemapTemplate: "BEGIN\n{{.entries}}END\n",
	}, WithClock(fixedClock))
	require.NoError(t, err)

	_, err = g.Run(files)
	require.NoError(t, err)

	out, _ := files.Get("out/map.txt")
	assert.Equal(t, "BEGIN\n"+
		"https://example.com/a.html 2024-03-15 daily 0.5\n"+
		"https://example.com/ 2024-03-15 daily 1.0\n"+
		"END\n", string(out.Contents))
	assert.Equal(t, []string{"out/map.txt", "a.html"}, files.Keys())
}

func TestRun_EscapesLocations(t *testing.T) {
	files := models.NewFiles()
	files.Set("q.html", page("search?a=1&b=2"))

	g, err := New(Options{Hostname: "https://example.com"}, WithClock(fixedClock))
	require.NoError(t, err)
	_, err = g.Run(files)
	require.NoError(t, err)

	out, _ := files.Get("sitemap.xml")
	assert.Contains(t, string(out.Contents), "<loc>https://example.com/search?a=1&amp;b=2</loc>")
	assert.True(t, strings.HasPrefix(string(out.Contents), `<?xml version="1.0" encoding="UTF-8"?>`))
}

func TestTransform_CallsDoneOnce(t *testing.T) {
	g, err := New(Options{Hostname: "https://example.com"})
	require.NoError(t, err)

	files := models.NewFiles()
	files.Set("a.html", page("a.html"))

	calls := 0
	var got error
	g.Transform(files, nil, func(err error) {
		calls++
		got = err
	})
	assert.Equal(t, 1, calls)
	assert.NoError(t, got)

	bad, err := New(Options{URLProperty: Func(func(*models.FileRecord) (any, error) {
		return nil, errors.New("nope")
	})})
	require.NoError(t, err)

	calls = 0
	bad.Transform(files, nil, func(err error) {
		calls++
		got = err
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, got, ErrExtraction)
}
