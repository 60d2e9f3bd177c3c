package sitemap

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"time"

	"dario.cat/mergo"
	"github.com/mitchellh/mapstructure"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/cast"

	"github.com/romangod6/sitemapgen/internal/models"
)

// ErrInvalidOptions is returned by Resolve when options cannot be compiled.
var ErrInvalidOptions = errors.New("invalid sitemap options")

// Meta holds the change frequency and priority of an entry.
type Meta struct {
	Priority   string `mapstructure:"priority" json:"priority,omitempty"`
	ChangeFreq string `mapstructure:"changefreq" json:"changefreq,omitempty"`
}

// RootMeta configures the entry generated for the site root.
type RootMeta struct {
	Priority     string    `mapstructure:"priority" json:"priority,omitempty"`
	ChangeFreq   string    `mapstructure:"changefreq" json:"changefreq,omitempty"`
	LastModified time.Time `mapstructure:"lastModified" json:"lastModified,omitempty"`
}

// Options is the user-facing configuration. Zero fields take the default.
type Options struct {
	IgnoreFiles       []string `mapstructure:"ignoreFiles"`
	IgnoreGlobs       []string `mapstructure:"ignoreGlobs"`
	Output            string   `mapstructure:"output"`
	ModifiedProperty  Property `mapstructure:"modifiedProperty"`
	URLProperty       Property `mapstructure:"urlProperty"`
	Hostname          string   `mapstructure:"hostname"`
	EntryTemplate     string   `mapstructure:"entryTemplate"`
	SitemapTemplate   string   `mapstructure:"sitemapTemplate"`
	Defaults          Meta     `mapstructure:"defaults"`
	Root              RootMeta `mapstructure:"root"`
	OmitRootDuplicate bool     `mapstructure:"omitRootDuplicate"`
}

// DefaultOptions returns a fresh copy of the built-in defaults.
func DefaultOptions() Options {
	return Options{
		IgnoreFiles:      []string{},
		Output:           "sitemap.xml",
		ModifiedProperty: Key("modified"),
		URLProperty:      Key("path"),
		Hostname:         "",
		EntryTemplate:    defaultEntryTemplate,
		SitemapTemplate:  defaultSitemapTemplate,
		Defaults: Meta{
			Priority:   "0.5",
			ChangeFreq: "daily",
		},
		Root: RootMeta{
			Priority:   "1.0",
			ChangeFreq: "daily",
		},
	}
}

// Resolved is the merged, compiled configuration of a generator. It is not
// modified after Resolve returns.
type Resolved struct {
	Options

	base       *url.URL
	ignore     []*regexp.Regexp
	globs      *ignore.GitIgnore
	urlOf      extractor
	modifiedOf extractor
	renderer   Renderer
}

// Resolve merges user options over the defaults and compiles patterns,
// extractors and templates.
func Resolve(user Options) (*Resolved, error) {
	merged := user
	if err := mergo.Merge(&merged, DefaultOptions()); err != nil {
		return nil, fmt.Errorf("%w: merge defaults: %v", ErrInvalidOptions, err)
	}

	r := &Resolved{Options: merged}

	base, err := url.Parse(merged.Hostname)
	if err != nil {
		return nil, fmt.Errorf("%w: hostname %q: %v", ErrInvalidOptions, merged.Hostname, err)
	}
	r.base = base

	for _, pattern := range merged.IgnoreFiles {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: ignore pattern %q: %v", ErrInvalidOptions, pattern, err)
		}
		r.ignore = append(r.ignore, re)
	}
	if len(merged.IgnoreGlobs) > 0 {
		r.globs = ignore.CompileIgnoreLines(merged.IgnoreGlobs...)
	}

	r.urlOf = merged.URLProperty.extractor()
	r.modifiedOf = merged.ModifiedProperty.extractor()

	renderer, err := NewTemplateRenderer(merged.EntryTemplate, merged.SitemapTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	r.renderer = renderer

	return r, nil
}

// DecodeHook converts configuration values into Options field types when the
// options are decoded from a map (viper, YAML).
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		propertyHook,
		timeHook,
	)
}

var (
	propertyType = reflect.TypeOf(Property{})
	timeType     = reflect.TypeOf(time.Time{})
)

func propertyHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != propertyType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return Key(v), nil
	case Accessor:
		return Func(v), nil
	case func(*models.FileRecord) (any, error):
		return Func(v), nil
	}
	return data, nil
}

func timeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType || from.Kind() != reflect.String {
		return data, nil
	}
	s := data.(string)
	if s == "" {
		return time.Time{}, nil
	}
	return cast.ToTimeE(s)
}
