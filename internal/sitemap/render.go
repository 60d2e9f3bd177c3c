package sitemap

import (
	"bytes"
	_ "embed"
	"encoding/xml"
	"fmt"
	"text/template"
)

// Template names known to every Renderer.
const (
	EntryTemplateName   = "entry"
	SitemapTemplateName = "sitemap"
)

var (
	//go:embed templates/entry.xml
	defaultEntryTemplate string

	//go:embed templates/sitemap.xml
	defaultSitemapTemplate string
)

// Renderer renders a named template with bindings.
type Renderer interface {
	Render(name string, data any) (string, error)
}

// TemplateRenderer renders entry and sitemap sources with text/template.
type TemplateRenderer struct {
	tmpl *template.Template
}

// NewTemplateRenderer parses the entry and document template sources.
func NewTemplateRenderer(entrySrc, sitemapSrc string) (*TemplateRenderer, error) {
	root := template.New("sitemapgen").
		Funcs(template.FuncMap{"xml": escapeXML}).
		Option("missingkey=zero")

	if _, err := root.New(EntryTemplateName).Parse(entrySrc); err != nil {
		return nil, fmt.Errorf("parse entry template: %w", err)
	}
	if _, err := root.New(SitemapTemplateName).Parse(sitemapSrc); err != nil {
		return nil, fmt.Errorf("parse sitemap template: %w", err)
	}
	return &TemplateRenderer{tmpl: root}, nil
}

// Render executes the named template.
func (r *TemplateRenderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
