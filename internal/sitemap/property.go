package sitemap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/romangod6/sitemapgen/internal/models"
)

// ErrExtraction marks failures raised while reading a value from a file.
var ErrExtraction = errors.New("extraction failed")

// ExtractionError reports the file whose URL or modified value could not be
// read. It aborts the whole run.
type ExtractionError struct {
	Key      string
	Property string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to fetch information for file %s (%s): %v", e.Key, e.Property, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Is reports ExtractionError as ErrExtraction.
func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// Accessor computes a value from a file record. It must not modify the record.
type Accessor func(rec *models.FileRecord) (any, error)

// Property selects a value of a file record, either by a dotted metadata path
// or by a function. Func takes precedence over Key.
type Property struct {
	Key  string
	Func Accessor
}

// Key returns a Property reading the dotted path key.
func Key(key string) Property { return Property{Key: key} }

// Func returns a Property computed by fn.
func Func(fn Accessor) Property { return Property{Func: fn} }

func (p Property) String() string {
	if p.Func != nil {
		return "func"
	}
	return p.Key
}

// extractor is a Property bound once at resolve time.
type extractor func(key string, rec *models.FileRecord) (any, error)

func (p Property) extractor() extractor {
	name := p.String()
	get := p.Func
	if get == nil {
		path := strings.Split(p.Key, ".")
		get = func(rec *models.FileRecord) (any, error) {
			return lookup(rec, path)
		}
	}

	return func(key string, rec *models.FileRecord) (value any, err error) {
		defer func() {
			if r := recover(); r != nil {
				value = nil
				err = &ExtractionError{Key: key, Property: name, Err: fmt.Errorf("panic: %v", r)}
			}
		}()
		value, err = get(rec)
		if err != nil {
			return nil, &ExtractionError{Key: key, Property: name, Err: err}
		}
		return value, nil
	}
}

// lookup walks path through the record. A missing leaf is absent; walking
// through a missing or nil intermediate value is an error.
func lookup(rec *models.FileRecord, path []string) (any, error) {
	if rec == nil {
		return nil, errors.New("nil file record")
	}

	cur := field(rec, path[0])
	for i := 1; i < len(path); i++ {
		if cur == nil {
			return nil, fmt.Errorf("cannot read %q of undefined %q", path[i], strings.Join(path[:i], "."))
		}
		m, ok := asMap(cur)
		if !ok {
			return nil, nil
		}
		cur = m[path[i]]
	}
	return cur, nil
}

// field resolves a top-level name. Metadata wins over the typed fields.
func field(rec *models.FileRecord, name string) any {
	if v, ok := rec.Metadata[name]; ok {
		return v
	}
	switch name {
	case "private":
		return rec.Private
	case "draft":
		return rec.Draft
	case "stats":
		if rec.Stats == nil {
			return nil
		}
		return map[string]any{"mtime": rec.Stats.Mtime, "size": rec.Stats.Size}
	case "sitemap":
		if rec.Sitemap == nil {
			return map[string]any{}
		}
		return map[string]any{"priority": rec.Sitemap.Priority, "changefreq": rec.Sitemap.ChangeFreq}
	}
	return nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}
