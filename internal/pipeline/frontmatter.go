package pipeline

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrUnterminatedFrontmatter is returned for a document that opens a YAML
// frontmatter block without closing it.
var ErrUnterminatedFrontmatter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// splitFrontmatter separates `---` delimited YAML from the body. Documents
// without frontmatter return nil fields and the full input.
func splitFrontmatter(content []byte) (map[string]any, []byte, error) {
	nl := []byte("\n")
	if bytes.HasPrefix(content, []byte("---\r\n")) {
		nl = []byte("\r\n")
	} else if !bytes.HasPrefix(content, []byte("---\n")) {
		return nil, content, nil
	}

	open := append([]byte("---"), nl...)
	rest := content[len(open):]

	var raw, body []byte
	if bytes.HasPrefix(rest, open) {
		body = rest[len(open):]
	} else {
		closing := append(append([]byte{}, nl...), open...)
		idx := bytes.Index(rest, closing)
		if idx < 0 {
			return nil, nil, ErrUnterminatedFrontmatter
		}
		raw = rest[:idx+len(nl)]
		body = rest[idx+len(closing):]
	}

	fields := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := yaml.Unmarshal(raw, &fields); err != nil {
			return nil, nil, fmt.Errorf("parse frontmatter: %w", err)
		}
		if fields == nil {
			fields = map[string]any{}
		}
	}
	return fields, body, nil
}
