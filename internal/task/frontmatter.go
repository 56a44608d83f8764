// Package task walks phase directories and task descriptor files on disk
// and resolves them, together with authoritative phase metadata, into
// typed core.Task records.
package task

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatterDelim matches the teacher's report.Frontmatter writer
// convention: a YAML block opened and closed by a bare "---" line.
const frontMatterDelim = "---"

// descriptorFields is the raw key-value shape of a task descriptor's
// front matter, decoded loosely (strings, string slices, or scalars that
// get coerced) before being mapped onto core.Task fields.
type descriptorFields map[string]any

// splitFrontMatter separates a leading "---\n...\n---\n" YAML block from
// the remaining markdown body. If no front matter is present, fields is
// nil and body is the entire input.
func splitFrontMatter(content []byte) (fields descriptorFields, body string, err error) {
	text := string(content)
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontMatterDelim {
		return nil, text, nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontMatterDelim {
			end = i
			break
		}
	}
	if end < 0 {
		// Opening delimiter with no close: treat the whole thing as body.
		return nil, text, nil
	}

	yamlBlock := strings.Join(lines[1:end], "\n")
	rest := ""
	if end+1 < len(lines) {
		rest = strings.Join(lines[end+1:], "\n")
	}

	var decoded descriptorFields
	dec := yaml.NewDecoder(bytes.NewReader([]byte(yamlBlock)))
	if err := dec.Decode(&decoded); err != nil {
		return nil, text, err
	}
	return decoded, strings.TrimLeft(rest, "\n"), nil
}

// stringField reads a string-typed field trying each of the given keys in
// order (for "name|title" style aliases), returning the first non-empty
// match.
func (f descriptorFields) stringField(keys ...string) string {
	for _, k := range keys {
		v, ok := f[k]
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// stringSliceField reads a string-slice field, tolerating a YAML block
// list, a flow list, or a single scalar treated as a one-element list.
func (f descriptorFields) stringSliceField(keys ...string) []string {
	for _, k := range keys {
		v, ok := f[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case []any:
			out := make([]string, 0, len(t))
			for _, item := range t {
				out = append(out, toString(item))
			}
			return out
		case string:
			if t == "" {
				continue
			}
			parts := strings.Split(t, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					out = append(out, p)
				}
			}
			return out
		}
	}
	return nil
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
