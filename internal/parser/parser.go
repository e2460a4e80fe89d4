// Package parser reads back the frontmatter and heading of stored clips.
package parser

import (
	"bytes"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Result holds the output of parsing a clip file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Title       string
	URL         string
	Keywords    []string
	ClippedAt   time.Time
}

// Parse extracts frontmatter, body and the well-known clip fields from raw
// Markdown bytes. Files without valid frontmatter are treated as body only.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
		URL:         stringField(fm, "url"),
		Keywords:    extractKeywords(fm),
		ClippedAt:   timeField(fm, "clipped_at"),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: keep the whole file as body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

func stringField(fm map[string]interface{}, key string) string {
	if fm == nil {
		return ""
	}
	if s, ok := fm[key].(string); ok {
		return s
	}
	return ""
}

// timeField accepts both YAML timestamps and quoted RFC 3339 strings.
func timeField(fm map[string]interface{}, key string) time.Time {
	if fm == nil {
		return time.Time{}
	}
	switch v := fm[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func extractKeywords(fm map[string]interface{}) []string {
	var out []string
	if fm == nil {
		return out
	}
	raw, ok := fm["keywords"].([]interface{})
	if !ok {
		return out
	}
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if s := stringField(fm, "title"); s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
