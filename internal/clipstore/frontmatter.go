package clipstore

import (
	"strings"
	"time"

	"github.com/starford/clipper/internal/models"
)

var yamlEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
)

func quote(s string) string {
	return `"` + yamlEscaper.Replace(s) + `"`
}

// Frontmatter renders the YAML block that opens every clip file. Field
// order is fixed so files diff cleanly.
func Frontmatter(meta models.ClipMetadata) string {
	var sb strings.Builder

	sb.WriteString("---\n")
	sb.WriteString("title: " + quote(meta.Title) + "\n")
	sb.WriteString("url: " + quote(meta.URL) + "\n")
	sb.WriteString("date: " + quote(meta.Date) + "\n")
	if meta.Author != nil {
		sb.WriteString("author: " + quote(*meta.Author) + "\n")
	}
	if len(meta.Keywords) > 0 {
		quoted := make([]string, len(meta.Keywords))
		for i, k := range meta.Keywords {
			quoted[i] = quote(k)
		}
		sb.WriteString("keywords: [" + strings.Join(quoted, ", ") + "]\n")
	}
	sb.WriteString("clipped_at: " + meta.ClippedAt.Format(time.RFC3339) + "\n")
	if meta.Excerpt != nil {
		sb.WriteString("excerpt: " + quote(*meta.Excerpt) + "\n")
	}
	sb.WriteString("---\n")

	return sb.String()
}

// Render builds the full clip document: frontmatter, H1 title, content.
func Render(meta models.ClipMetadata, content string) []byte {
	heading := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(meta.Title)
	return []byte(Frontmatter(meta) + "\n# " + heading + "\n\n" + content)
}
