package parser

import (
	"testing"
	"time"
)

func TestParse_ClipFile(t *testing.T) {
	input := []byte("---\ntitle: \"Hello, World?!\"\nurl: \"https://x\"\ndate: \"2024-01-01T00:00:00Z\"\nkeywords: [\"go\", \"ipc\", \"go\"]\nclipped_at: 2024-01-01T00:05:00Z\n---\n\n# Hello, World?!\n\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello, World?!" {
		t.Errorf("title = %q", r.Title)
	}
	if r.URL != "https://x" {
		t.Errorf("url = %q", r.URL)
	}
	if len(r.Keywords) != 2 || r.Keywords[0] != "go" || r.Keywords[1] != "ipc" {
		t.Errorf("keywords = %v, want [go ipc]", r.Keywords)
	}
	want := time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)
	if !r.ClippedAt.Equal(want) {
		t.Errorf("clipped_at = %v, want %v", r.ClippedAt, want)
	}
	if r.Body != "# Hello, World?!\n\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_EscapedStrings(t *testing.T) {
	input := []byte("---\ntitle: \"Say \\\"hi\\\" \\\\ now\\nplease\"\n---\nbody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatal(err)
	}
	if r.Title != "Say \"hi\" \\ now\nplease" {
		t.Errorf("title = %q", r.Title)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
	if !r.ClippedAt.IsZero() {
		t.Errorf("clipped_at = %v, want zero", r.ClippedAt)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	fm := map[string]any{"title": "FM Title"}
	if title := deriveTitle(fm, "# H1 Title\ntext"); title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestTimeField_QuotedString(t *testing.T) {
	fm := map[string]any{"clipped_at": "2024-06-01T10:00:00+02:00"}
	got := timeField(fm, "clipped_at")
	if got.IsZero() || got.UTC().Hour() != 8 {
		t.Errorf("got %v", got)
	}
}
