// Package dailynote routes clip references into the per-day journal.
//
// Each day file carries at most one "## Clippings" heading. New references
// are inserted directly below it, so the newest entry is always first.
package dailynote

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/starford/clipper/internal/storage"
)

// Heading is the section that collects clip references.
const Heading = "## Clippings"

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var headingRe = regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(Heading) + `[ \t]*\r?$`)

// Reference is one clip reference to record in the daily note.
type Reference struct {
	// At selects the day file and the HH:MM stamp.
	At time.Time
	// ClipName is the clip filename without its extension.
	ClipName string
	URL      string
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Line renders the reference as a single-line markdown list item. Line
// breaks in the URL are flattened to spaces.
func (r Reference) Line() string {
	return fmt.Sprintf("- %s - [[clippings/%s]] - %s", r.At.Format(timeLayout), r.ClipName, lineBreaks.Replace(r.URL))
}

// FileName returns the day file name for t.
func FileName(t time.Time) string {
	return t.Format(dateLayout) + ".md"
}

// Skeleton is the initial content of a day file that does not exist yet.
func Skeleton(t time.Time) string {
	return "# Daily Note - " + t.Format(dateLayout) + "\n\n## Tasks\n\n## Notes\n\n"
}

// Insert places line directly below the Clippings heading of text,
// appending the heading first when it is missing. Content outside the
// section is left untouched.
func Insert(text, line string) string {
	loc := headingRe.FindStringIndex(text)
	if loc == nil {
		if text != "" && !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		text += "\n" + Heading + "\n"
		loc = headingRe.FindStringIndex(text)
	}
	end := loc[1]
	if nl := strings.IndexByte(text[end:], '\n'); nl >= 0 {
		pos := end + nl + 1
		return text[:pos] + line + "\n" + text[pos:]
	}
	return text + "\n" + line + "\n"
}

// Merger applies references to day files. Merges on the same file are
// serialized; different files proceed independently.
type Merger struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMerger creates a Merger.
func NewMerger() *Merger {
	return &Merger{locks: make(map[string]*sync.Mutex)}
}

func (m *Merger) lockFor(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// Merge records ref in the day file under dir (relative to the provider
// root) and rewrites the whole file.
func (m *Merger) Merge(fs storage.Provider, dir string, ref Reference) error {
	rel := filepath.Join(dir, FileName(ref.At))

	l := m.lockFor(filepath.Join(fs.Root(), rel))
	l.Lock()
	defer l.Unlock()

	var text string
	data, err := fs.Read(rel)
	switch {
	case err == nil:
		text = string(data)
	case errors.Is(err, os.ErrNotExist):
		text = Skeleton(ref.At)
	default:
		return fmt.Errorf("dailynote: read %s: %w", rel, err)
	}

	if err := fs.Write(rel, []byte(Insert(text, ref.Line()))); err != nil {
		return fmt.Errorf("dailynote: write %s: %w", rel, err)
	}
	return nil
}
