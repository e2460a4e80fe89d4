package clipstore

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/clipper/internal/storage"
)

// DefaultRecentLimit is the size of the recent-clips cache.
const DefaultRecentLimit = 10

// LoadRecent lists the clip files in dir (relative to the provider root),
// newest first by creation time, keeping at most limit. Files whose
// creation time is unknown sort as oldest. A missing dir yields no clips.
func LoadRecent(fs storage.Provider, dir string, limit int) ([]Clip, error) {
	files, err := fs.List(dir, ".md")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Clip{}, nil
		}
		return nil, err
	}

	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i].CreatedAt, files[j].CreatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return files[i].Name > files[j].Name
	})

	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	out := make([]Clip, len(files))
	for i, f := range files {
		out[i] = Clip{
			Name:      strings.TrimSuffix(f.Name, ".md"),
			Path:      filepath.Join(fs.Root(), f.Path),
			CreatedAt: f.CreatedAt,
		}
	}
	return out, nil
}

// ListRecent reads the recent clips under root without opening a Store.
// A missing root yields no clips.
func ListRecent(root string, limit int) ([]Clip, error) {
	if !isDir(root) {
		return []Clip{}, nil
	}
	fs, err := storage.NewFS(root)
	if err != nil {
		return nil, err
	}
	return LoadRecent(fs, clippingsDir, limit)
}

// prepend puts c at the front of list, dropping an older entry for the
// same path and anything beyond limit.
func prepend(list []Clip, c Clip, limit int) []Clip {
	out := make([]Clip, 0, limit)
	out = append(out, c)
	for _, existing := range list {
		if len(out) == limit {
			break
		}
		if existing.Path == c.Path {
			continue
		}
		out = append(out, existing)
	}
	return out
}
