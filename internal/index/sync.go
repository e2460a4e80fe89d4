package index

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"path/filepath"

	"github.com/starford/clipper/internal/parser"
	"github.com/starford/clipper/internal/storage"
)

// Sync brings the clip index up to date with the clip files in dir
// (relative to the provider root):
//   - new/changed files are parsed and upserted
//   - files no longer on disk (including those under a previous root) are removed
func Sync(db *DB, store storage.Provider, dir string, logger *slog.Logger) error {
	files, err := store.List(dir, ".md")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(files))
	for _, f := range files {
		abs := filepath.Join(store.Root(), f.Path)
		disk[abs] = struct{}{}

		data, err := store.Read(f.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		if checksums[abs] == checksum(data) {
			continue
		}
		if err := IndexClip(db, abs, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", f.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", f.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteClip(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexClip parses the clip file contents and upserts it under path.
func IndexClip(db ClipIndex, path string, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	return db.UpsertClip(ClipRow{
		Path:      path,
		Title:     res.Title,
		URL:       res.URL,
		Checksum:  checksum(data),
		Keywords:  res.Keywords,
		ClippedAt: res.ClippedAt,
	}, res.Body)
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
