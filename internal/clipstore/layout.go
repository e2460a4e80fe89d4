package clipstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/clipper/internal/apperr"
	"github.com/starford/clipper/internal/index"
)

// SettingBaseFolder is the settings key holding the storage root.
const SettingBaseFolder = "base_folder"

const (
	clippingsDir      = "clippings"
	dailyDir          = "daily"
	dailyDirCapitalAt = "Daily"
)

// Locator holds the inputs for resolving the storage root.
type Locator struct {
	// FolderName is the conventional root folder name, looked up under
	// Home and created under Documents.
	FolderName string
	Home       string
	Documents  string
}

// DefaultLocator fills Home and Documents from the environment.
// documents overrides the documents directory when non-empty.
func DefaultLocator(folderName, documents string) (Locator, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Locator{}, fmt.Errorf("clipstore: home dir: %w", err)
	}
	if documents == "" {
		documents = os.Getenv("XDG_DOCUMENTS_DIR")
	}
	if documents == "" {
		documents = filepath.Join(home, "Documents")
	}
	return Locator{FolderName: folderName, Home: home, Documents: documents}, nil
}

// ResolveRoot picks the storage root: the persisted value if that directory
// still exists, then an existing <home>/<FolderName>, then
// <documents>/<FolderName>. The result is not created or persisted.
func ResolveRoot(settings index.Settings, loc Locator) (string, error) {
	persisted, ok, err := settings.Setting(SettingBaseFolder)
	if err != nil {
		return "", fmt.Errorf("clipstore: read base folder: %w", err)
	}
	if ok && persisted != "" && isDir(persisted) {
		return persisted, nil
	}
	if conventional := filepath.Join(loc.Home, loc.FolderName); isDir(conventional) {
		return conventional, nil
	}
	return filepath.Join(loc.Documents, loc.FolderName), nil
}

// DailyFolderName returns "Daily" when a directory with exactly that name
// exists under root, otherwise "daily". Names are compared from the
// directory listing so case-insensitive file systems behave the same.
func DailyFolderName(root string) string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return dailyDir
	}
	for _, e := range entries {
		if e.IsDir() && e.Name() == dailyDirCapitalAt {
			return dailyDirCapitalAt
		}
	}
	return dailyDir
}

// Layout is the set of folders derived from a storage root.
type Layout struct {
	Root      string `json:"root"`
	Clippings string `json:"clippings"`
	Daily     string `json:"daily"`
}

func layoutFor(root string) Layout {
	return Layout{Root: root, Clippings: clippingsDir, Daily: DailyFolderName(root)}
}

// normalizeRoot expands a leading "~" and makes the path absolute.
func normalizeRoot(root, home string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return "", fmt.Errorf("clipstore: empty folder: %w", apperr.ErrInvalidFolder)
	}
	if root == "~" || strings.HasPrefix(root, "~/") {
		root = filepath.Join(home, strings.TrimPrefix(root, "~"))
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("clipstore: resolve %s: %w", root, apperr.ErrInvalidFolder)
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		return "", fmt.Errorf("clipstore: %s is not a directory: %w", abs, apperr.ErrInvalidFolder)
	}
	return abs, nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
