// Package clipstore persists clips under the storage root and keeps the
// in-memory list of recent clips.
//
// A clip is written first; only a successful write is followed by the
// daily-note reference. Daily-note failures are logged and never undo or
// fail the clip save.
package clipstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/starford/clipper/internal/apperr"
	"github.com/starford/clipper/internal/clock"
	"github.com/starford/clipper/internal/dailynote"
	"github.com/starford/clipper/internal/index"
	"github.com/starford/clipper/internal/models"
	"github.com/starford/clipper/internal/storage"
)

// Clip references one persisted clip file.
type Clip struct {
	// Name is the file name without the .md extension.
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// EventKind identifies a store event.
type EventKind string

const (
	EventClipSaved     EventKind = "clip.saved"
	EventFolderChanged EventKind = "folder.changed"
)

// Event is emitted after a state change. Listeners run synchronously on
// the goroutine that caused the change and must not call back into the
// store's mutating methods.
type Event struct {
	Kind   EventKind
	Layout Layout
	// Clip and Data (the rendered file) are set for EventClipSaved.
	Clip *Clip
	Data []byte
}

// Options configures a Store.
type Options struct {
	Settings index.Settings
	Locator  Locator
	// Root, when set, overrides root resolution and is persisted.
	Root        string
	Clock       clock.Clock
	Logger      *slog.Logger
	RecentLimit int
}

// Store owns the storage root, the recent-clips cache and clip writes.
type Store struct {
	settings index.Settings
	locator  Locator
	clock    clock.Clock
	logger   *slog.Logger
	merger   *dailynote.Merger
	limit    int

	// rootMu is held shared by saves and exclusively by root changes, so
	// a save never spans two roots.
	rootMu sync.RWMutex

	mu        sync.Mutex
	layout    Layout
	fs        *storage.FS
	recent    []Clip
	listeners []func(Event)
}

// Open resolves the storage root, creates its folders and loads the
// recent-clips cache.
func Open(opts Options) (*Store, error) {
	if opts.Settings == nil {
		return nil, fmt.Errorf("clipstore: settings store is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = DefaultRecentLimit
	}

	s := &Store{
		settings: opts.Settings,
		locator:  opts.Locator,
		clock:    opts.Clock,
		logger:   opts.Logger,
		merger:   dailynote.NewMerger(),
		limit:    opts.RecentLimit,
	}

	root, err := s.initialRoot(opts.Root)
	if err != nil {
		return nil, err
	}
	layout, fs, recent, err := s.prepare(root)
	if err != nil {
		return nil, err
	}
	s.layout, s.fs, s.recent = layout, fs, recent

	s.logger.Info("clipstore: ready",
		slog.String("root", layout.Root),
		slog.String("daily", layout.Daily),
		slog.Int("recent", len(recent)))
	return s, nil
}

func (s *Store) initialRoot(forced string) (string, error) {
	if forced == "" {
		return ResolveRoot(s.settings, s.locator)
	}
	abs, err := normalizeRoot(forced, s.locator.Home)
	if err != nil {
		return "", err
	}
	if err := s.settings.SetSetting(SettingBaseFolder, abs); err != nil {
		return "", fmt.Errorf("clipstore: persist base folder: %w", err)
	}
	return abs, nil
}

// prepare creates root and its folders and loads the recent clips from it.
func (s *Store) prepare(root string) (Layout, *storage.FS, []Clip, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return Layout{}, nil, nil, fmt.Errorf("clipstore: create root: %w: %w", apperr.ErrPersistence, err)
	}
	layout := layoutFor(root)
	fs, err := storage.NewFS(root)
	if err != nil {
		return Layout{}, nil, nil, fmt.Errorf("clipstore: %w: %w", apperr.ErrInvalidFolder, err)
	}
	layout.Root = fs.Root()
	for _, dir := range []string{layout.Clippings, layout.Daily} {
		if err := fs.MkdirAll(dir); err != nil {
			return Layout{}, nil, nil, fmt.Errorf("clipstore: %w: %w", apperr.ErrPersistence, err)
		}
	}
	recent, err := LoadRecent(fs, layout.Clippings, s.limit)
	if err != nil {
		s.logger.Warn("clipstore: load recent failed", slog.String("error", err.Error()))
		recent = []Clip{}
	}
	return layout, fs, recent, nil
}

// Subscribe registers fn to receive store events.
func (s *Store) Subscribe(fn func(Event)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) emit(ev Event) {
	s.mu.Lock()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// Layout returns the current storage layout.
func (s *Store) Layout() Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

// Root returns the current storage root.
func (s *Store) Root() string { return s.Layout().Root }

// Provider returns the file provider rooted at the current storage root.
func (s *Store) Provider() storage.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs
}

// Recent returns a copy of the recent clips, newest first.
func (s *Store) Recent() []Clip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Clip(nil), s.recent...)
}

// SaveClipping writes one clip file and records it in today's daily note.
// Errors wrap apperr.ErrPersistence; in that case the daily note is not
// touched.
func (s *Store) SaveClipping(_ context.Context, content string, meta models.ClipMetadata) (Clip, error) {
	if meta.ClippedAt.IsZero() {
		meta.ClippedAt = s.clock.Now()
	}

	s.rootMu.RLock()
	defer s.rootMu.RUnlock()

	s.mu.Lock()
	fs, layout := s.fs, s.layout
	s.mu.Unlock()

	name := ClipName(meta.ClippedAt, meta.Title)
	rel := filepath.Join(layout.Clippings, name+".md")
	data := Render(meta, content)
	if err := fs.Write(rel, data); err != nil {
		return Clip{}, fmt.Errorf("clipstore: save %q: %w: %w", name, apperr.ErrPersistence, err)
	}

	clip := Clip{
		Name:      name,
		Path:      filepath.Join(fs.Root(), rel),
		CreatedAt: meta.ClippedAt,
	}

	s.mu.Lock()
	s.recent = prepend(s.recent, clip, s.limit)
	s.mu.Unlock()

	s.logger.Info("clipstore: clip saved", slog.String("name", name), slog.String("url", meta.URL))

	ref := dailynote.Reference{At: meta.ClippedAt, ClipName: name, URL: meta.URL}
	if err := s.merger.Merge(fs, layout.Daily, ref); err != nil {
		s.logger.Error("clipstore: daily note update failed",
			slog.String("clip", name),
			slog.String("error", err.Error()))
	}

	s.emit(Event{Kind: EventClipSaved, Layout: layout, Clip: &clip, Data: data})
	return clip, nil
}

// UpdateBaseFolder creates the folders under root, persists it as the new
// storage root and reloads the recent clips from it. It waits for saves in
// progress; on error the previous root stays in effect and persisted.
func (s *Store) UpdateBaseFolder(root string) (Layout, error) {
	abs, err := normalizeRoot(root, s.locator.Home)
	if err != nil {
		return Layout{}, err
	}

	s.rootMu.Lock()
	layout, fs, recent, err := s.prepare(abs)
	if err != nil {
		s.rootMu.Unlock()
		return Layout{}, err
	}
	if err := s.settings.SetSetting(SettingBaseFolder, abs); err != nil {
		s.rootMu.Unlock()
		return Layout{}, fmt.Errorf("clipstore: persist base folder: %w", err)
	}

	s.mu.Lock()
	s.layout, s.fs, s.recent = layout, fs, recent
	s.mu.Unlock()
	s.rootMu.Unlock()

	s.logger.Info("clipstore: base folder changed",
		slog.String("root", layout.Root),
		slog.String("daily", layout.Daily))
	s.emit(Event{Kind: EventFolderChanged, Layout: layout})
	return layout, nil
}
