// Package clipservice is the facade shared by the loopback API and the MCP
// server. It also keeps the clip index in step with the store.
package clipservice

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/clipper/internal/apperr"
	"github.com/starford/clipper/internal/clipstore"
	"github.com/starford/clipper/internal/clock"
	"github.com/starford/clipper/internal/host"
	"github.com/starford/clipper/internal/index"
	"github.com/starford/clipper/internal/models"
	"github.com/starford/clipper/internal/parser"
)

// ClipDetail is the full representation of a stored clip.
type ClipDetail struct {
	Name        string         `json:"name"`
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	Keywords    []string       `json:"keywords"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Content     string         `json:"content"`
}

// Service coordinates the clip store, the dispatcher and the index.
type Service struct {
	store      *clipstore.Store
	db         *index.DB
	dispatcher *host.Dispatcher
	clock      clock.Clock
	logger     *slog.Logger
}

// NewService creates a new clip service and subscribes the index to store
// events.
func NewService(store *clipstore.Store, db *index.DB, d *host.Dispatcher, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, db: db, dispatcher: d, clock: clk, logger: logger}
	store.Subscribe(s.onStoreEvent)
	return s
}

func (s *Service) onStoreEvent(ev clipstore.Event) {
	switch ev.Kind {
	case clipstore.EventClipSaved:
		if err := index.IndexClip(s.db, ev.Clip.Path, ev.Data); err != nil {
			s.logger.Warn("clipservice: index clip failed",
				slog.String("path", ev.Clip.Path),
				slog.String("error", err.Error()))
		}
	case clipstore.EventFolderChanged:
		s.Sync()
	}
}

// Sync reconciles the index with the clip files under the current root.
func (s *Service) Sync() {
	layout := s.store.Layout()
	if err := index.Sync(s.db, s.store.Provider(), layout.Clippings, s.logger); err != nil {
		s.logger.Warn("clipservice: sync failed", slog.String("error", err.Error()))
	}
}

// Submit processes a raw native-messaging payload. Bad input wraps
// apperr.ErrProtocol.
func (s *Service) Submit(ctx context.Context, payload []byte) (clipstore.Clip, error) {
	return s.dispatcher.Handle(ctx, payload)
}

// SaveClip stores content with loosely-typed metadata, normalized the same
// way as native messages.
func (s *Service) SaveClip(ctx context.Context, content string, raw models.RawMetadata) (clipstore.Clip, error) {
	return s.store.SaveClipping(ctx, content, raw.Normalize(s.clock.Now()))
}

// Recent returns the most recent clips, newest first.
func (s *Service) Recent(_ context.Context) []clipstore.Clip {
	return s.store.Recent()
}

// Search runs a query against the clip index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// GetClip reads the clip named name (without extension) under the
// current root.
func (s *Service) GetClip(_ context.Context, name string) (*ClipDetail, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return nil, apperr.ErrNotFound
	}
	layout := s.store.Layout()
	fs := s.store.Provider()
	rel := filepath.Join(layout.Clippings, name+".md")

	data, err := fs.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return &ClipDetail{
		Name:        name,
		Path:        filepath.Join(fs.Root(), rel),
		Title:       res.Title,
		URL:         res.URL,
		Keywords:    nonNilSlice(res.Keywords),
		Frontmatter: res.Frontmatter,
		Content:     string(data),
	}, nil
}

// BaseFolder returns the current storage layout.
func (s *Service) BaseFolder(_ context.Context) clipstore.Layout {
	return s.store.Layout()
}

// SetBaseFolder moves the storage root to path.
func (s *Service) SetBaseFolder(_ context.Context, path string) (clipstore.Layout, error) {
	return s.store.UpdateBaseFolder(path)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
