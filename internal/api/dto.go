package api

import (
	"github.com/starford/clipper/internal/clipstore"
	"github.com/starford/clipper/internal/index"
)

// RecentResponse wraps the recent-clips listing.
type RecentResponse struct {
	Clips []clipstore.Clip `json:"clips"`
}

// CreateClipResponse mirrors the native-messaging response and adds the
// stored clip on success.
type CreateClipResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Clip    *clipstore.Clip `json:"clip,omitempty"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}

// BaseFolderRequest is the request body for moving the storage root.
type BaseFolderRequest struct {
	Path string `json:"path"`
}
