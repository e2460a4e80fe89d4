package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/clipper/internal/apperr"
	"github.com/starford/clipper/internal/clipservice"
	"github.com/starford/clipper/internal/framing"
	"github.com/starford/clipper/internal/host"
)

// Handler holds API route handlers.
type Handler struct {
	svc *clipservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *clipservice.Service) *Handler {
	return &Handler{svc: svc}
}

// RecentClips handles GET /api/clips/recent.
func (h *Handler) RecentClips(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RecentResponse{Clips: h.svc.Recent(r.Context())})
}

// GetClip handles GET /api/clips/{name}.
func (h *Handler) GetClip(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	clip, err := h.svc.GetClip(r.Context(), name)
	if err != nil {
		writeError(w, "get clip", err)
		return
	}
	writeJSON(w, http.StatusOK, clip)
}

// CreateClip handles POST /api/clips. The body is the same JSON object the
// browser sends over native messaging.
func (h *Handler) CreateClip(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, framing.MaxPayload)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("request body too large"))
		return
	}

	clip, err := h.svc.Submit(r.Context(), body)
	if err != nil {
		if errors.Is(err, apperr.ErrProtocol) {
			writeJSON(w, http.StatusBadRequest, CreateClipResponse{Success: false, Error: err.Error()})
		} else {
			slog.Error("api: create clip failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, CreateClipResponse{Success: false, Error: err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusCreated, CreateClipResponse{
		Success: true,
		Message: host.SavedMessage,
		Clip:    &clip,
	})
}

// Search handles GET /api/clips/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// GetBaseFolder handles GET /api/settings/base-folder.
func (h *Handler) GetBaseFolder(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.BaseFolder(r.Context()))
}

// SetBaseFolder handles PUT /api/settings/base-folder.
func (h *Handler) SetBaseFolder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var req BaseFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	layout, err := h.svc.SetBaseFolder(r.Context(), req.Path)
	if err != nil {
		writeError(w, "set base folder", err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}
