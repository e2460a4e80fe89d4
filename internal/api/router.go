package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/clipper/internal/clipservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *clipservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/clips/recent", h.RecentClips)
	r.Get("/clips/search", h.Search)
	r.Get("/clips/{name}", h.GetClip)
	r.Post("/clips", h.CreateClip)

	r.Get("/settings/base-folder", h.GetBaseFolder)
	r.Put("/settings/base-folder", h.SetBaseFolder)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
