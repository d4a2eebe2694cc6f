package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Note ingestion and reads.
	r.Post("/notes", h.CaptureNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Get("/notes/{id}/links", h.GetLinks)

	// Graph view.
	r.Get("/graph", h.Graph)

	// Derived-index passes and reads.
	r.Post("/clusters/rebuild", h.Recluster)
	r.Get("/clusters", h.ListClusters)
	r.Post("/tensions/detect", h.DetectTensions)
	r.Get("/tensions", h.ListTensions)
	r.Post("/decay/score", h.ScoreDecay)
	r.Get("/decay", h.ListDecay)
	r.Post("/explorations/detect", h.DetectGaps)
	r.Get("/explorations", h.ListExplorations)
	r.Post("/relink", h.Relink)

	// Typed relations.
	r.Put("/relations", h.ClassifyRelation)
	r.Get("/relations", h.ListRelations)

	// Snapshots.
	r.Post("/snapshots", h.CaptureSnapshot)
	r.Get("/snapshots", h.ListSnapshots)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
