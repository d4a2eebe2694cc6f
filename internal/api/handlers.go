package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/indexes"
	"github.com/starford/ansuz/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// CaptureNote handles POST /notes.
func (h *Handler) CaptureNote(w http.ResponseWriter, r *http.Request) {
	var req CaptureNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	res, err := h.svc.CaptureNote(r.Context(), req.Content, req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// GetNote handles GET /notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// GetLinks handles GET /notes/{id}/links.
func (h *Handler) GetLinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	links, err := h.svc.Links(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"note_id": id, "links": links})
}

// Graph handles GET /graph.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.GraphView(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Links: links})
}

// Recluster handles POST /clusters/rebuild.
func (h *Handler) Recluster(w http.ResponseWriter, r *http.Request) {
	var req ReclusterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	idx, err := h.svc.Recluster(r.Context(), req.K)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"clusters":    len(idx.Clusters),
		"computed_at": idx.ComputedAt,
	})
}

// ListClusters handles GET /clusters with an optional ?id= filter.
func (h *Handler) ListClusters(w http.ResponseWriter, r *http.Request) {
	clusters, computedAt, err := h.svc.Clusters(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := ClustersResponse{Clusters: clusters}
	if !computedAt.IsZero() {
		resp.ComputedAt = computedAt.Format(time.RFC3339Nano)
	}
	writeJSON(w, http.StatusOK, resp)
}

// DetectTensions handles POST /tensions/detect.
func (h *Handler) DetectTensions(w http.ResponseWriter, r *http.Request) {
	idx, err := h.svc.DetectTensions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

// ListTensions handles GET /tensions.
func (h *Handler) ListTensions(w http.ResponseWriter, r *http.Request) {
	idx, err := h.svc.Tensions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

// ScoreDecay handles POST /decay/score.
func (h *Handler) ScoreDecay(w http.ResponseWriter, r *http.Request) {
	idx, err := h.svc.ScoreDecay(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

// ListDecay handles GET /decay.
func (h *Handler) ListDecay(w http.ResponseWriter, r *http.Request) {
	idx, err := h.svc.Decay(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

// DetectGaps handles POST /explorations/detect.
func (h *Handler) DetectGaps(w http.ResponseWriter, r *http.Request) {
	var req DetectGapsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	idx, err := h.svc.DetectGaps(r.Context(), req.MetaIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

// ListExplorations handles GET /explorations.
func (h *Handler) ListExplorations(w http.ResponseWriter, r *http.Request) {
	idx, err := h.svc.Explorations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

// Relink handles POST /relink: a full backlink rebuild.
func (h *Handler) Relink(w http.ResponseWriter, r *http.Request) {
	links, err := h.svc.Relink(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": links})
}

// ClassifyRelation handles PUT /relations.
func (h *Handler) ClassifyRelation(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRelationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	rel, err := h.svc.ClassifyRelation(r.Context(), req.NoteA, req.NoteB,
		indexes.RelationType(req.Type), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

// ListRelations handles GET /relations with an optional
// ?unclassified=true flag that returns linked pairs lacking a
// classification instead.
func (h *Handler) ListRelations(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("unclassified") == "true" {
		pairs, err := h.svc.UnclassifiedPairs(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"unclassified": pairs})
		return
	}
	rels, err := h.svc.Relations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"relations": rels})
}

// CaptureSnapshot handles POST /snapshots.
func (h *Handler) CaptureSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.CaptureSnapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// ListSnapshots handles GET /snapshots with an optional RFC 3339
// ?since= filter.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("since must be RFC 3339"))
			return
		}
		since = &t
	}
	entries, err := h.svc.Snapshots(r.Context(), since)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SnapshotsResponse{Snapshots: entries})
}
