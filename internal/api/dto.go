package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/indexes"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/noteservice"
)

// CaptureNoteRequest is the request body for ingesting a note.
type CaptureNoteRequest struct {
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

// Validate validates the capture request.
func (r CaptureNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Type, validation.In(anySlice(models.NoteTypes())...)),
	)
}

// ReclusterRequest optionally forces the cluster count.
type ReclusterRequest struct {
	K int `json:"k,omitempty"`
}

// Validate validates the recluster request.
func (r ReclusterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.K, validation.Min(0)),
	)
}

// DetectGapsRequest carries the optional "is meta" note set. A nil
// MetaIDs means the meta-note check is skipped entirely; an empty list
// means supplied-and-empty.
type DetectGapsRequest struct {
	MetaIDs []string `json:"meta_ids,omitempty"`
}

// ClassifyRelationRequest is the request body for upserting a typed
// relation.
type ClassifyRelationRequest struct {
	NoteA  string `json:"note_a"`
	NoteB  string `json:"note_b"`
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

// Validate validates the classification request.
func (r ClassifyRelationRequest) Validate() error {
	types := indexes.RelationTypes()
	allowed := make([]any, len(types))
	for i, t := range types {
		allowed[i] = string(t)
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.NoteA, validation.Required),
		validation.Field(&r.NoteB, validation.Required),
		validation.Field(&r.Type, validation.Required, validation.In(allowed...)),
	)
}

// CaptureResult is the ingestion response (aliased from the domain layer).
type CaptureResult = noteservice.CaptureResult

// GraphResponse wraps the knowledge graph view.
type GraphResponse struct {
	Nodes []noteservice.GraphNode `json:"nodes"`
	Links []noteservice.GraphLink `json:"links"`
}

// ClustersResponse wraps a cluster listing.
type ClustersResponse struct {
	Clusters   []indexes.Cluster `json:"clusters"`
	ComputedAt string            `json:"computed_at,omitempty"`
}

// SnapshotsResponse wraps the snapshot series with deltas.
type SnapshotsResponse struct {
	Snapshots []noteservice.SnapshotEntry `json:"snapshots"`
}

func anySlice(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
