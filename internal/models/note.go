// Package models defines the domain types for Ansuz.
package models

import (
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
)

// Note types. Meta notes summarize a topic cluster; the rest classify
// what a short note captures.
const (
	TypeNote      = "note"
	TypeIdea      = "idea"
	TypeQuestion  = "question"
	TypeReference = "reference"
	TypeMeta      = "meta"
)

// NoteTypes lists the allowed note types.
func NoteTypes() []string {
	return []string{TypeNote, TypeIdea, TypeQuestion, TypeReference, TypeMeta}
}

// ValidType reports whether t is an allowed note type.
func ValidType(t string) bool {
	switch t {
	case TypeNote, TypeIdea, TypeQuestion, TypeReference, TypeMeta:
		return true
	}
	return false
}

// Note is one short knowledge-graph note. Its document is create-only:
// written once at ingestion and never contended.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// idTimeFormat is the sortable creation-time prefix of a note id.
const idTimeFormat = "20060102T150405.000000000Z"

// NewNote normalizes content, derives the note id, and attaches
// metadata. No I/O. Empty content or an unknown type is rejected before
// any store access.
func NewNote(content, noteType string, now time.Time) (*Note, error) {
	normalized := normalize(content)
	if normalized == "" {
		return nil, apperr.Validation("note content is empty")
	}
	if noteType == "" {
		noteType = TypeNote
	}
	if !ValidType(noteType) {
		return nil, apperr.Validation("unknown note type %q", noteType)
	}
	created := now.UTC()
	return &Note{
		ID:        NoteID(normalized, created),
		Content:   normalized,
		Type:      noteType,
		CreatedAt: created,
	}, nil
}

// NoteID derives the opaque sortable note id: a creation-time prefix
// followed by a content-hash suffix. Ids are never reused.
func NoteID(content string, created time.Time) string {
	return created.UTC().Format(idTimeFormat) + "-" + checksum.Short([]byte(content), 12)
}

// NotePath returns the store path of a note document.
func NotePath(id string) string {
	return "notes/" + id + ".json"
}

// normalize collapses line endings and trims surrounding whitespace so
// identical notes hash identically regardless of client platform.
func normalize(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.TrimSpace(content)
}
