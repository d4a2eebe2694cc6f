// Package store defines the versioned document-store abstraction backing
// all notes and indexes, plus the optimistic-concurrency retry loop that
// substitutes for transactions.
package store

import "context"

// Document is one stored blob together with its version token (the
// content hash of the revision that was read).
type Document struct {
	Data    []byte
	Version string
}

// Store is the interface for the remote blob store. Implementations
// distinguish a missing document (apperr.ErrNotFound), a version-token
// mismatch (apperr.ErrConflict), and any other failure
// (*apperr.StoreError). A Store never retries on its own.
type Store interface {
	// Get returns the document at path with its current version token.
	Get(ctx context.Context, path string) (Document, error)
	// Put writes data at path and returns the new version token.
	// An empty expectedVersion creates the document; a non-empty one is
	// a conditional update that fails with apperr.ErrConflict when the
	// store's current version differs.
	Put(ctx context.Context, path string, data []byte, expectedVersion string) (string, error)
}
