package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
)

// Memory is an in-process Store with the same content-hash version
// semantics as the remote store. It backs tests and the local dev mode.
type Memory struct {
	mu   sync.Mutex
	docs map[string]Document

	// PutHook, when set, runs before each Put under the store lock.
	// Returning a non-nil error fails the Put with that error. Tests use
	// it to force version conflicts and simulated outages.
	PutHook func(path string, attempt int) error

	puts map[string]int // Put invocations per path
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]Document),
		puts: make(map[string]int),
	}
}

// Get returns the document at path.
func (s *Memory) Get(ctx context.Context, path string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, &apperr.StoreError{Path: path, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[path]
	if !ok {
		return Document{}, fmt.Errorf("store: get %s: %w", path, apperr.ErrNotFound)
	}
	// Copy so callers cannot mutate stored bytes.
	out := Document{Data: append([]byte(nil), doc.Data...), Version: doc.Version}
	return out, nil
}

// Put writes data at path, enforcing the version token when one is given.
func (s *Memory) Put(ctx context.Context, path string, data []byte, expectedVersion string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &apperr.StoreError{Path: path, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.puts[path]++
	if s.PutHook != nil {
		if err := s.PutHook(path, s.puts[path]); err != nil {
			return "", err
		}
	}

	current, exists := s.docs[path]
	if expectedVersion == "" {
		if exists {
			return "", fmt.Errorf("store: put %s: %w", path, apperr.ErrConflict)
		}
	} else if !exists || current.Version != expectedVersion {
		return "", fmt.Errorf("store: put %s: %w", path, apperr.ErrConflict)
	}

	version := checksum.Sum(data)
	s.docs[path] = Document{Data: append([]byte(nil), data...), Version: version}
	return version, nil
}

// PutCount returns how many Put calls path has received, successful or not.
func (s *Memory) PutCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts[path]
}

// Len returns the number of stored documents.
func (s *Memory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}
