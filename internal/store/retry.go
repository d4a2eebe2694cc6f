package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/starford/ansuz/internal/apperr"
)

// Defaults for the retry loop.
const (
	DefaultMaxAttempts = 5
	DefaultBackoffMin  = 50 * time.Millisecond
	DefaultBackoffMax  = 150 * time.Millisecond
)

// Retrier runs the generic read-mutate-conditional-write loop that every
// index mutation goes through. Only version conflicts are retried; any
// other store failure propagates immediately.
type Retrier struct {
	Store       Store
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration

	// OnRetry, when set, observes each lost attempt before the backoff
	// sleep. Purely observational.
	OnRetry func(path string, attempt int, err error)

	// Sleep replaces the backoff sleep in tests. Defaults to a
	// context-aware timer sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a Retrier over s with default bounds.
func NewRetrier(s Store) *Retrier {
	return &Retrier{
		Store:       s,
		MaxAttempts: DefaultMaxAttempts,
		BackoffMin:  DefaultBackoffMin,
		BackoffMax:  DefaultBackoffMax,
	}
}

// Update applies mutate to the document at path under optimistic
// concurrency. On each attempt the document is freshly read (a missing
// document yields a nil base), mutate produces the replacement bytes, and
// the write is conditioned on the version token from this attempt's read.
// mutate must be safe to invoke once per attempt against different base
// states; it is the only consistency mechanism available.
func (r *Retrier) Update(ctx context.Context, path string, mutate func(base []byte) ([]byte, error)) error {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry %s: %w", path, err)
		}

		var base []byte
		var version string
		doc, err := r.Store.Get(ctx, path)
		switch {
		case err == nil:
			base, version = doc.Data, doc.Version
		case errors.Is(err, apperr.ErrNotFound):
			// Synthesize an empty default; the Put below becomes a create.
		default:
			return err
		}

		next, err := mutate(base)
		if err != nil {
			return err
		}

		if _, err := r.Store.Put(ctx, path, next, version); err != nil {
			if !errors.Is(err, apperr.ErrConflict) {
				return err
			}
			if r.OnRetry != nil {
				r.OnRetry(path, attempt, err)
			}
			if attempt < attempts {
				if err := r.sleep(ctx, r.backoff()); err != nil {
					return fmt.Errorf("retry %s: %w", path, err)
				}
			}
			continue
		}
		return nil
	}
	return &apperr.RetryExhaustedError{Path: path, Attempts: attempts}
}

func (r *Retrier) backoff() time.Duration {
	min, max := r.BackoffMin, r.BackoffMax
	if min <= 0 {
		min = DefaultBackoffMin
	}
	if max <= min {
		max = min + DefaultBackoffMax - DefaultBackoffMin
	}
	return min + rand.N(max-min)
}

func (r *Retrier) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
