package internal

import (
	"github.com/starford/ansuz/internal/embedder"
	"github.com/starford/ansuz/internal/store"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	store    store.Store
	embedder embedder.Provider
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithStore overrides the document store built from config. Used by
// tests and embedded setups.
func WithStore(s store.Store) Option {
	return func(a *application) {
		a.store = s
	}
}

// WithEmbedder overrides the embedding provider built from config.
func WithEmbedder(p embedder.Provider) Option {
	return func(a *application) {
		a.embedder = p
	}
}
