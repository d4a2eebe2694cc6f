// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/embedder"
	"github.com/starford/ansuz/internal/indexes"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/store"
)

// buildService wires the store, retry loop, repository, embedder, and
// graph service from the application options.
func buildService(app *application, notify noteservice.Notifier) (*noteservice.Service, error) {
	cfg := app.config

	st := app.store
	if st == nil {
		switch cfg.Store.Mode {
		case "memory":
			st = store.NewMemory()
		default:
			st = store.NewHTTP(cfg.Store.BaseURL, cfg.Store.Token, cfg.Store.Timeout())
		}
	}

	retrier := store.NewRetrier(st)
	retrier.MaxAttempts = cfg.Retry.MaxAttempts
	retrier.BackoffMin = cfg.Retry.BackoffMinMS * time.Millisecond
	retrier.BackoffMax = cfg.Retry.BackoffMaxMS * time.Millisecond
	retrier.OnRetry = func(path string, attempt int, err error) {
		slog.Warn("version race lost, retrying",
			slog.String("path", path),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
	}

	emb := app.embedder
	if emb == nil {
		emb = embedder.NewOllama(cfg.Embedder.BaseURL, cfg.Embedder.Model, cfg.Embedder.Timeout())
	}

	repo := indexes.NewRepository(st, retrier)
	return noteservice.NewService(st, repo, emb, noteservice.Config{
		SimilarityThreshold:   cfg.Graph.SimilarityThreshold,
		OutlierThreshold:      cfg.Graph.OutlierThreshold,
		DecayScoreThreshold:   cfg.Graph.DecayScoreThreshold,
		TensionThreshold:      cfg.Graph.TensionThreshold,
		CloseClusterThreshold: cfg.Graph.CloseClusterThreshold,
		ClusterKMin:           cfg.Graph.ClusterKMin,
		ClusterKMax:           cfg.Graph.ClusterKMax,
		ClusterMaxIterations:  cfg.Graph.ClusterMaxIterations,
	}, notify), nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_mode", cfg.Store.Mode),
		slog.String("embedding_model", cfg.Embedder.Model),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker fed by service notifications.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc, err := buildService(app, broker.Publish)
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the graph tools over MCP stdio with the given options.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	// MCP owns stdout; log to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)

	svc, err := buildService(app, nil)
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}
	return mcpserver.New(svc).ServeStdio()
}
