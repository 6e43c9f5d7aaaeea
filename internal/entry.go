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

	"github.com/starford/folio/internal/api"
	"github.com/starford/folio/internal/entityservice"
	"github.com/starford/folio/internal/mcpserver"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/mutation"
	"github.com/starford/folio/internal/scope"
	"github.com/starford/folio/internal/sse"
	"github.com/starford/folio/internal/store"
	"github.com/starford/folio/internal/teams"
)

func newApplication(opts []Option, defaultLogOut *os.File) (*application, *slog.Logger, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	if app.logOut == nil {
		app.logOut = defaultLogOut
	}

	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

// Run starts the HTTP backend with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("teams_path", cfg.Teams.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	if cfg.Teams.Path != "" {
		if _, err := teams.Sync(db, cfg.Teams.Path, logger); err != nil {
			logger.Warn("initial teams sync failed", slog.String("error", err.Error()))
		}
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := entityservice.NewService(db, logger)
	apiRouter := api.NewRouter(svc, api.RouterConfig{
		AuthEnabled:       cfg.Auth.AuthEnabled(),
		Token:             cfg.Auth.Token,
		RequestsPerSecond: cfg.Limits.RequestsPerSecond,
		Burst:             cfg.Limits.Burst,
		Events:            broker,
	})

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
		if _, err := db.ListTeams(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Teams.Path != "" && cfg.Teams.Watch {
		g.Go(func() error {
			err := teams.Watch(gCtx, db, cfg.Teams.Path, logger, func(slugs []string) {
				for _, slug := range slugs {
					broker.Publish(sse.Event{Type: "teams.updated", Data: map[string]string{"slug": slug}})
				}
			})
			if err != nil {
				logger.Warn("teams watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

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

// RunMCP serves the MCP tools on stdio. With gateway.base_url set, reads and
// mutations go to that backend over HTTP; otherwise the local store is used.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	cfg := app.config

	var (
		reader    mcpserver.Reader
		transport mutation.Transport
	)
	if cfg.Gateway.BaseURL != "" {
		remote := mutation.NewHTTPTransport(mutation.HTTPConfig{
			BaseURL:     cfg.Gateway.BaseURL,
			Token:       cfg.Gateway.Token,
			Timeout:     cfg.Gateway.Timeout,
			MaxFailures: cfg.Gateway.Breaker.MaxFailures,
			OpenTimeout: cfg.Gateway.Breaker.OpenTimeout,
		}, logger)
		reader, transport = remote, remote
		logger.Info("mcp: using remote backend", slog.String("base_url", cfg.Gateway.BaseURL))
	} else {
		db, err := store.Open(cfg.SQLite.Path)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		defer db.Close()
		svc := entityservice.NewService(db, logger)
		reader, transport = svc, api.NewLocalTransport(svc, nil)
		logger.Info("mcp: using local store", slog.String("sqlite_path", cfg.SQLite.Path))
	}

	gw := mutation.NewGateway(transport, logger)
	defer gw.Wait()

	sc := scope.New()
	sc.Write(scope.Snapshot{CurrentUser: &models.User{ID: cfg.MCP.AnnotatorID}})

	srv := mcpserver.New(reader, gw, sc, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
