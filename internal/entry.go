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
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/boardservice"
	"github.com/starford/raido/internal/collab"
	"github.com/starford/raido/internal/generate"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// logger builds the structured JSON logger and installs it as default.
func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// core holds the components shared by the HTTP and MCP front ends.
type core struct {
	store   *storage.FS
	db      *index.DB
	hub     *collab.Hub
	relay   *collab.Relay
	rdb     *redis.Client
	catalog *sse.Broker
	svc     *boardservice.Service
}

func openCore(cfg *Config, logger *slog.Logger) (*core, error) {
	// Ensure board directory exists.
	if err := os.MkdirAll(cfg.Storage.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create board dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	c := &core{store: store, db: db}
	c.hub = collab.NewHub(cfg.Collab.CursorThrottle, logger)
	c.catalog = sse.NewBroker(2 * time.Second)

	var broker collab.Broker = c.hub
	if cfg.Collab.RelayEnabled() {
		c.rdb = redis.NewClient(&redis.Options{Addr: cfg.Collab.RedisAddr})
		c.relay = collab.NewRelay(c.hub, c.rdb, cfg.Collab.RedisChannel, logger)
		broker = c.relay
	}

	c.svc = boardservice.NewService(store, db,
		boardservice.WithBroker(broker),
		boardservice.WithCatalog(c.catalog.BoardChanged),
		boardservice.WithGenerator(generate.Template{}),
		boardservice.WithStrictReferences(cfg.Editor.StrictReferences),
		boardservice.WithLogger(logger),
	)

	if err := index.CompileDiagrams(store, cfg.Storage.Path, c.svc.Compiler(), logger); err != nil {
		logger.Warn("diagram compile failed", slog.String("error", err.Error()))
	}
	// Run initial sync.
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return c, nil
}

// broker is where WebSocket clients publish: the relay when enabled.
func (c *core) broker() collab.Broker {
	if c.relay != nil {
		return c.relay
	}
	return c.hub
}

func (c *core) Close() {
	c.hub.Close()
	c.catalog.Close()
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	_ = c.db.Close()
}

func healthOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// router builds the top-level HTTP handler.
func (c *core) router(cfg *Config, logger *slog.Logger) http.Handler {
	ws := collab.NewWSHandler(c.broker(), c.svc, logger)
	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, c.hub, ws, c.catalog)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", healthOK)
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		if _, err := c.db.AllChecksums(); err != nil {
			logger.Error("readiness check failed", slog.String("error", err.Error()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		healthOK(w, req)
	})

	// Attachments are served unauthenticated so image elements can load them.
	r.Get("/attachments/{filename}", api.NewAttachmentHandler(c.svc).ServeFile)

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)
	return r
}

// Run starts the HTTP server, the file watcher and, when configured, the
// Redis relay.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.Bool("relay", cfg.Collab.RelayEnabled()))

	c, err := openCore(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           c.router(cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher; external edits are broadcast to board subscribers.
	g.Go(func() error {
		if err := index.Watch(gCtx, c.db, c.store, cfg.Storage.Path, logger, c.svc.Compiler(), c.svc.FileChanged); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	if c.relay != nil {
		g.Go(func() error {
			return c.relay.Run(gCtx)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
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

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Close live streams first so Shutdown does not wait on them.
		c.hub.Close()
		c.catalog.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context once the server has stopped.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to the configured
// log output, which must not be stdout.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()

	c, err := openCore(app.config, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	logger.Info("MCP server starting", slog.String("storage_path", app.config.Storage.Path))
	return mcpserver.New(c.svc, app.version).ServeStdio()
}
