// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/api"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/mcpserver"
	"github.com/starford/folio/pkg/logger"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{mode: ModeServe, version: "dev", out: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// mcp speaks JSON-RPC on stdout; sync prints hashes there.
	log, closer := logger.New(logger.Options{
		Level:  cfg.App.LogLevel,
		File:   cfg.App.LogFile,
		Stderr: app.mode != ModeServe,
	})
	defer closer.Close()
	slog.SetDefault(log)

	log.Info("Configuration loaded",
		slog.String("mode", string(app.mode)),
		slog.String("config_file", app.configFile),
		slog.Bool("config_file_found", app.configFound),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_root", cfg.Library.Root),
		slog.String("index_path", cfg.Index.Path),
		slog.Bool("replica_enabled", cfg.Replica.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := newComponents(cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	switch app.mode {
	case ModeServe:
		return serve(ctx, app, c, log)
	case ModeMCP:
		initialScan(ctx, c, log, false)
		return mcpserver.New(c.svc, app.version).ServeStdio()
	case ModeSync:
		return syncOnce(ctx, app.out, c, log)
	default:
		return fmt.Errorf("unknown mode %q", app.mode)
	}
}

// initialScan indexes the books directory and optionally reconciles progress
// for every catalogued book. Failures are logged, not fatal.
func initialScan(ctx context.Context, c *components, log *slog.Logger, sync bool) {
	if _, err := c.svc.ScanBooks(ctx); err != nil {
		log.Warn("initial scan failed", slog.String("error", err.Error()))
		return
	}
	if !sync {
		return
	}
	changed, err := c.svc.SyncAll(ctx, nil)
	if err != nil {
		log.Warn("initial progress sync failed", slog.String("error", err.Error()))
		return
	}
	log.Info("initial progress sync complete", slog.Int("changed", len(changed)))
}

func syncOnce(ctx context.Context, out io.Writer, c *components, log *slog.Logger) error {
	if _, err := c.svc.ScanBooks(ctx); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	changed, err := c.svc.SyncAll(ctx, nil)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	log.Info("progress sync complete", slog.Int("changed", len(changed)))
	if len(changed) > 0 {
		_, _ = fmt.Fprintln(out, strings.Join(changed, "\n"))
	}
	return nil
}

func serve(ctx context.Context, app *application, c *components, log *slog.Logger) error {
	cfg := app.config

	initialScan(ctx, c, log, true)

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, c.broker)

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
		replication := "available"
		if !c.svc.ReplicationAvailable() {
			replication = "local_only"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","replication":%q}`, replication)
	})

	r.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	// Rescan on books directory changes; the broker fans out the events.
	g.Go(func() error {
		err := index.Watch(gCtx, c.svc.BooksDir(), index.DefaultDebounce, log, func() {
			c.svc.Rescan(gCtx)
		})
		if err != nil {
			log.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		log.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
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
			log.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			log.Info("Context cancelled, initiating shutdown")
		}

		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		c.broker.Close()
		stop()

		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	log.Info("Server stopped successfully")
	return nil
}
