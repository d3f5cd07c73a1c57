package internal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/starford/folio/internal/bookservice"
	"github.com/starford/folio/internal/identity"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/library"
	"github.com/starford/folio/internal/metrics"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/pdfdoc"
	"github.com/starford/folio/internal/progress"
	"github.com/starford/folio/internal/replica"
	"github.com/starford/folio/internal/sse"
	"github.com/starford/folio/internal/storage"
)

// components is the wired object graph shared by every run mode.
type components struct {
	db       *index.DB
	svc      *bookservice.Service
	broker   *sse.Broker
	registry *prometheus.Registry
}

func (c *components) Close() {
	c.broker.Close()
	if err := c.db.Close(); err != nil {
		slog.Error("close index failed", slog.String("error", err.Error()))
	}
}

func newComponents(cfg *Config, logger *slog.Logger) (*components, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	local := replica.NewDir[models.Progress](replica.Local, cfg.Replica.LocalProgressPath(), true)
	central := replica.NewDir[models.Progress](replica.Central, cfg.Replica.CentralProgressPath(), cfg.Replica.Enabled)

	dirs := []bookservice.Ensurer{local}
	if cfg.Replica.Enabled {
		dirs = append(dirs, central)
	}
	if err := bookservice.EnsureDirectories(cfg.Library.BooksPath(), dirs...); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	store, err := storage.NewFS(cfg.Library.BooksPath())
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	ids := identity.New(cfg.Library.HashCachePath(),
		identity.WithMaxEntries(cfg.Cache.HashMaxEntries),
		identity.WithLogger(logger),
		identity.WithMetrics(m))
	parser := pdfdoc.PDF{}
	lib := library.NewCache(ids, parser, logger, m)

	engine := progress.NewEngine(local, central,
		progress.WithCoordinator(progress.NewCoordinator(cfg.Sync.LockTimeout)),
		progress.WithBumpOnTie(cfg.Sync.BumpVersionOnTie),
		progress.WithLogger(logger),
		progress.WithMetrics(m))

	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	broker := sse.NewBroker(2*time.Second, sse.WithMetrics(m))

	svc := bookservice.New(store, db, lib, parser, engine,
		bookservice.WithEvents(broker),
		bookservice.WithLogger(logger),
		bookservice.WithWorkers(cfg.Library.ScanWorkers))

	logger.Info("Components ready",
		slog.String("books_dir", store.Root()),
		slog.String("local_progress", local.Root()),
		slog.String("central_progress", central.Root()),
		slog.Bool("replication_available", engine.ReplicationAvailable()))

	return &components{db: db, svc: svc, broker: broker, registry: registry}, nil
}
