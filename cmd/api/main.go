package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inventory_backend/internal/events"
	apphttp "inventory_backend/internal/http"
	"inventory_backend/internal/http/router"
	"inventory_backend/internal/scheduler"
	"inventory_backend/internal/search"
	"inventory_backend/internal/search/analytics"
	"inventory_backend/internal/search/capability"
	searchrepo "inventory_backend/internal/search/repository"
	"inventory_backend/platform/config"
	"inventory_backend/platform/db"
	"inventory_backend/platform/logger"
	"inventory_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Probe optional extensions once; the cache serves every request after.
	caps := capability.NewCache(capability.NewProber(pool, log))
	status := caps.Refresh(ctx)
	log.Info("search capabilities probed",
		"pg_trgm", status.PgTrgm,
		"unaccent", status.Unaccent,
		"fullTextSearch", status.FullTextSearchCapable,
	)

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	recorder, closeRecorder := initRecorder(cfg, eventBus, pool, log)
	if closeRecorder != nil {
		defer closeRecorder()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	searchModule := search.NewModule(pool, caps, recorder, val, cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			searchModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initRecorder picks the analytics pipeline. With redis configured, events go
// through the asynq queue and a separate worker persists them; without it,
// the in-process bus dispatches straight to the repository.
func initRecorder(cfg *config.Config, bus events.Bus, pool *pgxpool.Pool, log *logger.Logger) (analytics.Recorder, func()) {
	repo := searchrepo.New(pool)

	if !cfg.IsSchedulerEnabled() {
		log.Warn("REDIS_URL not configured; recording search analytics in-process")
		analytics.RegisterPersistence(bus, repo, log)
		return analytics.NewBusRecorder(bus), nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize analytics queue client, falling back to in-process recording", "error", err)
		analytics.RegisterPersistence(bus, repo, log)
		return analytics.NewBusRecorder(bus), nil
	}

	return analytics.NewQueueRecorder(client, log), func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
