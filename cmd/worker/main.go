package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"inventory_backend/internal/scheduler"
	"inventory_backend/platform/config"
	"inventory_backend/platform/db"
	"inventory_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting analytics worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	worker, err := scheduler.NewWorker(cfg, pool, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	log.Info("worker listening", "queue", cfg.GetAsynqQueueName())
	worker.Run(ctx)
	log.Info("worker stopped")
}
