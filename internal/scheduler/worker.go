package scheduler

import (
	"context"
	"fmt"

	"inventory_backend/internal/search/repository"
	"inventory_backend/platform/config"
	"inventory_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	repo   *repository.Repository
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		repo:   repository.New(pool),
		log:    log,
	}

	mux.HandleFunc(TaskSearchAnalytics, w.handleSearchAnalytics)

	return w, nil
}

func (w *Worker) handleSearchAnalytics(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSearchAnalyticsPayload(task)
	if err != nil {
		return err
	}

	householdID, err := uuid.Parse(payload.HouseholdID)
	if err != nil {
		return err
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return err
	}

	return w.repo.InsertSearchEvent(ctx, repository.SearchEventParams{
		HouseholdID:  householdID,
		UserID:       userID,
		QueryLength:  payload.QueryLength,
		SearchMethod: payload.SearchMethod,
		ResultCount:  payload.ResultCount,
		DurationMs:   payload.DurationMs,
		Suggestion:   payload.Suggestion,
	})
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("analytics worker stopped", "error", err)
	}
}
