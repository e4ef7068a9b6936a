package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"subzero/config"
	"subzero/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ChatMaintainer is the part of the chat hub the worker drives.
type ChatMaintainer interface {
	ExpireRestriction(ctx context.Context, userID string) error
	PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error)
}

// RedisOpt is the asynq connection to the queue database.
func RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// Worker owns the asynq server and the scheduler for periodic maintenance.
type Worker struct {
	srv       *asynq.Server
	scheduler *asynq.Scheduler
	logger    *zap.Logger
}

// NewServeMux routes chat maintenance tasks to hub.
func NewServeMux(hub ChatMaintainer, logger *zap.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeRestrictionExpire, handleRestrictionExpire(hub, logger))
	mux.HandleFunc(tasks.TypeHistoryPrune, handleHistoryPrune(hub, logger))
	return mux
}

// InitChatWorker starts the worker in the background and registers the daily prune.
func InitChatWorker(hub ChatMaintainer, retentionDays int, logger *zap.Logger) (*Worker, error) {
	redisOpts := RedisOpt()
	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)
	scheduler := asynq.NewScheduler(redisOpts, nil)
	w := &Worker{srv: srv, scheduler: scheduler, logger: logger}

	if retentionDays > 0 {
		task, err := tasks.NewHistoryPruneTask(retentionDays)
		if err != nil {
			return nil, err
		}
		if _, err := scheduler.Register("@daily", task); err != nil {
			return nil, fmt.Errorf("failed to register history prune: %w", err)
		}
	}

	mux := NewServeMux(hub, logger)
	go func() {
		logger.Info("starting chat worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := srv.Start(mux)
			if err == nil {
				break
			}
			logger.Error("chat worker failed to start", zap.Int("attempt", attempts), zap.Error(err))
			if attempts == maxAttempts {
				logger.Error("chat worker giving up; timed restrictions will not expire automatically")
				return
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
		if err := scheduler.Start(); err != nil {
			logger.Error("chat scheduler failed to start", zap.Error(err))
		}
	}()
	return w, nil
}

func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.srv.Shutdown()
}

func handleRestrictionExpire(hub ChatMaintainer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.RestrictionExpirePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil || p.UserID == "" {
			logger.Warn("invalid restriction expiry payload", zap.ByteString("payload", task.Payload()))
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}
		if err := hub.ExpireRestriction(ctx, p.UserID); err != nil {
			logger.Error("failed to expire chat restriction", zap.String("userID", p.UserID), zap.Error(err))
			return err
		}
		return nil
	}
}

func handleHistoryPrune(hub ChatMaintainer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.HistoryPrunePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil || p.OlderThanDays <= 0 {
			logger.Warn("invalid history prune payload", zap.ByteString("payload", task.Payload()))
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}
		n, err := hub.PruneHistory(ctx, time.Duration(p.OlderThanDays)*24*time.Hour)
		if err != nil {
			return err
		}
		logger.Info("pruned chat history", zap.Int64("deleted", n), zap.Int("olderThanDays", p.OlderThanDays))
		return nil
	}
}
