package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeRestrictionExpire = "chat:restriction:expire"
	TypeHistoryPrune      = "chat:history:prune"
)

type RestrictionExpirePayload struct {
	UserID string `json:"userId"`
}

type HistoryPrunePayload struct {
	OlderThanDays int `json:"olderThanDays"`
}

// NewRestrictionExpireTask builds the task that lifts userID's chat restriction at expiresAt.
func NewRestrictionExpireTask(userID string, expiresAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(RestrictionExpirePayload{UserID: userID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeRestrictionExpire, b)
	opts := []asynq.Option{asynq.ProcessAt(expiresAt), asynq.MaxRetry(5)}

	return task, opts, nil
}

func NewHistoryPruneTask(olderThanDays int) (*asynq.Task, error) {
	if olderThanDays <= 0 {
		return nil, fmt.Errorf("invalid retention of %d days", olderThanDays)
	}
	b, err := json.Marshal(HistoryPrunePayload{OlderThanDays: olderThanDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeHistoryPrune, b, asynq.MaxRetry(3)), nil
}

// Enqueuer submits chat maintenance tasks to the queue.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// ScheduleUnrestrict queues the expiry of a timed chat restriction.
func (e *Enqueuer) ScheduleUnrestrict(ctx context.Context, userID string, at time.Time) error {
	task, opts, err := NewRestrictionExpireTask(userID, at)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue restriction expiry: %w", err)
	}
	return nil
}

// EnqueuePrune queues an immediate history prune and returns the task ID.
func (e *Enqueuer) EnqueuePrune(ctx context.Context, olderThanDays int) (string, error) {
	task, err := NewHistoryPruneTask(olderThanDays)
	if err != nil {
		return "", err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue history prune: %w", err)
	}
	return info.ID, nil
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}
