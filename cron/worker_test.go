package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"subzero/services/tasks"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeHub struct {
	expired []string
	pruned  []time.Duration
	err     error
}

func (h *fakeHub) ExpireRestriction(_ context.Context, userID string) error {
	h.expired = append(h.expired, userID)
	return h.err
}

func (h *fakeHub) PruneHistory(_ context.Context, olderThan time.Duration) (int64, error) {
	h.pruned = append(h.pruned, olderThan)
	return 3, h.err
}

func TestRestrictionExpireHandler(t *testing.T) {
	hub := &fakeHub{}
	mux := NewServeMux(hub, zap.NewNop())

	task, _, err := tasks.NewRestrictionExpireTask("u1", time.Now())
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), task))
	assert.Equal(t, []string{"u1"}, hub.expired)

	hub.err = errors.New("db down")
	assert.Error(t, mux.ProcessTask(context.Background(), task))
}

func TestHistoryPruneHandler(t *testing.T) {
	hub := &fakeHub{}
	mux := NewServeMux(hub, zap.NewNop())

	task, err := tasks.NewHistoryPruneTask(2)
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), task))
	assert.Equal(t, []time.Duration{48 * time.Hour}, hub.pruned)
}

func TestInvalidPayloadSkipsRetry(t *testing.T) {
	mux := NewServeMux(&fakeHub{}, zap.NewNop())
	err := mux.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeRestrictionExpire, []byte(`{}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
