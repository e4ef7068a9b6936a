package tasks

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRestrictionExpireTask(t *testing.T) {
	task, opts, err := NewRestrictionExpireTask("u1", time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, TypeRestrictionExpire, task.Type())
	assert.Len(t, opts, 2)

	var p RestrictionExpirePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "u1", p.UserID)
}

func TestNewHistoryPruneTask(t *testing.T) {
	task, err := NewHistoryPruneTask(30)
	require.NoError(t, err)
	assert.Equal(t, TypeHistoryPrune, task.Type())
	assert.JSONEq(t, `{"olderThanDays":30}`, string(task.Payload()))

	_, err = NewHistoryPruneTask(0)
	assert.Error(t, err)
}
