package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-redub/config"
	"video-redub/internal/taskrunner"
)

type fakeExecutor struct {
	ids []string
	err error
}

func (f *fakeExecutor) ExecuteDubTask(_ context.Context, taskId string) error {
	f.ids = append(f.ids, taskId)
	return f.err
}

func TestNewDubTask(t *testing.T) {
	task, err := NewDubTask(taskrunner.DubTaskPayload{TaskID: "demo_1234"})
	require.NoError(t, err)
	assert.Equal(t, TypeDubTask, task.Type())

	var payload taskrunner.DubTaskPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "demo_1234", payload.TaskID)
}

func TestHandleDubTaskRunsExecutor(t *testing.T) {
	exec := &fakeExecutor{}
	task, err := NewDubTask(taskrunner.DubTaskPayload{TaskID: "demo_1234"})
	require.NoError(t, err)

	require.NoError(t, NewTaskHandlers(exec).HandleDubTask(context.Background(), task))
	assert.Equal(t, []string{"demo_1234"}, exec.ids)
}

func TestHandleDubTaskSkipsRetryOnFailure(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("tts failed")}
	task, err := NewDubTask(taskrunner.DubTaskPayload{TaskID: "demo_1234"})
	require.NoError(t, err)

	err = NewTaskHandlers(exec).HandleDubTask(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Contains(t, err.Error(), "tts failed")
}

func TestHandleDubTaskRejectsBadPayload(t *testing.T) {
	exec := &fakeExecutor{}
	handlers := NewTaskHandlers(exec)

	err := handlers.HandleDubTask(context.Background(), asynq.NewTask(TypeDubTask, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = handlers.HandleDubTask(context.Background(), asynq.NewTask(TypeDubTask, []byte(`{"task_id":""}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, exec.ids)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.Queue{RedisAddr: "redis:6379", RedisDB: 2, Concurrency: 4})
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 4, cfg.Concurrency)
}

var _ taskrunner.Submitter = (*Queue)(nil)
