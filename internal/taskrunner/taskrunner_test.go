package taskrunner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecutor struct {
	mu    sync.Mutex
	ids   []string
	done  chan string
	block chan struct{}
	err   error
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{done: make(chan string, 16)}
}

func (e *recordingExecutor) ExecuteDubTask(ctx context.Context, taskId string) error {
	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			e.done <- taskId
			return ctx.Err()
		}
	}
	e.mu.Lock()
	e.ids = append(e.ids, taskId)
	e.mu.Unlock()
	e.done <- taskId
	return e.err
}

func waitFor(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task")
		return ""
	}
}

func TestRunnerExecutesSubmittedTasksInOrder(t *testing.T) {
	exec := newRecordingExecutor()
	runner := New(exec, Config{QueueSize: 4, Concurrency: 1})
	defer runner.Close()

	require.NoError(t, runner.SubmitDubTask(DubTaskPayload{TaskID: "a"}))
	require.NoError(t, runner.SubmitDubTask(DubTaskPayload{TaskID: "b"}))

	assert.Equal(t, "a", waitFor(t, exec.done))
	assert.Equal(t, "b", waitFor(t, exec.done))
}

func TestRunnerKeepsWorkingAfterFailure(t *testing.T) {
	exec := newRecordingExecutor()
	exec.err = errors.New("boom")
	runner := New(exec, DefaultConfig())
	defer runner.Close()

	require.NoError(t, runner.SubmitDubTask(DubTaskPayload{TaskID: "a"}))
	require.NoError(t, runner.SubmitDubTask(DubTaskPayload{TaskID: "b"}))
	waitFor(t, exec.done)
	waitFor(t, exec.done)
}

func TestRunnerRejectsWhenFull(t *testing.T) {
	exec := newRecordingExecutor()
	exec.block = make(chan struct{})
	runner := New(exec, Config{QueueSize: 1, Concurrency: 1})
	defer runner.Close()

	require.NoError(t, runner.SubmitDubTask(DubTaskPayload{TaskID: "running"}))
	require.Eventually(t, func() bool { return runner.Running() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, runner.SubmitDubTask(DubTaskPayload{TaskID: "queued"}))
	assert.ErrorIs(t, runner.SubmitDubTask(DubTaskPayload{TaskID: "overflow"}), ErrQueueFull)
	assert.Equal(t, 1, runner.Pending())

	close(exec.block)
	waitFor(t, exec.done)
	waitFor(t, exec.done)
}

func TestRunnerCloseCancelsRunningTask(t *testing.T) {
	exec := newRecordingExecutor()
	exec.block = make(chan struct{})
	runner := New(exec, DefaultConfig())

	require.NoError(t, runner.SubmitDubTask(DubTaskPayload{TaskID: "long"}))
	require.Eventually(t, func() bool { return runner.Running() == 1 }, 2*time.Second, 10*time.Millisecond)

	runner.Close()
	assert.Equal(t, "long", waitFor(t, exec.done))
	assert.ErrorIs(t, runner.SubmitDubTask(DubTaskPayload{TaskID: "late"}), ErrRunnerStopped)
}

func TestRunnerRequiresTaskID(t *testing.T) {
	runner := New(newRecordingExecutor(), DefaultConfig())
	defer runner.Close()
	assert.Error(t, runner.SubmitDubTask(DubTaskPayload{}))
}
