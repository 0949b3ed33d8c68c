package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"video-redub/internal/taskrunner"
	"video-redub/log"
)

// TaskHandlers dispatches asynq tasks to the dubbing executor.
type TaskHandlers struct {
	executor taskrunner.Executor
}

func NewTaskHandlers(executor taskrunner.Executor) *TaskHandlers {
	return &TaskHandlers{executor: executor}
}

func (h *TaskHandlers) HandleDubTask(ctx context.Context, t *asynq.Task) error {
	var payload taskrunner.DubTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.TaskID == "" {
		return fmt.Errorf("dub task id is empty: %w", asynq.SkipRetry)
	}

	log.GetLogger().Info("[Queue] processing dub task", zap.String("task_id", payload.TaskID))

	// 失败状态已由 executor 写入任务表
	if err := h.executor.ExecuteDubTask(ctx, payload.TaskID); err != nil {
		return fmt.Errorf("dub task %s: %v: %w", payload.TaskID, err, asynq.SkipRetry)
	}

	log.GetLogger().Info("[Queue] dub task completed", zap.String("task_id", payload.TaskID))
	return nil
}

func (h *TaskHandlers) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeDubTask, h.HandleDubTask)
}

// StartWorker starts the asynq worker in the background. Queue.Close stops it.
func StartWorker(q *Queue, executor taskrunner.Executor) error {
	mux := asynq.NewServeMux()
	NewTaskHandlers(executor).RegisterHandlers(mux)

	log.GetLogger().Info("[Queue] starting worker",
		zap.String("redis_addr", q.config.RedisAddr),
		zap.Int("concurrency", q.config.Concurrency))

	return q.server.Start(mux)
}
