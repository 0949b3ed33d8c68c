// Package queue runs dubbing tasks through Asynq so several processes can
// share one redis-backed queue.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"video-redub/config"
	"video-redub/internal/taskrunner"
	"video-redub/log"
)

const (
	TypeDubTask = "dub:process"

	// 配音任务本身不在队列层重试，失败后由用户显式重试
	dubTaskMaxRetry = 0
	dubTaskTimeout  = 6 * time.Hour
)

// QueueConfig holds Redis configuration for Asynq
type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

// ConfigFrom maps the [queue] config section.
func ConfigFrom(conf config.Queue) QueueConfig {
	return QueueConfig{
		RedisAddr:     conf.RedisAddr,
		RedisPassword: conf.RedisPassword,
		RedisDB:       conf.RedisDB,
		Concurrency:   conf.Concurrency,
	}
}

// Queue manages task enqueueing and processing
type Queue struct {
	client *asynq.Client
	server *asynq.Server
	config QueueConfig
}

func NewQueue(cfg QueueConfig) *Queue {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.GetLogger().Error("[Queue] task failed",
					zap.String("type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err))
			}),
		},
	)

	return &Queue{
		client: asynq.NewClient(redisOpt),
		server: server,
		config: cfg,
	}
}

// NewDubTask builds the asynq task for payload.
func NewDubTask(payload taskrunner.DubTaskPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeDubTask, data,
		asynq.MaxRetry(dubTaskMaxRetry),
		asynq.Timeout(dubTaskTimeout),
		asynq.Queue("default"),
	), nil
}

// SubmitDubTask enqueues payload; it satisfies taskrunner.Submitter.
func (q *Queue) SubmitDubTask(payload taskrunner.DubTaskPayload) error {
	task, err := NewDubTask(payload)
	if err != nil {
		return err
	}

	info, err := q.client.Enqueue(task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.GetLogger().Info("[Queue] task enqueued",
		zap.String("task_id", payload.TaskID),
		zap.String("queue_id", info.ID),
		zap.String("queue", info.Queue))
	return nil
}

// Close gracefully shuts down the queue
func (q *Queue) Close() error {
	q.server.Shutdown()
	return q.client.Close()
}
