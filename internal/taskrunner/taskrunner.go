package taskrunner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"video-redub/log"
)

const (
	defaultQueueSize   = 32
	defaultConcurrency = 1
)

var (
	ErrRunnerStopped = errors.New("task runner stopped")
	ErrQueueFull     = errors.New("task queue is full")
)

// Executor runs one stored dubbing task to completion.
type Executor interface {
	ExecuteDubTask(ctx context.Context, taskId string) error
}

// Submitter hands a stored task to whatever runs it. Both the in-memory
// runner and the redis queue implement it.
type Submitter interface {
	SubmitDubTask(payload DubTaskPayload) error
}

// Config controls in-process task runner behavior.
type Config struct {
	QueueSize   int
	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		QueueSize:   defaultQueueSize,
		Concurrency: defaultConcurrency,
	}
}

// DubTaskPayload identifies a task already saved by the service.
type DubTaskPayload struct {
	TaskID string `json:"task_id"`
}

// Runner executes queued tasks with in-memory workers. Each worker runs one
// pipeline at a time.
type Runner struct {
	executor Executor
	config   Config

	queue  chan DubTaskPayload
	ctx    context.Context
	cancel context.CancelFunc

	workerWg sync.WaitGroup
	closed   atomic.Bool
	running  atomic.Int32
}

// New creates and starts a task runner.
func New(executor Executor, cfg Config) *Runner {
	cfg = normalizeConfig(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	runner := &Runner{
		executor: executor,
		config:   cfg,
		queue:    make(chan DubTaskPayload, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	for i := 0; i < cfg.Concurrency; i++ {
		runner.workerWg.Add(1)
		go runner.worker(i + 1)
	}

	return runner
}

func normalizeConfig(cfg Config) Config {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return cfg
}

// SubmitDubTask queues a dubbing job without blocking.
func (r *Runner) SubmitDubTask(payload DubTaskPayload) error {
	if strings.TrimSpace(payload.TaskID) == "" {
		return errors.New("dub task id is required")
	}
	if r.closed.Load() {
		return ErrRunnerStopped
	}

	select {
	case <-r.ctx.Done():
		return ErrRunnerStopped
	case r.queue <- payload:
		log.GetLogger().Info("[TaskRunner] task submitted", zap.String("task_id", payload.TaskID))
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *Runner) worker(workerID int) {
	defer r.workerWg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		select {
		case <-r.ctx.Done():
			return
		case payload := <-r.queue:
			r.processTask(workerID, payload)
		}
	}
}

func (r *Runner) processTask(workerID int, payload DubTaskPayload) {
	r.running.Add(1)
	defer r.running.Add(-1)

	if r.executor == nil {
		log.GetLogger().Error("[TaskRunner] executor not initialized", zap.String("task_id", payload.TaskID))
		return
	}

	// 任务失败由 executor 记录到任务表，这里只打日志
	if err := r.executor.ExecuteDubTask(r.ctx, payload.TaskID); err != nil {
		log.GetLogger().Error("[TaskRunner] task failed",
			zap.Int("worker_id", workerID),
			zap.String("task_id", payload.TaskID),
			zap.Error(err))
		return
	}

	log.GetLogger().Info("[TaskRunner] task completed",
		zap.Int("worker_id", workerID),
		zap.String("task_id", payload.TaskID))
}

// Close cancels running tasks, stops workers and rejects new tasks.
func (r *Runner) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	r.cancel()
	r.workerWg.Wait()
}

// Pending returns the number of queued tasks waiting for workers.
func (r *Runner) Pending() int {
	return len(r.queue)
}

// Running returns the number of tasks currently executing.
func (r *Runner) Running() int {
	return int(r.running.Load())
}
