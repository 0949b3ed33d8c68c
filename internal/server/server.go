// Package server wires the HTTP API and the task workers together.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"video-redub/config"
	"video-redub/internal/handler"
	"video-redub/internal/progress"
	"video-redub/internal/queue"
	"video-redub/internal/router"
	"video-redub/internal/service"
	"video-redub/internal/storage"
	"video-redub/internal/taskrunner"
	"video-redub/internal/types"
	"video-redub/log"
)

const shutdownTimeout = 10 * time.Second

// StartBackend serves the API until ctx is cancelled. Tasks run on the
// in-memory runner or, with the redis backend, on an asynq worker.
func StartBackend(ctx context.Context) error {
	caps, _ := service.NewCapabilities(ctx)
	svc := service.NewService(caps, progress.NewHub())

	group, ctx := errgroup.WithContext(ctx)
	conf := config.Get()

	var submitter taskrunner.Submitter
	switch conf.Queue.Backend {
	case config.QueueBackendRedis:
		q := queue.NewQueue(queue.ConfigFrom(conf.Queue))
		submitter = q
		if err := queue.StartWorker(q, svc); err != nil {
			return err
		}
		group.Go(func() error {
			<-ctx.Done()
			return q.Close()
		})
	default:
		runner := taskrunner.New(svc, taskrunner.Config{
			QueueSize:   conf.Queue.QueueSize,
			Concurrency: conf.Queue.Concurrency,
		})
		submitter = runner
		resubmitPending(runner)
		group.Go(func() error {
			<-ctx.Done()
			runner.Close()
			return nil
		})
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	router.SetupRouter(engine, handler.NewHandler(svc, submitter))

	addr := fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port)
	srv := &http.Server{Addr: addr, Handler: engine}

	group.Go(func() error {
		log.GetLogger().Info("服务启动 server listening", zap.String("addr", addr),
			zap.String("queue", conf.Queue.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.GetLogger().Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// resubmitPending hands tasks queued before a restart back to the in-memory
// runner, which loses its queue with the process.
func resubmitPending(runner *taskrunner.Runner) {
	tasks, err := storage.GetTasksByStatus(types.DubTaskStatusPending)
	if err != nil {
		log.GetLogger().Warn("读取待处理任务失败 load pending tasks failed", zap.Error(err))
		return
	}
	for _, task := range tasks {
		if err = runner.SubmitDubTask(taskrunner.DubTaskPayload{TaskID: task.TaskId}); err != nil {
			log.GetLogger().Warn("重新提交任务失败 resubmit failed", zap.String("task_id", task.TaskId), zap.Error(err))
		}
	}
}
