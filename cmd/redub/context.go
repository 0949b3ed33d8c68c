package main

import (
	"context"
	"io"
	"strings"
	"sync"

	"video-redub/config"
	"video-redub/internal/appdirs"
	"video-redub/internal/deps"
	"video-redub/internal/pipeline"
	"video-redub/internal/service"
	"video-redub/log"
)

type commandContext struct {
	workDirFlag  *string
	logLevelFlag *string

	configOnce sync.Once
	configErr  error

	serviceOnce sync.Once
	service     *service.Service
	states      []deps.DependencyState
}

func newCommandContext(workDirFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		workDirFlag:  workDirFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() error {
	c.configOnce.Do(func() {
		log.InitLogger()
		if _, err := config.LoadOrCreateConfig(); err != nil {
			c.configErr = err
			return
		}
		if err := config.CheckConfig(); err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil {
			c.configErr = log.SetConsoleLevel(*c.logLevelFlag)
		}
	})
	return c.configErr
}

// ensureService negotiates capabilities once and builds the engines.
func (c *commandContext) ensureService(ctx context.Context) *service.Service {
	c.serviceOnce.Do(func() {
		caps, states := service.NewCapabilities(ctx)
		c.states = states
		c.service = service.NewService(caps, nil)
	})
	return c.service
}

func (c *commandContext) workDir() string {
	if c.workDirFlag != nil {
		if dir := strings.TrimSpace(*c.workDirFlag); dir != "" {
			return dir
		}
	}
	if dir := strings.TrimSpace(config.Get().App.WorkDir); dir != "" {
		return dir
	}
	return "."
}

// orchestrator builds a fresh orchestrator that prints progress to out.
func (c *commandContext) orchestrator(ctx context.Context, out io.Writer, opts runOptions) (*pipeline.Orchestrator, error) {
	workDir := c.workDir()
	if err := appdirs.CheckWorkDir(workDir); err != nil {
		return nil, err
	}
	svc := c.ensureService(ctx)
	pipelineOpts := pipeline.DefaultOptions(workDir)
	if opts.speedRate > 0 {
		pipelineOpts.SpeedRate = opts.speedRate
	}
	if opts.originalVolume > 0 {
		pipelineOpts.OriginalVolume = opts.originalVolume
	}
	return pipeline.New(svc.Engines(), pipelineOpts, newProgressPrinter(out).Print)
}
