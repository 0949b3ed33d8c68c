package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"video-redub/config"
	"video-redub/internal/dto"
	"video-redub/internal/pipeline"
	"video-redub/internal/progress"
	"video-redub/internal/storage"
	"video-redub/internal/types"
	"video-redub/internal/voice"
	"video-redub/log"
	apperrors "video-redub/pkg/errors"
	"video-redub/pkg/srt"
	"video-redub/pkg/tts"
	"video-redub/pkg/util"
)

const historyLimit = 50

// CreateDubTask validates the request and stores a pending task. The caller
// hands the returned task id to a runner.
func (s *Service) CreateDubTask(req dto.CreateDubTaskReq) (*types.DubTask, error) {
	videoPath := strings.TrimSpace(req.VideoPath)
	if abs, err := filepath.Abs(videoPath); err == nil && videoPath != "" {
		videoPath = abs
	}

	conf := config.Get()
	voiceId := strings.TrimSpace(req.VoiceId)
	if voiceId == "" {
		voiceId = conf.Tts.DefaultVoice
	}
	speedRate := conf.Tts.SpeedRate
	if req.SpeedRate != nil {
		speedRate = *req.SpeedRate
	}
	originalVolume := conf.Compose.OriginalVolume
	if req.OriginalVolume != nil {
		originalVolume = *req.OriginalVolume
	}

	if err := ValidateVoice(voiceId); err != nil {
		return nil, err
	}
	if err := pipeline.ValidateRequest(pipeline.Request{
		VideoPath:      videoPath,
		VoiceID:        voiceId,
		SpeedRate:      speedRate,
		OriginalVolume: originalVolume,
	}); err != nil {
		return nil, err
	}

	taskId := newTaskId(videoPath)
	workDir, err := resolveTaskDir(taskId)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFileWriteError, "解析任务目录失败 resolve task dir failed", err)
	}
	if err = os.MkdirAll(workDir, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFileWriteError, "创建任务目录失败 create task dir failed", err)
	}

	task := &types.DubTask{
		TaskId:            taskId,
		VideoPath:         videoPath,
		VoiceId:           voiceId,
		SpeedRate:         speedRate,
		OriginalVolume:    originalVolume,
		ReuseIntermediate: req.ReuseIntermediate,
		Status:            types.DubTaskStatusPending,
		Stage:             pipeline.StageTranscribing.String(),
		StatusMsg:         "排队中 Queued",
		WorkDir:           workDir,
	}
	if err = storage.SaveTask(task); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDBError, apperrors.ErrDBError.Message, err)
	}
	log.ForTask(taskId).Info("配音任务已创建", zap.String("video", videoPath), zap.String("voice", voiceId),
		zap.Float64("speed_rate", speedRate), zap.Float64("original_volume", originalVolume))
	return task, nil
}

// ValidateVoice checks Edge voices against the catalog. Voices that route to
// another provider are left to that provider.
func ValidateVoice(voiceId string) error {
	if strings.TrimSpace(voiceId) == "" {
		return apperrors.Input("voice id is empty")
	}
	routesToEdge := config.Get().Tts.Provider == config.TtsProviderEdge && !tts.IsDoubaoVoice(voiceId)
	if tts.IsEdgeVoice(voiceId) || routesToEdge {
		_, err := voice.Lookup(voiceId)
		return err
	}
	return nil
}

func newTaskId(videoPath string) string {
	base := util.SanitizePathName(util.TruncateRunes(pipeline.BaseName(videoPath), 16))
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if base == "" {
		return suffix
	}
	return base + "_" + suffix
}

// ExecuteDubTask runs a stored task to completion. It is what the runners call.
func (s *Service) ExecuteDubTask(ctx context.Context, taskId string) error {
	task, err := storage.GetTask(taskId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.WrapWithDetail(apperrors.CodeNotFound, apperrors.ErrNotFound.Message, "task_id="+taskId, err)
		}
		return apperrors.Wrap(apperrors.CodeDBError, apperrors.ErrDBError.Message, err)
	}
	logger := log.ForTask(taskId)

	task.Status = types.DubTaskStatusProcessing
	task.FailReason = ""
	task.ErrorCode = 0
	task.StatusMsg = "任务开始 Task started"
	s.persist(task)

	opts := pipeline.DefaultOptions(task.WorkDir)
	opts.TaskID = taskId
	opts.SpeedRate = task.SpeedRate
	opts.OriginalVolume = task.OriginalVolume

	tracker := &stageTracker{}
	var orch *pipeline.Orchestrator
	orch, err = pipeline.New(s.Engines(), opts, func(message string) {
		task.Stage = tracker.current(orch).String()
		task.StatusMsg = message
		s.persist(task)
	})
	if err != nil {
		return s.failTask(task, pipeline.StageFailed, err)
	}

	req := pipeline.Request{
		VideoPath:      task.VideoPath,
		VoiceID:        task.VoiceId,
		SpeedRate:      task.SpeedRate,
		OriginalVolume: task.OriginalVolume,
	}
	start := time.Now()
	output, err := Drive(ctx, orch, req, task.ReuseIntermediate, tracker.set)
	if err != nil {
		return s.failTask(task, tracker.current(orch), err)
	}

	task.EnSubtitlePath = orch.EnSubtitlePath(task.VideoPath)
	task.CnSubtitlePath = orch.CnSubtitlePath(task.VideoPath)
	if transcript, parseErr := srt.ParseFile(task.CnSubtitlePath); parseErr == nil {
		task.ClipCount = len(transcript.Speakable())
	}
	task.OutputPath = output
	task.Status = types.DubTaskStatusSuccess
	task.Stage = pipeline.StageDone.String()
	task.StatusMsg = fmt.Sprintf("处理完成！输出文件：%s", output)
	s.persist(task)
	s.publish(task, "", true)
	logger.Info("配音任务成功", zap.String("output", output), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Drive runs req through orch. With reuse set and the subtitle files of an
// earlier run present in the work dir, the stages that produced them are
// skipped. onStage, when set, hears about each stage Drive starts by hand.
func Drive(ctx context.Context, orch *pipeline.Orchestrator, req pipeline.Request, reuse bool, onStage func(pipeline.Stage)) (string, error) {
	enPath := orch.EnSubtitlePath(req.VideoPath)
	cnPath := orch.CnSubtitlePath(req.VideoPath)
	if !reuse || !fileExists(enPath) {
		return orch.RunWithOptions(ctx, req)
	}
	if err := pipeline.ValidateRequest(req); err != nil {
		return "", err
	}
	if onStage == nil {
		onStage = func(pipeline.Stage) {}
	}

	enter := func(stage pipeline.Stage) error {
		onStage(stage)
		if err := ctx.Err(); err != nil {
			return apperrors.WrapWithDetail(apperrors.CodeCanceled, apperrors.ErrCanceled.Message, "stage="+stage.String(), err)
		}
		return nil
	}

	logger := log.GetLogger()
	if fileExists(cnPath) {
		logger.Info("复用已有中文字幕 reusing translated subtitle", zap.String("subtitle", cnPath))
	} else {
		logger.Info("复用已有英文字幕 reusing source subtitle", zap.String("subtitle", enPath))
		if err := enter(pipeline.StageTranslating); err != nil {
			return "", err
		}
		var err error
		if cnPath, err = orch.Translate(ctx, enPath); err != nil {
			return "", err
		}
	}

	if err := enter(pipeline.StageSynthesizing); err != nil {
		return "", err
	}
	clips, err := orch.SynthesizeAll(ctx, cnPath, req.VoiceID, req.SpeedRate)
	if err != nil {
		return "", err
	}

	if err = enter(pipeline.StageComposing); err != nil {
		return "", err
	}
	return orch.Compose(ctx, req.VideoPath, clips, req.OriginalVolume)
}

// stageTracker reports the stage for progress messages. The driver loop knows
// its own stage; stages started by Drive are set by hand.
type stageTracker struct {
	manual bool
	stage  pipeline.Stage
}

func (t *stageTracker) set(stage pipeline.Stage) {
	t.manual = true
	t.stage = stage
}

func (t *stageTracker) current(orch *pipeline.Orchestrator) pipeline.Stage {
	if t.manual || orch == nil {
		return t.stage
	}
	return orch.Stage()
}

func (s *Service) failTask(task *types.DubTask, stage pipeline.Stage, err error) error {
	code := apperrors.GetCode(err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		code = apperrors.CodeCanceled
	}
	task.Status = types.DubTaskStatusFailed
	if stage != pipeline.StageFailed {
		task.Stage = stage.String()
	}
	task.ErrorCode = code
	task.FailReason = err.Error()
	task.StatusMsg = "处理失败 " + apperrors.GetMessage(err)
	s.persist(task)
	s.publish(task, err.Error(), true)
	log.ForTask(task.TaskId).Error("配音任务失败", zap.String("stage", task.Stage), zap.Int("code", code), zap.Error(err))
	return err
}

func (s *Service) persist(task *types.DubTask) {
	if err := storage.SaveTask(task); err != nil {
		log.ForTask(task.TaskId).Warn("保存任务状态失败 save task failed", zap.Error(err))
	}
	if task.Status == types.DubTaskStatusProcessing {
		s.publish(task, "", false)
	}
}

func (s *Service) publish(task *types.DubTask, errMsg string, final bool) {
	if s.Hub == nil {
		return
	}
	s.Hub.Publish(progress.Event{
		TaskId:  task.TaskId,
		Stage:   task.Stage,
		Status:  task.Status,
		Message: task.StatusMsg,
		Error:   errMsg,
		Final:   final,
	})
}

func (s *Service) GetDubTask(taskId string) (*types.DubTask, error) {
	task, err := storage.GetTask(taskId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WrapWithDetail(apperrors.CodeNotFound, apperrors.ErrNotFound.Message, "task_id="+taskId, err)
		}
		return nil, apperrors.Wrap(apperrors.CodeDBError, apperrors.ErrDBError.Message, err)
	}
	return task, nil
}

func (s *Service) DubTaskHistory() ([]types.DubTask, error) {
	tasks, err := storage.GetTaskHistory(historyLimit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDBError, apperrors.ErrDBError.Message, err)
	}
	return tasks, nil
}

// DeleteDubTask removes the record and the task directory. Running tasks are
// refused.
func (s *Service) DeleteDubTask(taskId string) error {
	task, err := s.GetDubTask(taskId)
	if err != nil {
		return err
	}
	if task.Status == types.DubTaskStatusProcessing {
		return apperrors.WrapWithDetail(apperrors.CodeInvalidParams, apperrors.ErrInvalidParams.Message, "task is still running", nil)
	}

	if task.WorkDir != "" {
		taskRoot, rootErr := ResolveTaskRoot()
		if rootErr == nil && insideTaskRoot(taskRoot, filepath.Clean(task.WorkDir)) == nil {
			if err = os.RemoveAll(task.WorkDir); err != nil {
				return apperrors.Wrap(apperrors.CodeFileWriteError, "删除任务文件失败 remove task files failed", err)
			}
		} else {
			log.ForTask(taskId).Warn("任务目录不在任务根目录下，跳过删除", zap.String("work_dir", task.WorkDir))
		}
	}
	if err = storage.DeleteTask(taskId); err != nil {
		return apperrors.Wrap(apperrors.CodeDBError, apperrors.ErrDBError.Message, err)
	}
	log.ForTask(taskId).Info("配音任务已删除")
	return nil
}

// RetryDubTask puts a finished task back to pending with its original
// parameters. Subtitles of the earlier run are reused.
func (s *Service) RetryDubTask(taskId string) (*types.DubTask, error) {
	task, err := s.GetDubTask(taskId)
	if err != nil {
		return nil, err
	}
	if !task.Finished() {
		return nil, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, apperrors.ErrInvalidParams.Message, "task is not finished", nil)
	}
	task.Status = types.DubTaskStatusPending
	task.Stage = pipeline.StageTranscribing.String()
	task.StatusMsg = "排队中 Queued"
	task.FailReason = ""
	task.ErrorCode = 0
	task.OutputPath = ""
	task.ReuseIntermediate = true
	if err = storage.SaveTask(task); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDBError, apperrors.ErrDBError.Message, err)
	}
	return task, nil
}

// ToDubTaskData renders a task for API responses with download urls.
func ToDubTaskData(task types.DubTask) dto.DubTaskData {
	data := dto.DubTaskData{
		TaskId:         task.TaskId,
		Status:         task.Status,
		Stage:          task.Stage,
		StatusMsg:      task.StatusMsg,
		FailReason:     task.FailReason,
		ErrorCode:      task.ErrorCode,
		VideoPath:      task.VideoPath,
		VoiceId:        task.VoiceId,
		SpeedRate:      task.SpeedRate,
		OriginalVolume: task.OriginalVolume,
		ClipCount:      task.ClipCount,
		OutputPath:     task.OutputPath,
		CreateTime:     task.CreateTime,
		UpdateTime:     task.UpdateTime,
	}
	data.EnSubtitleUrl = downloadUrl(task.EnSubtitlePath)
	data.CnSubtitleUrl = downloadUrl(task.CnSubtitlePath)
	data.OutputUrl = downloadUrl(task.OutputPath)
	return data
}

func ToDubTaskList(tasks []types.DubTask) []dto.DubTaskData {
	return lo.Map(tasks, func(task types.DubTask, _ int) dto.DubTaskData { return ToDubTaskData(task) })
}

func downloadUrl(localPath string) string {
	if localPath == "" {
		return ""
	}
	rel, err := resolveTaskDownloadPath(localPath)
	if err != nil {
		return ""
	}
	return "/api/file/" + rel
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
