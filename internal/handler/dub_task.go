package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"video-redub/config"
	"video-redub/internal/dto"
	"video-redub/internal/response"
	"video-redub/internal/service"
	"video-redub/internal/taskrunner"
	"video-redub/internal/voice"
	"video-redub/log"
	apperrors "video-redub/pkg/errors"
)

func (h Handler) CreateDubTask(c *gin.Context) {
	var req dto.CreateDubTaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.GetLogger().Error("CreateDubTask ShouldBindJSON err", zap.Error(err))
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, apperrors.ErrInvalidParams.Message, err))
		return
	}
	log.GetLogger().Info("CreateDubTask received request", zap.Any("req", req))

	task, err := h.Service.CreateDubTask(req)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	if err = h.Submitter.SubmitDubTask(taskrunner.DubTaskPayload{TaskID: task.TaskId}); err != nil {
		log.GetLogger().Error("CreateDubTask submit err", zap.String("task_id", task.TaskId), zap.Error(err))
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeUnknown, "任务提交失败 Submit failed", err))
		return
	}
	response.Success(c, dto.CreateDubTaskResData{TaskId: task.TaskId})
}

func (h Handler) GetDubTask(c *gin.Context) {
	var req dto.GetDubTaskReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, apperrors.ErrInvalidParams.Message, err))
		return
	}

	task, err := h.Service.GetDubTask(req.TaskId)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, service.ToDubTaskData(*task))
}

func (h Handler) GetDubTaskHistory(c *gin.Context) {
	tasks, err := h.Service.DubTaskHistory()
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, service.ToDubTaskList(tasks))
}

func (h Handler) DeleteDubTask(c *gin.Context) {
	taskId := c.Param("taskId")
	if taskId == "" {
		response.Error(c, apperrors.CodeInvalidParams, "taskId不能为空")
		return
	}

	if err := h.Service.DeleteDubTask(taskId); err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.R(c, response.Response{
		Error: 0,
		Msg:   "删除成功",
		Data:  nil,
	})
}

// RetryDubTask re-submits a finished task with its stored parameters.
func (h Handler) RetryDubTask(c *gin.Context) {
	taskId := c.Param("taskId")
	if taskId == "" {
		response.Error(c, apperrors.CodeInvalidParams, "taskId不能为空")
		return
	}

	task, err := h.Service.RetryDubTask(taskId)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	if err = h.Submitter.SubmitDubTask(taskrunner.DubTaskPayload{TaskID: task.TaskId}); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeUnknown, "重试任务失败 Retry failed", err))
		return
	}
	response.R(c, response.Response{
		Error: 0,
		Msg:   "任务已重新提交",
		Data:  dto.CreateDubTaskResData{TaskId: task.TaskId},
	})
}

func (h Handler) ListVoices(c *gin.Context) {
	region := voice.Region(c.Query("region"))
	defaultVoice := config.Get().Tts.DefaultVoice
	data := lo.Map(voice.ByRegion(region), func(v voice.Voice, _ int) dto.VoiceData {
		return dto.VoiceData{
			Id:          v.Id,
			Region:      string(v.Region),
			RegionLabel: v.Region.Label(),
			Name:        v.Name,
			Gender:      v.Gender,
			Label:       v.Label(),
			Default:     v.Id == defaultVoice,
		}
	})
	response.Success(c, data)
}

func (h Handler) PreviewVoice(c *gin.Context) {
	var req dto.PreviewVoiceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, apperrors.ErrInvalidParams.Message, err))
		return
	}

	clip, err := h.Service.PreviewVoice(c.Request.Context(), req.VoiceId, req.SpeedRate, req.Text)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, dto.PreviewVoiceResData{AudioUrl: "/api/preview/" + filepath.Base(clip)})
}

// PreviewFile serves a cached preview clip by name.
func (h Handler) PreviewFile(c *gin.Context) {
	name := filepath.Base(c.Param("name"))
	dir, err := service.ResolvePreviewDir()
	if err != nil || name == "." || name == "/" {
		c.JSON(http.StatusNotFound, response.Response{Error: apperrors.CodeFileNotFound, Msg: "文件不存在"})
		return
	}
	path := filepath.Join(dir, name)
	if _, ok := existingFile(path); !ok {
		c.JSON(http.StatusNotFound, response.Response{Error: apperrors.CodeFileNotFound, Msg: "文件不存在"})
		return
	}
	c.File(path)
}

func (h Handler) DownloadFile(c *gin.Context) {
	requestedFile := c.Param("filepath")
	if requestedFile == "" || requestedFile == "/" {
		c.JSON(http.StatusBadRequest, response.Response{
			Error: apperrors.CodeInvalidParams,
			Msg:   "文件路径为空",
			Data:  nil,
		})
		return
	}

	localFilePath, ok := resolveDownloadPath(requestedFile)
	if !ok {
		c.JSON(http.StatusNotFound, response.Response{
			Error: apperrors.CodeFileNotFound,
			Msg:   "文件不存在",
			Data:  nil,
		})
		return
	}
	c.FileAttachment(localFilePath, filepath.Base(localFilePath))
}
