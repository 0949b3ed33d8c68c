package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"video-redub/config"
	"video-redub/internal/response"
	"video-redub/log"
	apperrors "video-redub/pkg/errors"
)

func (h Handler) GetConfig(c *gin.Context) {
	response.Success(c, config.Get())
}

// UpdateConfig validates, persists and applies a new configuration. Running
// tasks finish with the engines they started with.
func (h Handler) UpdateConfig(c *gin.Context) {
	updated := config.Get()
	if err := c.ShouldBindJSON(&updated); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, apperrors.ErrInvalidParams.Message, err))
		return
	}
	if err := updated.Check(); err != nil {
		response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "配置无效 Invalid config", err.Error(), err))
		return
	}

	if err := config.Save(updated); err != nil {
		log.GetLogger().Error("保存配置失败", zap.Error(err))
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeFileWriteError, "保存配置失败 Save config failed", err))
		return
	}

	config.Set(updated)
	log.GetLogger().Info("检测到配置更新，重新初始化服务")
	h.Service.Reload()
	response.Success(c, updated)
}
