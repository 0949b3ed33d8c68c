package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"video-redub/internal/handler"
)

func SetupRouter(r *gin.Engine, hdl handler.Handler) {
	api := r.Group("/api")
	{
		api.POST("/dub/task", hdl.CreateDubTask)
		api.GET("/dub/task", hdl.GetDubTask)
		api.GET("/dub/history", hdl.GetDubTaskHistory)
		api.DELETE("/dub/task/:taskId", hdl.DeleteDubTask)
		api.POST("/dub/task/:taskId/retry", hdl.RetryDubTask)
		api.GET("/dub/task/:taskId/progress", hdl.DubTaskProgress)
		api.GET("/voices", hdl.ListVoices)
		api.POST("/voices/preview", hdl.PreviewVoice)
		api.GET("/preview/:name", hdl.PreviewFile)
		api.GET("/file/*filepath", hdl.DownloadFile)
		api.HEAD("/file/*filepath", hdl.DownloadFile)
		api.GET("/config", hdl.GetConfig)
		api.POST("/config", hdl.UpdateConfig)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
