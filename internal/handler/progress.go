package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"video-redub/internal/progress"
	"video-redub/internal/response"
	"video-redub/log"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 前端可能由其他端口提供
	CheckOrigin: func(r *http.Request) bool { return true },
}

// DubTaskProgress streams progress events of one task over a websocket. The
// first message is the stored state; the stream ends after the final event.
func (h Handler) DubTaskProgress(c *gin.Context) {
	taskId := c.Param("taskId")

	// 先订阅再读状态，避免错过中间的事件
	events, cancel := h.Service.Hub.Subscribe(taskId)
	defer cancel()

	task, err := h.Service.GetDubTask(taskId)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.GetLogger().Warn("websocket upgrade failed", zap.String("task_id", taskId), zap.Error(err))
		return
	}
	defer conn.Close()

	snapshot := progress.Event{
		TaskId:  task.TaskId,
		Stage:   task.Stage,
		Status:  task.Status,
		Message: task.StatusMsg,
		Error:   task.FailReason,
		Final:   task.Finished(),
		Time:    time.Now(),
	}
	if err = writeEvent(conn, snapshot); err != nil || snapshot.Final {
		closeStream(conn)
		return
	}

	// 读循环只用来感知客户端断开
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case <-c.Request.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err = writeEvent(conn, ev); err != nil {
				log.GetLogger().Debug("websocket write failed", zap.String("task_id", taskId), zap.Error(err))
				return
			}
			if ev.Final {
				closeStream(conn)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err = conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev progress.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

func closeStream(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"), time.Now().Add(writeWait))
}

