package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-feed/internal/api/middleware"
	"github.com/d60-Lab/social-feed/internal/session"
	"github.com/d60-Lab/social-feed/pkg/logger"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	maxFrameSize = 64 * 1024
	sendBuffer   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Live 实时会话
// @Summary 实时会话（WebSocket）：乐观点赞、评论、通知推送
// @Tags 实时
// @Security BearerAuth
// @Param access_token query string false "JWT（浏览器无法设置请求头时使用）"
// @Success 101
// @Router /api/v1/live [get]
func (h *Handler) Live(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已写回错误响应
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	out := make(chan session.Frame, sendBuffer)
	done := make(chan struct{})
	stopped := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(stopped)
		if !writeLoop(ws, out, done) {
			// 写失败：关闭连接让读循环退出
			cancel()
			_ = ws.Close()
		}
	}()

	send := func(f session.Frame) {
		select {
		case out <- f:
		case <-done:
		case <-stopped:
		}
	}
	viewer := middleware.Viewer(c)
	sess := session.New(viewer, session.Deps{
		Feed:              h.feedService,
		Interactions:      h.interactionService,
		Notifications:     h.notificationService,
		Bus:               h.bus,
		NotificationLimit: h.feedCfg.NotificationLimit,
	}, send)

	defer func() {
		_ = sess.Close()
		cancel()
		close(done)
		wg.Wait()
		_ = ws.Close()
	}()

	if err := sess.Start(ctx); err != nil {
		logger.Warn("live session start failed", zap.String("viewer", viewer), zap.Error(err))
		return
	}

	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error { return ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		var cmd session.Command
		if err := ws.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Info("live session closed", zap.String("viewer", viewer), zap.Error(err))
			}
			return
		}
		// 错误已通过帧推送给客户端
		_ = sess.Handle(ctx, cmd)
	}
}

// writeLoop 是连接上唯一的写者；写失败时返回 false
func writeLoop(ws *websocket.Conn, out <-chan session.Frame, done <-chan struct{}) bool {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case f := <-out:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(f); err != nil {
				logger.Warn("live write failed", zap.Error(err))
				return false
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return false
			}
		case <-done:
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return true
		}
	}
}
