package httptransport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mailflow/backend/internal/broker"
	"mailflow/backend/internal/middleware"
	"mailflow/backend/internal/monitoring"
)

// StreamHandler 实时推送端点（SSE 与 WebSocket 两种传输）
type StreamHandler struct {
	subscriber broker.Subscriber
	log        *zap.Logger
	metrics    *monitoring.Metrics // 可为 nil
}

// NewStreamHandler 创建推送处理器
func NewStreamHandler(subscriber broker.Subscriber, log *zap.Logger, metrics *monitoring.Metrics) *StreamHandler {
	return &StreamHandler{
		subscriber: subscriber,
		log:        log,
		metrics:    metrics,
	}
}

// Stream SSE 推送流。认证由路由上的中间件把守，进入此处时
// 用户已通过认证。订阅打开失败（代理不可达）返回 503，
// 打开成功后阻塞转发通知，直到客户端断开或代理连接丢失。
func (h *StreamHandler) Stream(c *gin.Context) {
	userID := middleware.UserID(c)

	sub, err := h.subscriber.Subscribe(c.Request.Context(), userID)
	if err != nil {
		h.log.Warn("failed to open subscription",
			zap.String("user_id", userID), zap.Error(err))
		writeError(c, err)
		return
	}
	defer sub.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	h.trackStream(1)
	defer h.trackStream(-1)

	h.log.Debug("stream opened", zap.String("user_id", userID))

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			// 客户端断开
			return
		case n, ok := <-sub.Notifications():
			if !ok {
				// 代理连接丢失，终止本条流
				h.log.Warn("subscription closed by broker", zap.String("user_id", userID))
				return
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", n.Body)
			c.Writer.Flush()
			h.markDelivered()
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 跨域控制交给 CORS 中间件
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// StreamWS WebSocket 推送流，与 SSE 共用同一订阅语义。
// 用于 SSE 被代理缓冲的部署环境。
func (h *StreamHandler) StreamWS(c *gin.Context) {
	userID := middleware.UserID(c)

	sub, err := h.subscriber.Subscribe(c.Request.Context(), userID)
	if err != nil {
		h.log.Warn("failed to open subscription",
			zap.String("user_id", userID), zap.Error(err))
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Close()
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	defer sub.Close()

	h.trackStream(1)
	defer h.trackStream(-1)

	// 读循环只为感知客户端关闭
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case n, ok := <-sub.Notifications():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, n.Body); err != nil {
				return
			}
			h.markDelivered()
		}
	}
}

func (h *StreamHandler) trackStream(delta float64) {
	if h.metrics != nil {
		h.metrics.StreamConnections.Add(delta)
	}
}

func (h *StreamHandler) markDelivered() {
	if h.metrics != nil {
		h.metrics.NotificationsDelivered.Inc()
	}
}
