package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aescanero/fftdetect/pkg/domain"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards are served from other origins
	},
}

// Subscriber hands out detection subscriptions
type Subscriber interface {
	Subscribe(ctx context.Context) <-chan domain.Detection
}

// StreamMetrics tracks connected clients
type StreamMetrics interface {
	AddStreamSubscribers(delta int)
}

// Handler handles WebSocket connections
type Handler struct {
	hub     Subscriber
	metrics StreamMetrics
	logger  *zap.Logger
}

// NewHandler creates a new WebSocket handler. metrics may be nil.
func NewHandler(hub Subscriber, metrics StreamMetrics, logger *zap.Logger) *Handler {
	return &Handler{
		hub:     hub,
		metrics: metrics,
		logger:  logger,
	}
}

// HandleDetectionStream streams every recorded detection to the client
func (h *Handler) HandleDetectionStream(c *gin.Context) {
	// Upgrade connection
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Debug("WebSocket connection established", zap.String("client", c.RemoteIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	if h.metrics != nil {
		h.metrics.AddStreamSubscribers(1)
		defer h.metrics.AddStreamSubscribers(-1)
	}

	// The client never sends data; reading surfaces its close frame.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	detections := h.hub.Subscribe(ctx)

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("WebSocket connection closed", zap.String("client", c.RemoteIP()))
			return
		case d, ok := <-detections:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}

			data, err := json.Marshal(d)
			if err != nil {
				h.logger.Error("failed to marshal detection", zap.Error(err))
				continue
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Error("failed to write message", zap.Error(err))
				return
			}
		}
	}
}
