package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"smartbin-server/metrics"
	"smartbin-server/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// readingEvent is the envelope pushed to dashboard subscribers for every
// accepted reading.
type readingEvent struct {
	Type             string  `json:"type"` // always "reading"
	DustbinCode      string  `json:"dustbin_code"`
	FillPercentage   float64 `json:"fill_percentage"`
	FlaggedForReview bool    `json:"flagged_for_review"`
	CreatedAt        string  `json:"created_at"`
}

// WSHandler serves the dashboard's live fill feed.
type WSHandler struct {
	hub    *ws.Hub
	logger *zap.Logger
}

func NewWSHandler(hub *ws.Hub, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{hub: hub, logger: logger}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// HandleDashboardWS upgrades to websocket and keeps the subscriber
// registered until it disconnects. Subscribers only listen; inbound
// messages are discarded.
// GET /ws
func (h *WSHandler) HandleDashboardWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.hub.Register(conn)
	metrics.DashboardClients.Set(float64(h.hub.Count()))
	h.logger.Info("dashboard subscriber connected", zap.Int("subscribers", h.hub.Count()))

	defer func() {
		h.hub.Unregister(conn)
		metrics.DashboardClients.Set(float64(h.hub.Count()))
		h.logger.Info("dashboard subscriber disconnected", zap.Int("subscribers", h.hub.Count()))
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// PublishReading implements usecases.ReadingPublisher: it fans an accepted
// reading out to every dashboard subscriber.
func (h *WSHandler) PublishReading(dustbinCode string, fill float64, flagged bool, at time.Time) {
	event := readingEvent{
		Type:             "reading",
		DustbinCode:      dustbinCode,
		FillPercentage:   fill,
		FlaggedForReview: flagged,
		CreatedAt:        at.UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal reading event", zap.Error(err))
		return
	}
	h.hub.Broadcast(payload)
}
