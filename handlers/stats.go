package handlers

import (
	"net/http"

	"smartbin-server/cache"
	"smartbin-server/services"
	"smartbin-server/ws"

	"github.com/gin-gonic/gin"
)

// StatsHandler exposes the gateway's in-memory state for operators.
type StatsHandler struct {
	nonces  *cache.NonceCache
	limiter *services.RateLimiter
	hub     *ws.Hub
}

func NewStatsHandler(nonces *cache.NonceCache, limiter *services.RateLimiter, hub *ws.Hub) *StatsHandler {
	return &StatsHandler{
		nonces:  nonces,
		limiter: limiter,
		hub:     hub,
	}
}

// GetGatewayStats handles GET /api/v1/gateway/stats
func (h *StatsHandler) GetGatewayStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"stats": gin.H{
			"nonce_cache_size":     h.nonces.Len(),
			"rate_limiter_windows": h.limiter.ActiveWindows(),
			"dashboard_clients":    h.hub.Count(),
		},
	})
}
