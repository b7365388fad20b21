package handler

import (
	"net/http"

	"live-auction/utils"

	"github.com/gin-gonic/gin"
)

// ConnectionHub is the websocket side of the real-time channel
type ConnectionHub interface {
	ServeWS(w http.ResponseWriter, r *http.Request) error
	Stats() map[string]any
}

type WSHandler struct {
	hub ConnectionHub
}

func NewWSHandler(hub ConnectionHub) *WSHandler {
	return &WSHandler{hub: hub}
}

// ServeWSHandler handles GET /ws. The upgrader writes its own error response.
func (h *WSHandler) ServeWSHandler(c *gin.Context) {
	if err := h.hub.ServeWS(c.Writer, c.Request); err != nil {
		utils.Warn("ServeWSHandler: upgrade failed", map[string]any{"remote_addr": c.ClientIP(), "error": err.Error()})
	}
}

// StatsHandler handles GET /ws/stats
func (h *WSHandler) StatsHandler(c *gin.Context) {
	utils.JSONResponse(c, http.StatusOK, h.hub.Stats(), "connection stats retrieved successfully")
}
