package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sentinel-ops/sentinel-backend-go/internal/websocket"
	"github.com/sentinel-ops/sentinel-backend-go/pkg/utils"
)

// WebSocketHandler upgrades the connection and hands it to the hub
func (h *Handlers) WebSocketHandler(hub *websocket.Hub) gin.HandlerFunc {
	return websocket.HandleWebSocketGin(hub)
}

// GetWebSocketStats returns hub statistics
func (h *Handlers) GetWebSocketStats(hub *websocket.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.SendSuccess(c, hub.GetStats())
	}
}

// BroadcastMessage pushes an arbitrary message to all connected clients
func (h *Handlers) BroadcastMessage(hub *websocket.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var msg websocket.Message
		if err := c.ShouldBindJSON(&msg); err != nil {
			utils.SendError(c, http.StatusBadRequest, "Invalid message format")
			return
		}
		if msg.Type == "" {
			utils.SendError(c, http.StatusBadRequest, "Message type is required")
			return
		}

		hub.BroadcastToAll(msg)
		utils.SendSuccess(c, gin.H{
			"message": "Broadcast sent",
			"clients": hub.GetClientCount(),
		})
	}
}
