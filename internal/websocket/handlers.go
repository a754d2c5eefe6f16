package websocket

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler provides HTTP handlers for websocket endpoints
type Handler struct {
	hub *Hub
}

// NewHandler creates a new websocket handler
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// HandlePoolsWebSocket upgrades the connection and starts the client pumps
func (h *Handler) HandlePoolsWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := NewClient(conn, h.hub, fmt.Sprintf("client-%d", time.Now().UnixNano()))
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// HandleStats returns hub connection statistics
func (h *Handler) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.GetStats())
}

// SetupRoutes registers websocket routes on the router
func SetupRoutes(router *gin.Engine, handler *Handler) {
	ws := router.Group("/ws")
	{
		ws.GET("/pools", handler.HandlePoolsWebSocket)
		ws.GET("/stats", handler.HandleStats)
	}
}
