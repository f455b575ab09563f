package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fabienpiette/partfox/internal/services"
)

// SystemHandler handles health, metrics and the websocket upgrade
type SystemHandler struct {
	container *services.Container
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(container *services.Container) *SystemHandler {
	return &SystemHandler{
		container: container,
	}
}

// Health reports the state of the backing services
func (h *SystemHandler) Health(c *gin.Context) {
	health := h.container.HealthCheck(c.Request.Context())

	status := http.StatusOK
	if health["status"] != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, health)
}

// Metrics returns search, autocomplete and websocket counters
func (h *SystemHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.container.GetMetrics(c.Request.Context()))
}

// WebSocket upgrades the request to a live autocomplete connection
func (h *SystemHandler) WebSocket(c *gin.Context) {
	clientID := c.GetHeader("X-Client-ID")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	h.container.GetWebSocketHub().HandleWebSocket(c.Writer, c.Request, clientID)
}
