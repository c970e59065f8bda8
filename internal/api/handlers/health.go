package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/health"
	"github.com/sentinel-ops/sentinel-backend-go/pkg/utils"
	"github.com/sentinel-ops/sentinel-backend-go/pkg/version"
)

// Health returns the aggregated health snapshot of the service. A critical
// overall status is reported with 503 so load balancer checks see it.
func (h *Handlers) Health(c *gin.Context) {
	snapshot := h.engine.Health().Snapshot()

	body := gin.H{
		"status":     string(snapshot.Overall),
		"components": snapshot.Components,
		"last_check": snapshot.LastCheck,
		"service":    "sentinel-backend-go",
		"version":    version.Version,
		"timestamp":  time.Now().Format(time.RFC3339),
	}

	if snapshot.Overall == health.StatusCritical {
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	utils.SendSuccess(c, body)
}

// Liveness reports that the process is up
func (h *Handlers) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Readiness reports whether the monitoring engine is running and not critical
func (h *Handlers) Readiness(c *gin.Context) {
	if !h.engine.Running() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": "monitoring engine not running",
		})
		return
	}

	snapshot := h.engine.Health().Snapshot()
	if snapshot.Overall == health.StatusCritical {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": "overall health critical",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
