package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/alerts"
	"github.com/sentinel-ops/sentinel-backend-go/pkg/utils"
)

// Dashboard returns a combined view for the overview screen: alert stats,
// current health, the most recent alerts and the latest sample per series.
func (h *Handlers) Dashboard(c *gin.Context) {
	stats := h.engine.Alerts().Stats()
	snapshot := h.engine.Health().Snapshot()

	recent, _ := h.engine.Alerts().Search(alerts.Filter{Limit: 10})

	store := h.engine.Store()
	latest := make(map[string]interface{})
	for _, name := range store.SeriesNames() {
		if sample, ok := store.Latest(name); ok {
			latest[name] = gin.H{
				"value":     sample.Value,
				"timestamp": sample.Timestamp,
			}
		}
	}

	utils.SendSuccess(c, gin.H{
		"alerts": gin.H{
			"stats":  stats,
			"recent": recent,
		},
		"health":  snapshot,
		"metrics": latest,
		"engine": gin.H{
			"running":  h.engine.Running(),
			"patterns": h.engine.Correlation().Patterns(),
		},
	})
}
