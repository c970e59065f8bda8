package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sentinel-ops/sentinel-backend-go/pkg/utils"
)

// ListSeries returns the names of all metric series currently buffered
func (h *Handlers) ListSeries(c *gin.Context) {
	names := h.engine.Store().SeriesNames()
	utils.SendSuccessWithMeta(c, names, gin.H{"count": len(names)})
}

// QueryMetrics returns samples for a series within an optional time range
func (h *Handlers) QueryMetrics(c *gin.Context) {
	series := c.Param("series")

	start := time.Time{}
	end := time.Now().Add(time.Hour)

	if v := c.Query("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.SendError(c, http.StatusBadRequest, "Invalid start timestamp")
			return
		}
		start = t
	}
	if v := c.Query("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.SendError(c, http.StatusBadRequest, "Invalid end timestamp")
			return
		}
		end = t
	}

	samples := h.engine.Store().Query(series, start, end)
	utils.SendSuccessWithMeta(c, samples, gin.H{
		"series": series,
		"count":  len(samples),
	})
}

// LatestMetric returns the most recent sample for a series
func (h *Handlers) LatestMetric(c *gin.Context) {
	series := c.Param("series")

	sample, ok := h.engine.Store().Latest(series)
	if !ok {
		utils.SendError(c, http.StatusNotFound, "No samples for series")
		return
	}
	utils.SendSuccess(c, sample)
}
