package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/alerts"
	"github.com/sentinel-ops/sentinel-backend-go/pkg/errors"
	"github.com/sentinel-ops/sentinel-backend-go/pkg/utils"
)

// ListAlerts searches alerts with optional filters and pagination
func (h *Handlers) ListAlerts(c *gin.Context) {
	filter, err := parseAlertFilter(c)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}

	result, total := h.engine.Alerts().Search(filter)
	utils.SendSuccessWithMeta(c, result, utils.PageMeta{
		Total:  total,
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// CreateAlert raises a manual alert
func (h *Handlers) CreateAlert(c *gin.Context) {
	var req alerts.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	alert, created, err := h.engine.Alerts().Create(req)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}

	if !created {
		// Deduplicated onto an existing active alert.
		utils.SendSuccessWithMeta(c, alert, gin.H{"deduplicated": true})
		return
	}
	utils.SendCreated(c, alert)
}

// GetAlert retrieves a single alert
func (h *Handlers) GetAlert(c *gin.Context) {
	alert, err := h.engine.Alerts().Get(c.Param("id"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, alert)
}

// UpdateAlert applies a partial update to an alert
func (h *Handlers) UpdateAlert(c *gin.Context) {
	var patch alerts.UpdatePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	alert, err := h.engine.Alerts().Update(c.Param("id"), patch)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, alert)
}

// DeleteAlert removes an alert
func (h *Handlers) DeleteAlert(c *gin.Context) {
	if err := h.engine.Alerts().Delete(c.Param("id")); err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"message": "Alert deleted"})
}

// AcknowledgeAlert marks an alert as acknowledged
func (h *Handlers) AcknowledgeAlert(c *gin.Context) {
	h.lifecycleAction(c, h.engine.Alerts().Acknowledge)
}

// ResolveAlert marks an alert as resolved
func (h *Handlers) ResolveAlert(c *gin.Context) {
	h.lifecycleAction(c, h.engine.Alerts().Resolve)
}

// EscalateAlert bumps an alert to escalated
func (h *Handlers) EscalateAlert(c *gin.Context) {
	h.lifecycleAction(c, h.engine.Alerts().Escalate)
}

// SuppressAlert silences an alert
func (h *Handlers) SuppressAlert(c *gin.Context) {
	h.lifecycleAction(c, h.engine.Alerts().Suppress)
}

func (h *Handlers) lifecycleAction(c *gin.Context, action func(string) (alerts.Alert, error)) {
	alert, err := action(c.Param("id"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, alert)
}

// GetAlertStats summarizes alert counts
func (h *Handlers) GetAlertStats(c *gin.Context) {
	utils.SendSuccess(c, h.engine.Alerts().Stats())
}

// GetAlertHistory reads persisted alerts, including those already purged
// from memory by retention
func (h *Handlers) GetAlertHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	history, err := h.repo.History(ctx, limit, offset)
	if err != nil {
		h.log.WithError(err).Error("Failed to read alert history")
		utils.SendError(c, http.StatusInternalServerError, "Failed to retrieve alert history")
		return
	}

	utils.SendSuccessWithMeta(c, history, gin.H{
		"count":  len(history),
		"offset": offset,
	})
}

func parseAlertFilter(c *gin.Context) (alerts.Filter, error) {
	filter := alerts.Filter{
		Query:      c.Query("q"),
		Source:     c.Query("source"),
		AssignedTo: c.Query("assigned_to"),
	}

	if v := c.Query("severity"); v != "" {
		for _, s := range strings.Split(v, ",") {
			sev := alerts.Severity(s)
			if !sev.Valid() {
				return filter, errors.WithDetails(errors.ErrBadRequest, "invalid severity: "+s)
			}
			filter.Severities = append(filter.Severities, sev)
		}
	}

	if v := c.Query("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			st := alerts.Status(s)
			if !st.Valid() {
				return filter, errors.WithDetails(errors.ErrBadRequest, "invalid status: "+s)
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}

	if v := c.Query("tags"); v != "" {
		filter.Tags = strings.Split(v, ",")
	}

	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.WithDetails(errors.ErrBadRequest, "invalid since timestamp")
		}
		filter.Since = &t
	}

	if v := c.Query("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.WithDetails(errors.ErrBadRequest, "invalid until timestamp")
		}
		filter.Until = &t
	}

	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 50
	}

	return filter, nil
}
