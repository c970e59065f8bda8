package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/rules"
	"github.com/sentinel-ops/sentinel-backend-go/pkg/utils"
)

// ListRules returns all configured rules
func (h *Handlers) ListRules(c *gin.Context) {
	list := h.engine.Rules().List()
	utils.SendSuccessWithMeta(c, list, gin.H{"count": len(list)})
}

// CreateRule adds a new evaluation rule
func (h *Handlers) CreateRule(c *gin.Context) {
	var rule rules.Rule
	if err := c.ShouldBindJSON(&rule); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.engine.Rules().Create(rule)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}

	h.log.WithField("rule_id", created.ID).Info("Rule created")
	utils.SendCreated(c, created)
}

// GetRule retrieves a single rule
func (h *Handlers) GetRule(c *gin.Context) {
	rule, err := h.engine.Rules().Get(c.Param("id"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, rule)
}

// UpdateRule applies a partial update to a rule
func (h *Handlers) UpdateRule(c *gin.Context) {
	var patch rules.UpdatePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	rule, err := h.engine.Rules().Update(c.Param("id"), patch)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, rule)
}

// ToggleRule enables or disables a rule
func (h *Handlers) ToggleRule(c *gin.Context) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	rule, err := h.engine.Rules().Toggle(c.Param("id"), req.Enabled)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}

	h.log.WithFields(map[string]interface{}{
		"rule_id": rule.ID,
		"enabled": rule.Enabled,
	}).Info("Rule toggled")
	utils.SendSuccess(c, rule)
}

// DeleteRule removes a rule
func (h *Handlers) DeleteRule(c *gin.Context) {
	if err := h.engine.Rules().Delete(c.Param("id")); err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"message": "Rule deleted"})
}
