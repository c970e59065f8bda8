package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-ops/sentinel-backend-go/internal/config"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/alerts"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/clock"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/correlation"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/engine"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/health"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/metricstore"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/rules"
)

func testRouter(t *testing.T) (*gin.Engine, *Handlers) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	clk := clock.NewMock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := metricstore.New(100)
	alertMgr := alerts.NewManager(&alerts.ManagerConfig{MaxAlerts: 100, Retention: time.Hour}, clk, logger)
	ruleEngine := rules.NewEngine(clk, logger)
	correlationEngine := correlation.NewEngine(nil, alertMgr, clk, logger)
	healthAgg := health.NewAggregator(health.DefaultComponents(), health.Thresholds{Warning: 70, Critical: 90}, clk, logger)

	eng := engine.New(nil, store, ruleEngine, alertMgr, correlationEngine, healthAgg, nil, nil, clk, logger)

	h := NewHandlers(&config.Config{}, eng, nil, logger, nil)

	router := gin.New()
	router.GET("/api/v1/alerts", h.ListAlerts)
	router.POST("/api/v1/alerts", h.CreateAlert)
	router.GET("/api/v1/alerts/stats", h.GetAlertStats)
	router.GET("/api/v1/alerts/:id", h.GetAlert)
	router.POST("/api/v1/alerts/:id/acknowledge", h.AcknowledgeAlert)
	router.POST("/api/v1/alerts/:id/resolve", h.ResolveAlert)
	router.GET("/api/v1/rules", h.ListRules)
	router.POST("/api/v1/rules", h.CreateRule)
	return router, h
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetAlert(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/alerts", alerts.CreateRequest{
		Title:    "Disk failing",
		Severity: alerts.SeverityHigh,
		Source:   "host-1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data alerts.Alert `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Data.ID)
	assert.Equal(t, alerts.StatusNew, created.Data.Status)

	w = doJSON(t, router, http.MethodGet, "/api/v1/alerts/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateAlertValidation(t *testing.T) {
	router, _ := testRouter(t)

	// Missing title is rejected by the manager.
	w := doJSON(t, router, http.MethodPost, "/api/v1/alerts", alerts.CreateRequest{
		Severity: alerts.SeverityLow,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAlertLifecycleEndpoints(t *testing.T) {
	router, h := testRouter(t)

	alert, created, err := h.engine.Alerts().Create(alerts.CreateRequest{
		Title:    "CPU hot",
		Severity: alerts.SeverityMedium,
		Source:   "host-2",
	})
	require.NoError(t, err)
	require.True(t, created)

	w := doJSON(t, router, http.MethodPost, "/api/v1/alerts/"+alert.ID+"/acknowledge", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/alerts/"+alert.ID+"/resolve", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Resolved is terminal.
	w = doJSON(t, router, http.MethodPost, "/api/v1/alerts/"+alert.ID+"/acknowledge", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListAlertsFilterValidation(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/alerts?severity=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/alerts?status=new,resolved", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListAlertsPaginationMeta(t *testing.T) {
	router, h := testRouter(t)

	for i := 0; i < 5; i++ {
		_, _, err := h.engine.Alerts().Create(alerts.CreateRequest{
			Title:    "Alert",
			Severity: alerts.SeverityLow,
			Source:   "host-" + string(rune('a'+i)),
		})
		require.NoError(t, err)
	}

	w := doJSON(t, router, http.MethodGet, "/api/v1/alerts?limit=2&offset=0", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []alerts.Alert `json:"data"`
		Meta struct {
			Total  int `json:"total"`
			Limit  int `json:"limit"`
			Offset int `json:"offset"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, 5, resp.Meta.Total)
}

func TestRuleEndpoints(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/rules", rules.Rule{
		Name: "cpu high",
		Condition: rules.Condition{
			Series:    "cpu_usage",
			Operator:  rules.OpGreaterThan,
			Threshold: 80,
		},
		Severity: alerts.SeverityHigh,
		Cooldown: 5 * time.Minute,
		Enabled:  true,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Unknown operator fails validation.
	w = doJSON(t, router, http.MethodPost, "/api/v1/rules", rules.Rule{
		Name: "broken",
		Condition: rules.Condition{
			Series:    "cpu_usage",
			Operator:  rules.Operator("~="),
			Threshold: 80,
		},
		Severity: alerts.SeverityHigh,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/rules", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
