package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/sentinel-ops/sentinel-backend-go/internal/api/handlers"
	"github.com/sentinel-ops/sentinel-backend-go/internal/api/middleware"
	"github.com/sentinel-ops/sentinel-backend-go/internal/config"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/engine"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/metrics"
	"github.com/sentinel-ops/sentinel-backend-go/internal/database/sqlite"
	"github.com/sentinel-ops/sentinel-backend-go/internal/websocket"
)

// NewRouter creates and configures the main HTTP router
func NewRouter(cfg *config.Config, eng *engine.Engine, repo *sqlite.AlertRepository, logger *logrus.Logger, wsHub *websocket.Hub, recorder metrics.Recorder) *gin.Engine {
	// Set gin mode based on config
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.ErrorHandlingMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.MetricsMiddleware(recorder))
	router.Use(middleware.ErrorResponseMiddleware(logger))

	// Initialize handlers
	h := handlers.NewHandlers(cfg, eng, repo, logger, wsHub)

	// Public routes
	router.GET("/health", h.Health)
	router.GET("/health/live", h.Liveness)
	router.GET("/health/ready", h.Readiness)

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	router.GET("/ws", h.WebSocketHandler(wsHub))

	// API v1 routes
	api := router.Group("/api/v1")
	{
		api.GET("/status", h.Health)
		api.GET("/dashboard", h.Dashboard)

		// Alert endpoints
		alerts := api.Group("/alerts")
		{
			alerts.GET("", h.ListAlerts)
			alerts.POST("", h.CreateAlert)
			alerts.GET("/stats", h.GetAlertStats)
			alerts.GET("/history", h.GetAlertHistory)
			alerts.GET("/:id", h.GetAlert)
			alerts.PUT("/:id", h.UpdateAlert)
			alerts.PATCH("/:id", h.UpdateAlert)
			alerts.DELETE("/:id", h.DeleteAlert)
			alerts.POST("/:id/acknowledge", h.AcknowledgeAlert)
			alerts.POST("/:id/resolve", h.ResolveAlert)
			alerts.POST("/:id/escalate", h.EscalateAlert)
			alerts.POST("/:id/suppress", h.SuppressAlert)
		}

		// Rule endpoints
		rules := api.Group("/rules")
		{
			rules.GET("", h.ListRules)
			rules.POST("", h.CreateRule)
			rules.GET("/:id", h.GetRule)
			rules.PUT("/:id", h.UpdateRule)
			rules.POST("/:id/toggle", h.ToggleRule)
			rules.DELETE("/:id", h.DeleteRule)
		}

		// Metric series endpoints
		series := api.Group("/metrics")
		{
			series.GET("", h.ListSeries)
			series.GET("/:series", h.QueryMetrics)
			series.GET("/:series/latest", h.LatestMetric)
		}

		// WebSocket management endpoints
		ws := api.Group("/websocket")
		{
			ws.GET("/stats", h.GetWebSocketStats(wsHub))
			ws.POST("/broadcast", h.BroadcastMessage(wsHub))
		}
	}

	return router
}
