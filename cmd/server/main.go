package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sentinel-ops/sentinel-backend-go/internal/api"
	"github.com/sentinel-ops/sentinel-backend-go/internal/config"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/alerts"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/clock"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/collector"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/correlation"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/engine"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/health"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/metrics"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/metricstore"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/rules"
	"github.com/sentinel-ops/sentinel-backend-go/internal/database"
	"github.com/sentinel-ops/sentinel-backend-go/internal/database/sqlite"
	"github.com/sentinel-ops/sentinel-backend-go/internal/websocket"
	"github.com/sentinel-ops/sentinel-backend-go/pkg/logger"
	"github.com/sentinel-ops/sentinel-backend-go/pkg/version"
)

func main() {
	// Initialize logger
	log := logger.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	log.WithField("version", version.String()).Info("Starting Sentinel Backend")

	// Initialize database
	db, err := database.Initialize(cfg.Database.Path, cfg.Database.MaxConnections)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.Migrate(db, cfg.Database.MigrationsPath); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Alert persistence (fire-and-forget write-through)
	repoCtx, repoCancel := context.WithCancel(context.Background())
	repo := sqlite.NewAlertRepository(db, 256, log)
	repo.Start(repoCtx)

	// Metrics recorder
	recorder := metrics.NewPrometheusRecorder(&metrics.Config{Enabled: true, Prefix: "sentinel"})

	// Create WebSocket hub
	wsHub := websocket.NewHub(log, recorder)
	go wsHub.Run()

	// Core monitoring components
	clk := clock.New()

	store := metricstore.New(cfg.Monitoring.MetricBufferSize)

	alertMgr := alerts.NewManager(&alerts.ManagerConfig{
		MaxAlerts: cfg.Monitoring.MaxAlerts,
		Retention: config.Duration(cfg.Monitoring.AlertRetention, 7*24*time.Hour),
	}, clk, log)

	// Persist and broadcast every alert change.
	alertMgr.OnCreated(func(a alerts.Alert) {
		repo.Enqueue(a)
		wsHub.BroadcastToTopic(websocket.TopicAlerts, websocket.AlertCreatedMessage(a))
	})
	alertMgr.OnUpdated(func(a alerts.Alert) {
		repo.Enqueue(a)
		wsHub.BroadcastToTopic(websocket.TopicAlerts, websocket.AlertUpdatedMessage(a))
	})
	alertMgr.OnResolved(func(a alerts.Alert) {
		wsHub.BroadcastToTopic(websocket.TopicAlerts, websocket.AlertResolvedMessage(a))
	})

	ruleEngine := rules.NewEngine(clk, log)
	if _, err := ruleEngine.LoadPack(cfg.Monitoring.RulesPath); err != nil {
		log.WithError(err).Warn("Failed to load rule pack")
	}

	correlationEngine := correlation.NewEngine(correlation.DefaultPatterns(), alertMgr, clk, log)

	healthAgg := health.NewAggregator(health.DefaultComponents(), health.Thresholds{
		Warning:  cfg.Monitoring.Health.WarningThreshold,
		Critical: cfg.Monitoring.Health.CriticalThreshold,
	}, clk, log)

	sources := []collector.MetricSource{collector.NewSystemSource()}

	eng := engine.New(&engine.Config{
		Interval:          config.Duration(cfg.Monitoring.Interval, 30*time.Second),
		MinSleep:          config.Duration(cfg.Monitoring.MinSleep, time.Second),
		CollectionTimeout: config.Duration(cfg.Monitoring.CollectionTimeout, 5*time.Second),
		AlertRetention:    config.Duration(cfg.Monitoring.AlertRetention, 7*24*time.Hour),
		CorrelationWindow: config.Duration(cfg.Monitoring.CorrelationWindow, time.Hour),
	}, store, ruleEngine, alertMgr, correlationEngine, healthAgg, sources, recorder, clk, log)

	engineCtx, engineCancel := context.WithCancel(context.Background())
	if cfg.Monitoring.Enabled {
		eng.Start(engineCtx)
	} else {
		log.Warn("Monitoring engine disabled by configuration")
	}

	// Push health snapshots to subscribers alongside the cycle interval.
	go func() {
		ticker := time.NewTicker(config.Duration(cfg.Monitoring.Interval, 30*time.Second))
		defer ticker.Stop()
		for {
			select {
			case <-engineCtx.Done():
				return
			case <-ticker.C:
				wsHub.BroadcastToTopic(websocket.TopicHealth, websocket.HealthSnapshotMessage(healthAgg.Snapshot()))
			}
		}
	}()

	// Nightly database maintenance
	maintenance, err := database.NewMaintenance(repo, cfg.Database.MaintenanceSchedule,
		config.Duration(cfg.Database.Retention, 30*24*time.Hour), log)
	if err != nil {
		log.Fatal("Failed to schedule database maintenance:", err)
	}
	maintenance.Start()

	// Initialize router
	router := api.NewRouter(cfg, eng, repo, log, wsHub, recorder)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		log.Infof("Starting Sentinel Backend on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown:", err)
	}

	eng.Stop()
	engineCancel()
	maintenance.Stop()

	// Let the persistence queue drain before closing the database.
	repoCancel()
	repo.Wait()

	log.Info("Server exited")
}
