package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/sentinel-ops/sentinel-backend-go/internal/config"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/engine"
	"github.com/sentinel-ops/sentinel-backend-go/internal/database/sqlite"
	"github.com/sentinel-ops/sentinel-backend-go/internal/websocket"
)

// Handlers holds all HTTP handlers and their dependencies
type Handlers struct {
	cfg    *config.Config
	log    *logrus.Logger
	engine *engine.Engine
	repo   *sqlite.AlertRepository
	wsHub  *websocket.Hub
}

// NewHandlers creates a new handlers instance
func NewHandlers(cfg *config.Config, eng *engine.Engine, repo *sqlite.AlertRepository, logger *logrus.Logger, wsHub *websocket.Hub) *Handlers {
	return &Handlers{
		cfg:    cfg,
		log:    logger,
		engine: eng,
		repo:   repo,
		wsHub:  wsHub,
	}
}
