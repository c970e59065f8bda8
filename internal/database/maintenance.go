package database

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/sentinel-ops/sentinel-backend-go/internal/database/sqlite"
)

// Maintenance runs scheduled database upkeep: purging persisted alerts
// past the retention horizon and reclaiming disk space.
type Maintenance struct {
	repo      *sqlite.AlertRepository
	retention time.Duration
	logger    *logrus.Logger
	cron      *cron.Cron
}

// NewMaintenance builds the maintenance runner and registers the job on the
// given cron schedule (standard 5-field spec, e.g. "0 3 * * *").
func NewMaintenance(repo *sqlite.AlertRepository, schedule string, retention time.Duration, logger *logrus.Logger) (*Maintenance, error) {
	m := &Maintenance{
		repo:      repo,
		retention: retention,
		logger:    logger,
		cron:      cron.New(),
	}
	if _, err := m.cron.AddFunc(schedule, m.run); err != nil {
		return nil, err
	}
	return m, nil
}

// Start begins the schedule.
func (m *Maintenance) Start() {
	m.cron.Start()
	m.logger.Info("Database maintenance scheduler started")
}

// Stop halts the schedule and waits for any running job to finish.
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}

func (m *Maintenance) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-m.retention)
	purged, err := m.repo.Purge(ctx, cutoff)
	if err != nil {
		m.logger.WithError(err).Error("Database maintenance purge failed")
		return
	}

	if purged > 0 {
		if err := m.repo.Vacuum(ctx); err != nil {
			m.logger.WithError(err).Warn("Database vacuum failed")
		}
	}

	m.logger.WithFields(logrus.Fields{
		"purged": purged,
		"cutoff": cutoff.Format(time.RFC3339),
	}).Info("Database maintenance completed")
}
