package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/alerts"
	"github.com/sentinel-ops/sentinel-backend-go/internal/database/models"
)

const upsertAlert = `
INSERT INTO alerts (
	id, title, description, severity, status, category, source,
	detected_at, updated_at, resolved_at, assigned_to, tags,
	correlation_id, escalation_count, false_positive, occurrences,
	remediation, dedup_key
) VALUES (
	:id, :title, :description, :severity, :status, :category, :source,
	:detected_at, :updated_at, :resolved_at, :assigned_to, :tags,
	:correlation_id, :escalation_count, :false_positive, :occurrences,
	:remediation, :dedup_key
)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	description = excluded.description,
	severity = excluded.severity,
	status = excluded.status,
	updated_at = excluded.updated_at,
	resolved_at = excluded.resolved_at,
	assigned_to = excluded.assigned_to,
	tags = excluded.tags,
	escalation_count = excluded.escalation_count,
	false_positive = excluded.false_positive,
	occurrences = excluded.occurrences`

// AlertRepository persists alert snapshots best-effort. Writes flow through
// a bounded queue consumed by a single goroutine; a full queue or a failed
// write is logged and dropped, never surfaced to the caller.
type AlertRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
	queue  chan alerts.Alert
	done   chan struct{}
}

// NewAlertRepository creates the repository with the given write queue size.
func NewAlertRepository(db *sqlx.DB, queueSize int, logger *logrus.Logger) *AlertRepository {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &AlertRepository{
		db:     db,
		logger: logger,
		queue:  make(chan alerts.Alert, queueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the write consumer. Runs until the context is cancelled,
// then drains whatever is still queued.
func (r *AlertRepository) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		for {
			select {
			case <-ctx.Done():
				r.drain()
				return
			case alert := <-r.queue:
				r.write(alert)
			}
		}
	}()
}

// Wait blocks until the consumer has shut down.
func (r *AlertRepository) Wait() {
	<-r.done
}

// Enqueue queues an alert snapshot for persistence without blocking.
func (r *AlertRepository) Enqueue(alert alerts.Alert) {
	select {
	case r.queue <- alert:
	default:
		r.logger.WithField("alert_id", alert.ID).
			Warn("Alert persistence queue full, dropping write")
	}
}

func (r *AlertRepository) drain() {
	for {
		select {
		case alert := <-r.queue:
			r.write(alert)
		default:
			return
		}
	}
}

func (r *AlertRepository) write(alert alerts.Alert) {
	rec := models.FromAlert(alert)
	if _, err := r.db.NamedExec(upsertAlert, rec); err != nil {
		r.logger.WithError(err).WithField("alert_id", alert.ID).
			Warn("Failed to persist alert")
	}
}

// History returns persisted alerts ordered by detection time descending.
// Serves reads of alerts already purged from memory by retention.
func (r *AlertRepository) History(ctx context.Context, limit, offset int) ([]alerts.Alert, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var records []models.AlertRecord
	err := r.db.SelectContext(ctx, &records,
		`SELECT * FROM alerts ORDER BY detected_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]alerts.Alert, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.ToAlert())
	}
	return out, nil
}

// Purge deletes persisted resolved alerts older than the cutoff.
func (r *AlertRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM alerts WHERE status = ? AND resolved_at IS NOT NULL AND resolved_at < ?`,
		string(alerts.StatusResolved), cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Vacuum reclaims free pages after a purge.
func (r *AlertRepository) Vacuum(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "VACUUM")
	return err
}
