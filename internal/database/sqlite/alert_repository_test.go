package sqlite

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/alerts"
)

func testRepo(t *testing.T) *AlertRepository {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../../../migrations/000001_create_alerts.up.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewAlertRepository(db, 16, logger)
}

func testAlert(id string, status alerts.Status, detectedAt time.Time) alerts.Alert {
	a := alerts.Alert{
		ID:         id,
		Title:      "Test alert " + id,
		Severity:   alerts.SeverityHigh,
		Status:     status,
		Category:   alerts.CategoryManual,
		Source:     "host-1",
		DetectedAt: detectedAt,
		UpdatedAt:  detectedAt,
		Tags:       []string{"test"},
	}
	if status == alerts.StatusResolved {
		resolved := detectedAt.Add(time.Minute)
		a.ResolvedAt = &resolved
	}
	return a
}

func TestWriteAndHistory(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	repo.write(testAlert("a1", alerts.StatusNew, now.Add(-2*time.Hour)))
	repo.write(testAlert("a2", alerts.StatusNew, now.Add(-time.Hour)))
	repo.write(testAlert("a3", alerts.StatusNew, now))

	history, err := repo.History(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)

	// Newest first.
	assert.Equal(t, "a3", history[0].ID)
	assert.Equal(t, "a1", history[2].ID)
	assert.Equal(t, []string{"test"}, history[0].Tags)
}

func TestWriteUpsertsOnConflict(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	alert := testAlert("a1", alerts.StatusNew, now)
	repo.write(alert)

	alert.Status = alerts.StatusAcknowledged
	alert.Occurrences = 3
	repo.write(alert)

	history, err := repo.History(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, alerts.StatusAcknowledged, history[0].Status)
	assert.Equal(t, 3, history[0].Occurrences)
}

func TestPurgeRemovesOldResolved(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	repo.write(testAlert("old-resolved", alerts.StatusResolved, now.Add(-40*24*time.Hour)))
	repo.write(testAlert("new-resolved", alerts.StatusResolved, now.Add(-time.Hour)))
	repo.write(testAlert("old-active", alerts.StatusNew, now.Add(-40*24*time.Hour)))

	purged, err := repo.Purge(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	history, err := repo.History(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, a := range history {
		assert.NotEqual(t, "old-resolved", a.ID)
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	repo := testRepo(t)

	// Consumer not started: fill the queue past capacity.
	for i := 0; i < 32; i++ {
		repo.Enqueue(testAlert("a", alerts.StatusNew, time.Now()))
	}
	assert.Equal(t, 16, len(repo.queue))
}

func TestStartDrainsQueueOnShutdown(t *testing.T) {
	repo := testRepo(t)
	ctx, cancel := context.WithCancel(context.Background())

	repo.Enqueue(testAlert("a1", alerts.StatusNew, time.Now().UTC()))
	repo.Enqueue(testAlert("a2", alerts.StatusNew, time.Now().UTC()))

	repo.Start(ctx)
	cancel()
	repo.Wait()

	history, err := repo.History(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
