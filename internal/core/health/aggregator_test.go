package health

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/alerts"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/clock"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/metricstore"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newFixture(t *testing.T) (*Aggregator, *metricstore.Store, *alerts.Manager, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := metricstore.New(100)
	mgr := alerts.NewManager(nil, clk, testLogger())
	agg := NewAggregator(DefaultComponents(), DefaultThresholds, clk, testLogger())
	return agg, store, mgr, clk
}

func TestAggregator_ThresholdBands(t *testing.T) {
	tests := []struct {
		value float64
		want  Status
	}{
		{95, StatusCritical},
		{75, StatusWarning},
		{10, StatusHealthy},
		{90, StatusWarning},
		{70, StatusHealthy},
	}

	agg, store, mgr, clk := newFixture(t)
	for _, tt := range tests {
		t.Run(fmt.Sprintf("cpu=%.0f", tt.value), func(t *testing.T) {
			store.Append(metricstore.Sample{Series: "cpu_usage", Value: tt.value, Timestamp: clk.Now()})
			snap := agg.Refresh(store, mgr)
			assert.Equal(t, tt.want, snap.Components["cpu"].Status)
		})
	}
}

func TestAggregator_MonitoringComponent(t *testing.T) {
	agg, store, mgr, _ := newFixture(t)

	snap := agg.Refresh(store, mgr)
	assert.Equal(t, StatusHealthy, snap.Components["monitoring"].Status)

	_, _, err := mgr.Create(alerts.CreateRequest{Title: "c1", Severity: alerts.SeverityCritical, Source: "s1"})
	require.NoError(t, err)
	snap = agg.Refresh(store, mgr)
	assert.Equal(t, StatusWarning, snap.Components["monitoring"].Status)

	for i := 0; i < 5; i++ {
		_, _, err := mgr.Create(alerts.CreateRequest{
			Title: fmt.Sprintf("crit %d", i), Severity: alerts.SeverityCritical, Source: fmt.Sprintf("s%d", i+2),
		})
		require.NoError(t, err)
	}
	snap = agg.Refresh(store, mgr)
	assert.Equal(t, StatusCritical, snap.Components["monitoring"].Status,
		"more than five active critical alerts is critical")
}

func TestAggregator_UnknownWithoutSamples(t *testing.T) {
	agg, store, mgr, _ := newFixture(t)

	snap := agg.Refresh(store, mgr)
	assert.Equal(t, StatusUnknown, snap.Components["disk"].Status)
}

func TestAggregator_OverallIsWorstComponent(t *testing.T) {
	agg, store, mgr, clk := newFixture(t)

	store.Append(metricstore.Sample{Series: "cpu_usage", Value: 10, Timestamp: clk.Now()})
	store.Append(metricstore.Sample{Series: "memory_usage", Value: 75, Timestamp: clk.Now()})
	store.Append(metricstore.Sample{Series: "disk_usage", Value: 95, Timestamp: clk.Now()})

	snap := agg.Refresh(store, mgr)
	assert.Equal(t, StatusCritical, snap.Overall)
}

func TestAggregator_SnapshotSwappedWholesale(t *testing.T) {
	agg, store, mgr, clk := newFixture(t)

	before := agg.Snapshot()
	assert.Equal(t, StatusUnknown, before.Overall, "pre-refresh snapshot is empty, not nil")

	store.Append(metricstore.Sample{Series: "cpu_usage", Value: 95, Timestamp: clk.Now()})
	agg.Refresh(store, mgr)
	first := agg.Snapshot()

	store.Append(metricstore.Sample{Series: "cpu_usage", Value: 10, Timestamp: clk.Now()})
	agg.Refresh(store, mgr)
	second := agg.Snapshot()

	// The previously returned snapshot is unaffected by later refreshes.
	assert.Equal(t, StatusCritical, first.Components["cpu"].Status)
	assert.Equal(t, StatusHealthy, second.Components["cpu"].Status)
}
