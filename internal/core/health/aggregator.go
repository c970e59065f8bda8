package health

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/alerts"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/clock"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/metricstore"
)

// Status is the coarse health of a monitored component.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusUnknown  Status = "unknown"
)

// ComponentHealth is the derived state of one monitored component.
type ComponentHealth struct {
	Name      string                 `json:"name"`
	Status    Status                 `json:"status"`
	Value     float64                `json:"value,omitempty"`
	LastCheck time.Time              `json:"last_check"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Snapshot is an immutable point-in-time view of all component health.
// Built wholesale each refresh and swapped atomically.
type Snapshot struct {
	Overall    Status                     `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
	LastCheck  time.Time                  `json:"last_check"`
}

// Component maps a monitored component name to the metric series that
// drives its status.
type Component struct {
	Name   string `json:"name" yaml:"name"`
	Series string `json:"series" yaml:"series"`
}

// Thresholds are the fixed cut-offs for deriving component status.
type Thresholds struct {
	Warning  float64
	Critical float64
}

// DefaultThresholds matches the warning/critical bands used across the
// resource rules.
var DefaultThresholds = Thresholds{Warning: 70, Critical: 90}

// Aggregator derives component health from the latest metrics plus active
// alert counts. The snapshot is a pure function of current store state.
type Aggregator struct {
	components []Component
	thresholds Thresholds
	clock      clock.Clock
	logger     *logrus.Logger
	snapshot   atomic.Pointer[Snapshot]
}

// DefaultComponents covers the series the system collector produces.
func DefaultComponents() []Component {
	return []Component{
		{Name: "cpu", Series: "cpu_usage"},
		{Name: "memory", Series: "memory_usage"},
		{Name: "disk", Series: "disk_usage"},
	}
}

// NewAggregator creates a health aggregator over the given components.
func NewAggregator(components []Component, thresholds Thresholds, clk clock.Clock, logger *logrus.Logger) *Aggregator {
	if clk == nil {
		clk = clock.New()
	}
	if thresholds.Critical == 0 {
		thresholds = DefaultThresholds
	}
	return &Aggregator{
		components: components,
		thresholds: thresholds,
		clock:      clk,
		logger:     logger,
	}
}

// StatusFor derives the coarse status for a metric value.
func (a *Aggregator) StatusFor(value float64) Status {
	switch {
	case value > a.thresholds.Critical:
		return StatusCritical
	case value > a.thresholds.Warning:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

// Refresh rebuilds the snapshot from the store and alert manager and swaps
// it in atomically. Readers never observe a partially built snapshot.
func (a *Aggregator) Refresh(store *metricstore.Store, mgr *alerts.Manager) Snapshot {
	now := a.clock.Now()
	components := make(map[string]ComponentHealth, len(a.components)+1)

	for _, c := range a.components {
		ch := ComponentHealth{
			Name:      c.Name,
			Status:    StatusUnknown,
			LastCheck: now,
			Details:   map[string]interface{}{"series": c.Series},
		}
		if sample, ok := store.Latest(c.Series); ok {
			ch.Status = a.StatusFor(sample.Value)
			ch.Value = sample.Value
			ch.Details["sampled_at"] = sample.Timestamp
		}
		components[c.Name] = ch
	}

	// The monitoring component reflects active critical alert pressure.
	criticalCount := mgr.ActiveCountBySeverity(alerts.SeverityCritical)
	monitoringStatus := StatusHealthy
	switch {
	case criticalCount > 5:
		monitoringStatus = StatusCritical
	case criticalCount > 0:
		monitoringStatus = StatusWarning
	}
	components["monitoring"] = ComponentHealth{
		Name:      "monitoring",
		Status:    monitoringStatus,
		Value:     float64(criticalCount),
		LastCheck: now,
		Details:   map[string]interface{}{"active_critical_alerts": criticalCount},
	}

	snap := &Snapshot{
		Overall:    overall(components),
		Components: components,
		LastCheck:  now,
	}
	a.snapshot.Store(snap)

	a.logger.WithFields(logrus.Fields{
		"overall":    snap.Overall,
		"components": len(components),
	}).Debug("Health snapshot refreshed")
	return *snap
}

// Snapshot returns the latest snapshot, or an empty unknown snapshot before
// the first refresh.
func (a *Aggregator) Snapshot() Snapshot {
	if snap := a.snapshot.Load(); snap != nil {
		return *snap
	}
	return Snapshot{
		Overall:    StatusUnknown,
		Components: map[string]ComponentHealth{},
	}
}

func overall(components map[string]ComponentHealth) Status {
	result := StatusHealthy
	for _, c := range components {
		switch c.Status {
		case StatusCritical:
			return StatusCritical
		case StatusWarning:
			result = StatusWarning
		}
	}
	return result
}
