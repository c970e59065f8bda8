package correlation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/alerts"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/clock"
)

// Pattern describes a multi-alert signature: MinAlerts or more alerts of
// Category from at least MinSources distinct sources within the scan window.
type Pattern struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description"`
	Category    string          `json:"category" yaml:"category"`
	// Tag additionally narrows matching to alerts carrying this tag.
	Tag        string          `json:"tag,omitempty" yaml:"tag"`
	MinAlerts  int             `json:"min_alerts" yaml:"min_alerts"`
	MinSources int             `json:"min_sources" yaml:"min_sources"`
	Severity   alerts.Severity `json:"severity" yaml:"severity"`
}

// AlertStore is the slice of alerts.Manager the correlation scan needs.
type AlertStore interface {
	DetectedSince(t time.Time) []alerts.Alert
	Create(req alerts.CreateRequest) (alerts.Alert, bool, error)
}

// Engine scans recent alerts for configured patterns and synthesizes
// composite alerts. Patterns are evaluated in registration order and each
// underlying alert feeds at most one match per scan.
type Engine struct {
	patterns []Pattern
	store    AlertStore
	clock    clock.Clock
	logger   *logrus.Logger
}

// NewEngine creates a correlation engine over the given alert store.
func NewEngine(patterns []Pattern, store AlertStore, clk clock.Clock, logger *logrus.Logger) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	return &Engine{
		patterns: patterns,
		store:    store,
		clock:    clk,
		logger:   logger,
	}
}

// Patterns returns the registered patterns in evaluation order.
func (e *Engine) Patterns() []Pattern {
	out := make([]Pattern, len(e.patterns))
	copy(out, e.patterns)
	return out
}

// Scan evaluates every pattern against alerts detected within the window
// and creates or refreshes composite alerts. Returns the number of matched
// patterns; zero matches is an explicit no-op, not an error.
func (e *Engine) Scan(window time.Duration) int {
	since := e.clock.Now().Add(-window)
	recent := e.store.DetectedSince(since)

	// Composite alerts never feed further correlation.
	candidates := make([]alerts.Alert, 0, len(recent))
	for _, a := range recent {
		if a.Category == alerts.CategoryCorrelation {
			continue
		}
		candidates = append(candidates, a)
	}

	claimed := make(map[string]bool, len(candidates))
	matches := 0

	for _, pattern := range e.patterns {
		group := make([]alerts.Alert, 0)
		sources := make(map[string]bool)
		for _, a := range candidates {
			if claimed[a.ID] {
				continue
			}
			if !e.matches(pattern, a) {
				continue
			}
			group = append(group, a)
			sources[a.Source] = true
		}

		minAlerts := pattern.MinAlerts
		if minAlerts <= 0 {
			minAlerts = 2
		}
		minSources := pattern.MinSources
		if minSources <= 0 {
			minSources = minAlerts
		}
		if len(group) < minAlerts || len(sources) < minSources {
			continue
		}

		// First matching pattern wins each alert.
		for _, a := range group {
			claimed[a.ID] = true
		}

		if e.emit(pattern, group, sources) {
			matches++
		}
	}
	return matches
}

func (e *Engine) matches(p Pattern, a alerts.Alert) bool {
	if p.Category != "" && a.Category != p.Category {
		return false
	}
	if p.Tag != "" {
		found := false
		for _, tag := range a.Tags {
			if tag == p.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// emit creates the composite alert, or refreshes the active one carrying
// the same pattern signature.
func (e *Engine) emit(p Pattern, group []alerts.Alert, sources map[string]bool) bool {
	ids := make([]string, 0, len(group))
	tags := []string{"pattern:" + p.ID}
	for _, a := range group {
		ids = append(ids, a.ID)
		tags = append(tags, "alert:"+a.ID)
	}

	sourceNames := make([]string, 0, len(sources))
	for s := range sources {
		sourceNames = append(sourceNames, s)
	}
	sort.Strings(sourceNames)

	req := alerts.CreateRequest{
		Title:    p.Name,
		Severity: alerts.MaxSeverity(p.Severity, alerts.SeverityHigh),
		Category: alerts.CategoryCorrelation,
		Source:   "correlation",
		Tags:     tags,
		DedupKey: "pattern:" + p.ID,
		Description: fmt.Sprintf("%d related alerts from %d sources (%s) matched pattern %q",
			len(group), len(sourceNames), strings.Join(sourceNames, ", "), p.Name),
		CorrelationID: p.ID,
	}

	created, isNew, err := e.store.Create(req)
	if err != nil {
		e.logger.WithError(err).WithField("pattern_id", p.ID).Error("Failed to create composite alert")
		return false
	}

	e.logger.WithFields(logrus.Fields{
		"pattern_id":    p.ID,
		"composite_id":  created.ID,
		"alert_count":   len(ids),
		"source_count":  len(sourceNames),
		"new_composite": isNew,
	}).Info("Correlation pattern matched")
	return true
}

// DefaultPatterns returns the built-in pattern registry. Order matters:
// earlier patterns claim alerts first.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			ID:          "auth-failures",
			Name:        "Coordinated authentication failures",
			Description: "Failed login alerts from multiple distinct sources",
			Category:    alerts.CategoryManual,
			Tag:         "failed_login",
			MinAlerts:   5,
			MinSources:  5,
			Severity:    alerts.SeverityHigh,
		},
		{
			ID:          "resource-pressure",
			Name:        "Correlated resource pressure",
			Description: "Threshold alerts on several resource series at once",
			Category:    alerts.CategoryAutomatedRule,
			MinAlerts:   3,
			MinSources:  3,
			Severity:    alerts.SeverityHigh,
		},
	}
}
