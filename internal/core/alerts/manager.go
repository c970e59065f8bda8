package alerts

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/clock"
	"github.com/sentinel-ops/sentinel-backend-go/pkg/errors"
)

// ManagerConfig contains configuration for the alert manager
type ManagerConfig struct {
	MaxAlerts int
	Retention time.Duration
}

// Manager owns the alert lifecycle: creation with dedup, state transitions,
// search and retention cleanup. All mutation goes through the Manager.
type Manager struct {
	config *ManagerConfig
	logger *logrus.Logger
	clock  clock.Clock
	alerts map[string]*Alert
	mu     sync.RWMutex

	onCreated  []func(Alert)
	onUpdated  []func(Alert)
	onResolved []func(Alert)
}

// NewManager creates a new alert manager
func NewManager(config *ManagerConfig, clk clock.Clock, logger *logrus.Logger) *Manager {
	if config == nil {
		config = &ManagerConfig{
			MaxAlerts: 10000,
			Retention: 7 * 24 * time.Hour,
		}
	}
	if clk == nil {
		clk = clock.New()
	}

	return &Manager{
		config: config,
		logger: logger,
		clock:  clk,
		alerts: make(map[string]*Alert),
	}
}

// Create stores a new alert, or updates the matching active alert when the
// request carries a dedup key already covered by one. The second return
// value reports whether a new alert was created.
func (m *Manager) Create(req CreateRequest) (Alert, bool, error) {
	if req.Title == "" {
		return Alert{}, false, errors.WithDetails(errors.ErrBadRequest, "alert title is required")
	}
	if req.Severity == "" {
		req.Severity = SeverityMedium
	}
	if !req.Severity.Valid() {
		return Alert{}, false, errors.WithDetails(errors.ErrBadRequest, "unknown severity: "+string(req.Severity))
	}
	if req.Category == "" {
		req.Category = CategoryManual
	}

	m.mu.Lock()

	now := m.clock.Now()

	// Dedup: an active alert for the same (dedup key, source) absorbs the
	// request instead of duplicating it.
	if req.DedupKey != "" {
		if existing := m.findActiveLocked(req.DedupKey, req.Source); existing != nil {
			existing.UpdatedAt = now
			existing.Occurrences++
			updated := *existing
			m.mu.Unlock()

			m.logger.WithFields(logrus.Fields{
				"alert_id":    updated.ID,
				"dedup_key":   req.DedupKey,
				"occurrences": updated.Occurrences,
			}).Debug("Alert deduplicated into existing record")

			m.notify(&m.onUpdated, updated)
			return updated, false, nil
		}
	}

	if len(m.alerts) >= m.config.MaxAlerts {
		m.evictOldestResolvedLocked()
	}

	alert := &Alert{
		ID:            uuid.New().String(),
		Title:         req.Title,
		Description:   req.Description,
		Severity:      req.Severity,
		Status:        StatusNew,
		Category:      req.Category,
		Source:        req.Source,
		DetectedAt:    now,
		UpdatedAt:     now,
		Tags:          append([]string(nil), req.Tags...),
		CorrelationID: req.CorrelationID,
		Occurrences:   1,
		Remediation:   remediationSteps(req.Severity, req.Category),
		DedupKey:      req.DedupKey,
	}
	m.alerts[alert.ID] = alert
	created := *alert
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"alert_id": created.ID,
		"severity": created.Severity,
		"category": created.Category,
		"source":   created.Source,
	}).Info("Alert created")

	m.notify(&m.onCreated, created)
	return created, true, nil
}

// Get returns a copy of the alert with the given id.
func (m *Manager) Get(id string) (Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	alert, ok := m.alerts[id]
	if !ok {
		return Alert{}, errors.WithDetails(errors.ErrNotFound, "alert "+id)
	}
	return *alert, nil
}

// Update applies field changes and lifecycle transitions. Once an alert is
// resolved only the false_positive flag may still change.
func (m *Manager) Update(id string, patch UpdatePatch) (Alert, error) {
	m.mu.Lock()

	alert, ok := m.alerts[id]
	if !ok {
		m.mu.Unlock()
		return Alert{}, errors.WithDetails(errors.ErrNotFound, "alert "+id)
	}

	if alert.Status == StatusResolved {
		if patch.Status != nil && *patch.Status != StatusResolved {
			m.mu.Unlock()
			return Alert{}, errors.WithDetails(errors.ErrConflict, "resolved alerts cannot be reopened")
		}
		if patch.AssignedTo != nil || patch.Description != nil || patch.Tags != nil {
			m.mu.Unlock()
			return Alert{}, errors.WithDetails(errors.ErrConflict, "resolved alerts only accept false_positive changes")
		}
		if patch.FalsePositive != nil {
			alert.FalsePositive = *patch.FalsePositive
			alert.UpdatedAt = m.clock.Now()
		}
		updated := *alert
		m.mu.Unlock()
		m.notify(&m.onUpdated, updated)
		return updated, nil
	}

	if patch.Status != nil {
		if err := m.transitionLocked(alert, *patch.Status); err != nil {
			m.mu.Unlock()
			return Alert{}, err
		}
	}
	if patch.AssignedTo != nil {
		alert.AssignedTo = *patch.AssignedTo
	}
	if patch.Description != nil {
		alert.Description = *patch.Description
	}
	if patch.Tags != nil {
		alert.Tags = append([]string(nil), patch.Tags...)
	}
	if patch.FalsePositive != nil {
		alert.FalsePositive = *patch.FalsePositive
	}
	alert.UpdatedAt = m.clock.Now()

	updated := *alert
	resolved := updated.Status == StatusResolved
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"alert_id": updated.ID,
		"status":   updated.Status,
	}).Info("Alert updated")

	m.notify(&m.onUpdated, updated)
	if resolved {
		m.notify(&m.onResolved, updated)
	}
	return updated, nil
}

// transitionLocked validates and applies a status change. Caller holds mu.
func (m *Manager) transitionLocked(alert *Alert, to Status) error {
	if !to.Valid() {
		return errors.WithDetails(errors.ErrBadRequest, "unknown status: "+string(to))
	}
	if alert.Status == to {
		return nil
	}

	from := alert.Status
	allowed := false
	switch to {
	case StatusResolved:
		// Terminal, reachable from any non-terminal state.
		allowed = !from.Terminal()
	case StatusEscalated:
		allowed = !from.Terminal()
	case StatusAcknowledged:
		allowed = from == StatusNew || from == StatusEscalated
	case StatusSuppressed:
		allowed = from == StatusNew || from == StatusAcknowledged || from == StatusEscalated
	case StatusNew:
		allowed = false
	}
	if !allowed {
		return errors.WithDetails(errors.ErrConflict,
			"transition "+string(from)+" -> "+string(to)+" is not allowed")
	}

	alert.Status = to
	switch to {
	case StatusResolved:
		now := m.clock.Now()
		alert.ResolvedAt = &now
	case StatusEscalated:
		alert.EscalationCount++
	}
	return nil
}

// Acknowledge moves a new or escalated alert to acknowledged.
func (m *Manager) Acknowledge(id string) (Alert, error) {
	s := StatusAcknowledged
	return m.Update(id, UpdatePatch{Status: &s})
}

// Resolve moves an alert to the terminal resolved state.
func (m *Manager) Resolve(id string) (Alert, error) {
	s := StatusResolved
	return m.Update(id, UpdatePatch{Status: &s})
}

// Escalate raises a non-terminal alert, bumping its escalation count.
func (m *Manager) Escalate(id string) (Alert, error) {
	s := StatusEscalated
	return m.Update(id, UpdatePatch{Status: &s})
}

// Suppress silences an active alert.
func (m *Manager) Suppress(id string) (Alert, error) {
	s := StatusSuppressed
	return m.Update(id, UpdatePatch{Status: &s})
}

// Delete removes an alert outright. API use only; the engine relies on
// Cleanup for retention.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.alerts[id]; !ok {
		return errors.WithDetails(errors.ErrNotFound, "alert "+id)
	}
	delete(m.alerts, id)
	m.logger.WithField("alert_id", id).Info("Alert deleted")
	return nil
}

// Search filters, sorts by detected_at descending and paginates. Returns the
// page and the total match count before pagination.
func (m *Manager) Search(f Filter) ([]Alert, int) {
	m.mu.RLock()
	matched := make([]Alert, 0, len(m.alerts))
	for _, alert := range m.alerts {
		if matchesFilter(alert, f) {
			matched = append(matched, *alert)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].DetectedAt.Equal(matched[j].DetectedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].DetectedAt.After(matched[j].DetectedAt)
	})

	total := len(matched)
	if f.Offset > 0 {
		if f.Offset >= total {
			return []Alert{}, total
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, total
}

func matchesFilter(a *Alert, f Filter) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(a.Title), q) &&
			!strings.Contains(strings.ToLower(a.Description), q) {
			return false
		}
	}
	if len(f.Severities) > 0 && !containsSeverity(f.Severities, a.Severity) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, a.Status) {
		return false
	}
	if f.Source != "" && a.Source != f.Source {
		return false
	}
	if f.AssignedTo != "" && a.AssignedTo != f.AssignedTo {
		return false
	}
	if f.Since != nil && a.DetectedAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && a.DetectedAt.After(*f.Until) {
		return false
	}
	for _, tag := range f.Tags {
		if !containsString(a.Tags, tag) {
			return false
		}
	}
	return true
}

// DetectedSince returns copies of alerts detected at or after t, ascending
// by detection time. Used by the correlation scan.
func (m *Manager) DetectedSince(t time.Time) []Alert {
	m.mu.RLock()
	out := make([]Alert, 0)
	for _, alert := range m.alerts {
		if !alert.DetectedAt.Before(t) {
			out = append(out, *alert)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].DetectedAt.Before(out[j].DetectedAt)
	})
	return out
}

// ActiveCountBySeverity counts non-resolved alerts of the given severity.
func (m *Manager) ActiveCountBySeverity(severity Severity) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, alert := range m.alerts {
		if alert.Status != StatusResolved && alert.Severity == severity {
			count++
		}
	}
	return count
}

// Stats returns aggregate counts by severity, status and source.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		BySeverity: make(map[string]int),
		ByStatus:   make(map[string]int),
		BySource:   make(map[string]int),
	}
	for _, alert := range m.alerts {
		stats.Total++
		if alert.Status != StatusResolved {
			stats.Active++
		}
		stats.BySeverity[string(alert.Severity)]++
		stats.ByStatus[string(alert.Status)]++
		if alert.Source != "" {
			stats.BySource[alert.Source]++
		}
	}
	return stats
}

// Cleanup purges resolved alerts whose resolved_at is older than the
// retention horizon. Active alerts are never purged regardless of age.
// Returns the number of purged alerts.
func (m *Manager) Cleanup(retention time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.clock.Now().Add(-retention)
	removed := 0
	for id, alert := range m.alerts {
		if alert.Status == StatusResolved && alert.ResolvedAt != nil && alert.ResolvedAt.Before(cutoff) {
			delete(m.alerts, id)
			removed++
		}
	}

	if removed > 0 {
		m.logger.WithField("removed_count", removed).Info("Cleaned up old alerts")
	}
	return removed
}

// OnCreated registers a callback invoked after each new alert.
func (m *Manager) OnCreated(fn func(Alert)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCreated = append(m.onCreated, fn)
}

// OnUpdated registers a callback invoked after each alert mutation.
func (m *Manager) OnUpdated(fn func(Alert)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdated = append(m.onUpdated, fn)
}

// OnResolved registers a callback invoked when an alert reaches resolved.
func (m *Manager) OnResolved(fn func(Alert)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onResolved = append(m.onResolved, fn)
}

// notify fans an alert out to the registered callbacks. The slice is
// snapshotted under the lock so registration may race with delivery.
func (m *Manager) notify(callbacks *[]func(Alert), alert Alert) {
	m.mu.RLock()
	snapshot := append(([]func(Alert))(nil), (*callbacks)...)
	m.mu.RUnlock()

	for _, fn := range snapshot {
		go fn(alert)
	}
}

// findActiveLocked returns the active alert matching a dedup key and source.
// Caller holds mu.
func (m *Manager) findActiveLocked(dedupKey, source string) *Alert {
	for _, alert := range m.alerts {
		if alert.Status != StatusResolved && alert.DedupKey == dedupKey && alert.Source == source {
			return alert
		}
	}
	return nil
}

// evictOldestResolvedLocked frees capacity by dropping the oldest resolved
// alert. Caller holds mu.
func (m *Manager) evictOldestResolvedLocked() {
	var oldest *Alert
	var oldestID string
	for id, alert := range m.alerts {
		if alert.Status != StatusResolved {
			continue
		}
		if oldest == nil || alert.DetectedAt.Before(oldest.DetectedAt) {
			oldest = alert
			oldestID = id
		}
	}
	if oldest != nil {
		delete(m.alerts, oldestID)
		m.logger.WithField("alert_id", oldestID).Debug("Evicted oldest resolved alert")
	}
}

func containsSeverity(list []Severity, s Severity) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
