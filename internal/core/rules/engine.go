package rules

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/alerts"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/clock"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/metricstore"
	"github.com/sentinel-ops/sentinel-backend-go/pkg/errors"
)

// AlertSink accepts alert-creation requests from rule triggers. Satisfied by
// alerts.Manager.
type AlertSink interface {
	Create(req alerts.CreateRequest) (alerts.Alert, bool, error)
}

// Engine holds threshold rules and evaluates them against the metric store.
// The rule set is copy-on-write: evaluation walks an immutable snapshot,
// CRUD builds and swaps a new one.
type Engine struct {
	logger *logrus.Logger
	clock  clock.Clock

	mu       sync.RWMutex
	rules    map[string]*Rule
	snapshot []*Rule

	// lastTrigger records the last accepted trigger per rule id.
	triggerMu   sync.Mutex
	lastTrigger map[string]time.Time
}

// NewEngine creates an empty rule engine.
func NewEngine(clk clock.Clock, logger *logrus.Logger) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	return &Engine{
		logger:      logger,
		clock:       clk,
		rules:       make(map[string]*Rule),
		lastTrigger: make(map[string]time.Time),
	}
}

// Create validates and stores a rule.
func (e *Engine) Create(rule Rule) (Rule, error) {
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.Severity == "" {
		rule.Severity = alerts.SeverityMedium
	}
	now := e.clock.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	e.mu.Lock()
	if _, exists := e.rules[rule.ID]; exists {
		e.mu.Unlock()
		return Rule{}, errors.WithDetails(errors.ErrConflict, "rule "+rule.ID+" already exists")
	}
	e.rules[rule.ID] = &rule
	e.rebuildSnapshotLocked()
	e.mu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"rule_id": rule.ID,
		"name":    rule.Name,
		"series":  rule.Condition.Series,
	}).Info("Alert rule added")
	return rule, nil
}

// Get returns a copy of the rule with the given id.
func (e *Engine) Get(id string) (Rule, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rule, ok := e.rules[id]
	if !ok {
		return Rule{}, errors.WithDetails(errors.ErrNotFound, "rule "+id)
	}
	return *rule, nil
}

// List returns all rules ordered by creation time, then name.
func (e *Engine) List() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Rule, 0, len(e.rules))
	for _, rule := range e.rules {
		out = append(out, *rule)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Update applies a patch to a rule. A patched condition is re-validated.
func (e *Engine) Update(id string, patch UpdatePatch) (Rule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, ok := e.rules[id]
	if !ok {
		return Rule{}, errors.WithDetails(errors.ErrNotFound, "rule "+id)
	}

	updated := *rule
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Condition != nil {
		updated.Condition = *patch.Condition
	}
	if patch.Severity != nil {
		updated.Severity = *patch.Severity
	}
	if patch.Cooldown != nil {
		updated.Cooldown = *patch.Cooldown
	}
	if patch.Window != nil {
		updated.Window = *patch.Window
	}
	if patch.Enabled != nil {
		updated.Enabled = *patch.Enabled
	}
	if patch.NotificationChannels != nil {
		updated.NotificationChannels = append([]string(nil), patch.NotificationChannels...)
	}
	if err := updated.Validate(); err != nil {
		return Rule{}, err
	}
	updated.UpdatedAt = e.clock.Now()

	e.rules[id] = &updated
	e.rebuildSnapshotLocked()

	e.logger.WithFields(logrus.Fields{
		"rule_id": id,
		"name":    updated.Name,
	}).Info("Alert rule updated")
	return updated, nil
}

// Toggle flips or sets a rule's enabled flag.
func (e *Engine) Toggle(id string, enabled bool) (Rule, error) {
	return e.Update(id, UpdatePatch{Enabled: &enabled})
}

// Delete removes a rule and its cooldown bookkeeping.
func (e *Engine) Delete(id string) error {
	e.mu.Lock()
	if _, ok := e.rules[id]; !ok {
		e.mu.Unlock()
		return errors.WithDetails(errors.ErrNotFound, "rule "+id)
	}
	delete(e.rules, id)
	e.rebuildSnapshotLocked()
	e.mu.Unlock()

	e.triggerMu.Lock()
	delete(e.lastTrigger, id)
	e.triggerMu.Unlock()

	e.logger.WithField("rule_id", id).Info("Alert rule removed")
	return nil
}

// rebuildSnapshotLocked recomputes the evaluation snapshot. Caller holds mu.
func (e *Engine) rebuildSnapshotLocked() {
	snap := make([]*Rule, 0, len(e.rules))
	for _, rule := range e.rules {
		r := *rule
		snap = append(snap, &r)
	}
	sort.Slice(snap, func(i, j int) bool {
		if snap[i].CreatedAt.Equal(snap[j].CreatedAt) {
			return snap[i].Name < snap[j].Name
		}
		return snap[i].CreatedAt.Before(snap[j].CreatedAt)
	})
	e.snapshot = snap
}

// Evaluation is the outcome of evaluating one rule for one cycle.
type Evaluation struct {
	RuleID    string
	Triggered bool
	Skipped   bool
	Value     float64
}

// EvaluateAll evaluates every enabled rule against the store's latest
// samples and submits alert requests for breached rules not under cooldown.
// A failure on one rule never stops the others.
func (e *Engine) EvaluateAll(store *metricstore.Store, sink AlertSink) []Evaluation {
	e.mu.RLock()
	snapshot := e.snapshot
	e.mu.RUnlock()

	results := make([]Evaluation, 0, len(snapshot))
	for _, rule := range snapshot {
		if !rule.Enabled {
			continue
		}
		results = append(results, e.evaluateOne(rule, store, sink))
	}
	return results
}

func (e *Engine) evaluateOne(rule *Rule, store *metricstore.Store, sink AlertSink) (ev Evaluation) {
	ev = Evaluation{RuleID: rule.ID}

	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{
				"rule_id": rule.ID,
				"panic":   r,
			}).Error("Rule evaluation panicked")
			ev.Skipped = true
		}
	}()

	sample, ok := store.Latest(rule.Condition.Series)
	if !ok {
		// No data for the series is informational, not an error.
		ev.Skipped = true
		return ev
	}

	now := e.clock.Now()
	if rule.Window > 0 && sample.Timestamp.Before(now.Add(-rule.Window)) {
		ev.Skipped = true
		return ev
	}

	ev.Value = sample.Value
	if !rule.Condition.Operator.Apply(sample.Value, rule.Condition.Threshold) {
		return ev
	}

	// Cooldown: skip a breached rule that triggered recently.
	e.triggerMu.Lock()
	last, seen := e.lastTrigger[rule.ID]
	e.triggerMu.Unlock()
	if seen && now.Sub(last) < rule.Cooldown {
		ev.Skipped = true
		return ev
	}

	accepted := e.trigger(rule, sample.Value, sink)
	if accepted {
		e.triggerMu.Lock()
		e.lastTrigger[rule.ID] = now
		e.triggerMu.Unlock()
		ev.Triggered = true
	}
	return ev
}

// trigger submits an alert-creation request for a breached rule. Returns
// true when the sink accepted the request, whether it created a new alert
// or absorbed it into an existing one; only a sink error leaves the
// cooldown clock untouched.
func (e *Engine) trigger(rule *Rule, value float64, sink AlertSink) bool {
	source := rule.Source
	if source == "" {
		source = rule.Condition.Series
	}

	tags := []string{"rule:" + rule.ID}
	for _, ch := range rule.NotificationChannels {
		tags = append(tags, "channel:"+ch)
	}

	req := alerts.CreateRequest{
		Title:    rule.Name,
		Severity: rule.Severity,
		Category: alerts.CategoryAutomatedRule,
		Source:   source,
		Tags:     tags,
		DedupKey: rule.ID,
		Description: fmt.Sprintf("%s: %s %s %.2f (observed %.2f)",
			rule.Name, rule.Condition.Series, rule.Condition.Operator, rule.Condition.Threshold, value),
	}

	_, created, err := sink.Create(req)
	if err != nil {
		e.logger.WithError(err).WithField("rule_id", rule.ID).Error("Failed to create alert for rule")
		return false
	}

	if created {
		e.logger.WithFields(logrus.Fields{
			"rule_id": rule.ID,
			"series":  rule.Condition.Series,
			"value":   value,
		}).Warn("Rule triggered")
	}
	return true
}
