package rules

import (
	"math"
	"time"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/alerts"
	"github.com/sentinel-ops/sentinel-backend-go/pkg/errors"
)

// Operator compares a sample value against a rule threshold.
type Operator string

const (
	OpGreaterThan    Operator = ">"
	OpLessThan       Operator = "<"
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
)

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	switch op {
	case OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual, OpEqual, OpNotEqual:
		return true
	}
	return false
}

// Apply evaluates `value op threshold`.
func (op Operator) Apply(value, threshold float64) bool {
	switch op {
	case OpGreaterThan:
		return value > threshold
	case OpLessThan:
		return value < threshold
	case OpGreaterOrEqual:
		return value >= threshold
	case OpLessOrEqual:
		return value <= threshold
	case OpEqual:
		return value == threshold
	case OpNotEqual:
		return value != threshold
	default:
		return false
	}
}

// Condition is a typed threshold condition over a metric series.
type Condition struct {
	Series    string   `json:"series" yaml:"series"`
	Operator  Operator `json:"operator" yaml:"operator"`
	Threshold float64  `json:"threshold" yaml:"threshold"`
}

// Rule is a persisted threshold rule producing alerts when satisfied and
// not suppressed by cooldown.
type Rule struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description"`
	Condition   Condition       `json:"condition" yaml:"condition"`
	Severity    alerts.Severity `json:"severity" yaml:"severity"`
	Source      string          `json:"source,omitempty" yaml:"source"`
	// Window bounds how stale the latest sample may be and still trigger.
	Window   time.Duration `json:"window,omitempty" yaml:"window"`
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	// NotificationChannels are recorded on triggered alerts; dispatch is
	// someone else's job.
	NotificationChannels []string  `json:"notification_channels,omitempty" yaml:"notification_channels"`
	CreatedAt            time.Time `json:"created_at" yaml:"-"`
	UpdatedAt            time.Time `json:"updated_at" yaml:"-"`
}

// Validate rejects malformed rules at creation time.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return errors.WithDetails(errors.ErrInvalidRule, "rule name is required")
	}
	if r.Condition.Series == "" {
		return errors.WithDetails(errors.ErrInvalidRule, "condition series is required")
	}
	if !r.Condition.Operator.Valid() {
		return errors.WithDetails(errors.ErrInvalidRule, "unknown operator: "+string(r.Condition.Operator))
	}
	if math.IsNaN(r.Condition.Threshold) || math.IsInf(r.Condition.Threshold, 0) {
		return errors.WithDetails(errors.ErrInvalidRule, "threshold must be a finite number")
	}
	if r.Severity != "" && !r.Severity.Valid() {
		return errors.WithDetails(errors.ErrInvalidRule, "unknown severity: "+string(r.Severity))
	}
	if r.Cooldown < 0 || r.Window < 0 {
		return errors.WithDetails(errors.ErrInvalidRule, "cooldown and window must not be negative")
	}
	return nil
}

// UpdatePatch holds mutable rule fields for updates. Nil fields are left
// untouched.
type UpdatePatch struct {
	Name                 *string          `json:"name,omitempty"`
	Description          *string          `json:"description,omitempty"`
	Condition            *Condition       `json:"condition,omitempty"`
	Severity             *alerts.Severity `json:"severity,omitempty"`
	Cooldown             *time.Duration   `json:"cooldown,omitempty"`
	Window               *time.Duration   `json:"window,omitempty"`
	Enabled              *bool            `json:"enabled,omitempty"`
	NotificationChannels []string         `json:"notification_channels,omitempty"`
}
