package alerts

import (
	"time"
)

// Severity represents the severity level of an alert
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRank orders severities for comparisons; higher is more severe.
var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// MaxSeverity returns the more severe of a and b.
func MaxSeverity(a, b Severity) Severity {
	if severityRank[a] >= severityRank[b] {
		return a
	}
	return b
}

// Status represents an alert's lifecycle state
type Status string

const (
	StatusNew          Status = "new"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
	StatusEscalated    Status = "escalated"
	StatusSuppressed   Status = "suppressed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusAcknowledged, StatusResolved, StatusEscalated, StatusSuppressed:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusResolved
}

// Alert categories. Automated rules and correlation are the two internal
// producers; everything arriving over the API is manual.
const (
	CategoryAutomatedRule = "automated_rule"
	CategoryCorrelation   = "correlation"
	CategoryManual        = "manual"
)

// Alert represents a single alert record. Owned exclusively by the Manager;
// callers receive copies.
type Alert struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Severity        Severity   `json:"severity"`
	Status          Status     `json:"status"`
	Category        string     `json:"category"`
	Source          string     `json:"source"`
	DetectedAt      time.Time  `json:"detected_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	AssignedTo      string     `json:"assigned_to,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	CorrelationID   string     `json:"correlation_id,omitempty"`
	EscalationCount int        `json:"escalation_count"`
	FalsePositive   bool       `json:"false_positive"`
	Occurrences     int        `json:"occurrences"`
	// Remediation is derived once at creation and immutable afterwards.
	Remediation []string `json:"remediation,omitempty"`
	// DedupKey identifies the producing rule or correlation pattern for
	// idempotent creation.
	DedupKey string `json:"dedup_key,omitempty"`
}

// CreateRequest carries everything needed to create an alert.
type CreateRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Severity      Severity `json:"severity"`
	Category      string   `json:"category"`
	Source        string   `json:"source"`
	Tags          []string `json:"tags,omitempty"`
	CorrelationID string   `json:"correlation_id,omitempty"`
	DedupKey      string   `json:"dedup_key,omitempty"`
}

// UpdatePatch holds the field changes an update may apply. Nil fields are
// left untouched.
type UpdatePatch struct {
	Status        *Status  `json:"status,omitempty"`
	AssignedTo    *string  `json:"assigned_to,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	FalsePositive *bool    `json:"false_positive,omitempty"`
}

// Filter selects alerts for Search. Zero values are ignored.
type Filter struct {
	Query      string     `json:"query,omitempty"`
	Severities []Severity `json:"severities,omitempty"`
	Statuses   []Status   `json:"statuses,omitempty"`
	Source     string     `json:"source,omitempty"`
	AssignedTo string     `json:"assigned_to,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Since      *time.Time `json:"since,omitempty"`
	Until      *time.Time `json:"until,omitempty"`
	Offset     int        `json:"offset,omitempty"`
	Limit      int        `json:"limit,omitempty"`
}

// Stats summarizes alert counts for the dashboard and stats endpoints.
type Stats struct {
	Total      int            `json:"total"`
	Active     int            `json:"active"`
	BySeverity map[string]int `json:"by_severity"`
	ByStatus   map[string]int `json:"by_status"`
	BySource   map[string]int `json:"by_source"`
}
