package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/alerts"
)

// AlertRecord is the sqlite row shape of an alert.
type AlertRecord struct {
	ID              string       `db:"id"`
	Title           string       `db:"title"`
	Description     string       `db:"description"`
	Severity        string       `db:"severity"`
	Status          string       `db:"status"`
	Category        string       `db:"category"`
	Source          string       `db:"source"`
	DetectedAt      time.Time    `db:"detected_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
	ResolvedAt      sql.NullTime `db:"resolved_at"`
	AssignedTo      string       `db:"assigned_to"`
	Tags            string       `db:"tags"`
	CorrelationID   string       `db:"correlation_id"`
	EscalationCount int          `db:"escalation_count"`
	FalsePositive   bool         `db:"false_positive"`
	Occurrences     int          `db:"occurrences"`
	Remediation     string       `db:"remediation"`
	DedupKey        string       `db:"dedup_key"`
}

// FromAlert converts a core alert into its row shape. Slices are stored as
// JSON text columns.
func FromAlert(a alerts.Alert) AlertRecord {
	rec := AlertRecord{
		ID:              a.ID,
		Title:           a.Title,
		Description:     a.Description,
		Severity:        string(a.Severity),
		Status:          string(a.Status),
		Category:        a.Category,
		Source:          a.Source,
		DetectedAt:      a.DetectedAt,
		UpdatedAt:       a.UpdatedAt,
		AssignedTo:      a.AssignedTo,
		Tags:            marshalStrings(a.Tags),
		CorrelationID:   a.CorrelationID,
		EscalationCount: a.EscalationCount,
		FalsePositive:   a.FalsePositive,
		Occurrences:     a.Occurrences,
		Remediation:     marshalStrings(a.Remediation),
		DedupKey:        a.DedupKey,
	}
	if a.ResolvedAt != nil {
		rec.ResolvedAt = sql.NullTime{Time: *a.ResolvedAt, Valid: true}
	}
	return rec
}

// ToAlert converts a row back into a core alert.
func (r AlertRecord) ToAlert() alerts.Alert {
	a := alerts.Alert{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Severity:        alerts.Severity(r.Severity),
		Status:          alerts.Status(r.Status),
		Category:        r.Category,
		Source:          r.Source,
		DetectedAt:      r.DetectedAt,
		UpdatedAt:       r.UpdatedAt,
		AssignedTo:      r.AssignedTo,
		Tags:            unmarshalStrings(r.Tags),
		CorrelationID:   r.CorrelationID,
		EscalationCount: r.EscalationCount,
		FalsePositive:   r.FalsePositive,
		Occurrences:     r.Occurrences,
		Remediation:     unmarshalStrings(r.Remediation),
		DedupKey:        r.DedupKey,
	}
	if r.ResolvedAt.Valid {
		t := r.ResolvedAt.Time
		a.ResolvedAt = &t
	}
	return a
}

func marshalStrings(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalStrings(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
