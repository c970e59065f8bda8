package alerts

import (
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/clock"
	"github.com/sentinel-ops/sentinel-backend-go/pkg/errors"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestManager(t *testing.T) (*Manager, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewManager(&ManagerConfig{MaxAlerts: 100, Retention: 7 * 24 * time.Hour}, clk, testLogger()), clk
}

func TestManager_Create(t *testing.T) {
	mgr, clk := newTestManager(t)

	alert, created, err := mgr.Create(CreateRequest{
		Title:    "CPU usage above threshold",
		Severity: SeverityHigh,
		Category: CategoryAutomatedRule,
		Source:   "host-1",
		DedupKey: "rule-1",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, StatusNew, alert.Status)
	assert.Equal(t, clk.Now(), alert.DetectedAt)
	assert.Equal(t, 1, alert.Occurrences)
	assert.NotEmpty(t, alert.Remediation)
}

func TestManager_CreateValidation(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, _, err := mgr.Create(CreateRequest{})
	assert.ErrorIs(t, err, errors.ErrBadRequest)

	_, _, err = mgr.Create(CreateRequest{Title: "x", Severity: "catastrophic"})
	assert.ErrorIs(t, err, errors.ErrBadRequest)

	// Missing severity and category fall back to defaults.
	alert, _, err := mgr.Create(CreateRequest{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, SeverityMedium, alert.Severity)
	assert.Equal(t, CategoryManual, alert.Category)
}

func TestManager_Dedup(t *testing.T) {
	mgr, clk := newTestManager(t)

	req := CreateRequest{
		Title:    "CPU usage above threshold",
		Severity: SeverityHigh,
		Category: CategoryAutomatedRule,
		Source:   "host-1",
		DedupKey: "rule-1",
	}

	first, created, err := mgr.Create(req)
	require.NoError(t, err)
	require.True(t, created)

	clk.Advance(time.Minute)
	second, created, err := mgr.Create(req)
	require.NoError(t, err)
	assert.False(t, created, "active alert with same dedup key must absorb the request")
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Occurrences)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	// A different source is an independent alert.
	req.Source = "host-2"
	third, created, err := mgr.Create(req)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, third.ID)

	// Once resolved, the dedup key is free again.
	_, err = mgr.Resolve(first.ID)
	require.NoError(t, err)
	req.Source = "host-1"
	fourth, created, err := mgr.Create(req)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, fourth.ID)
}

func TestManager_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []Status
		wantErr bool
	}{
		{"acknowledge then resolve", []Status{StatusAcknowledged, StatusResolved}, false},
		{"direct resolve", []Status{StatusResolved}, false},
		{"escalate from new", []Status{StatusEscalated}, false},
		{"escalate then acknowledge", []Status{StatusEscalated, StatusAcknowledged}, false},
		{"suppress acknowledged", []Status{StatusAcknowledged, StatusSuppressed}, false},
		{"suppress then resolve", []Status{StatusSuppressed, StatusResolved}, false},
		{"acknowledge suppressed", []Status{StatusSuppressed, StatusAcknowledged}, true},
		{"back to new", []Status{StatusAcknowledged, StatusNew}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, _ := newTestManager(t)
			alert, _, err := mgr.Create(CreateRequest{Title: "t", Source: "s"})
			require.NoError(t, err)

			for i, status := range tt.path {
				s := status
				_, err = mgr.Update(alert.ID, UpdatePatch{Status: &s})
				last := i == len(tt.path)-1
				if last && tt.wantErr {
					assert.ErrorIs(t, err, errors.ErrConflict)
				} else {
					require.NoError(t, err)
				}
			}
		})
	}
}

func TestManager_ResolvedIsTerminal(t *testing.T) {
	mgr, clk := newTestManager(t)

	alert, _, err := mgr.Create(CreateRequest{Title: "t", Source: "s"})
	require.NoError(t, err)

	resolved, err := mgr.Resolve(alert.ID)
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, clk.Now(), *resolved.ResolvedAt)

	// Any attempt to leave resolved fails.
	for _, status := range []Status{StatusNew, StatusAcknowledged, StatusEscalated, StatusSuppressed} {
		s := status
		_, err = mgr.Update(alert.ID, UpdatePatch{Status: &s})
		assert.ErrorIs(t, err, errors.ErrConflict, "resolved -> %s must fail", status)
	}

	// Other field edits are rejected too.
	assignee := "alice"
	_, err = mgr.Update(alert.ID, UpdatePatch{AssignedTo: &assignee})
	assert.ErrorIs(t, err, errors.ErrConflict)

	// false_positive remains togglable.
	fp := true
	updated, err := mgr.Update(alert.ID, UpdatePatch{FalsePositive: &fp})
	require.NoError(t, err)
	assert.True(t, updated.FalsePositive)
	assert.Equal(t, StatusResolved, updated.Status)
}

func TestManager_EscalationCount(t *testing.T) {
	mgr, _ := newTestManager(t)

	alert, _, err := mgr.Create(CreateRequest{Title: "t", Source: "s"})
	require.NoError(t, err)

	escalated, err := mgr.Escalate(alert.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, escalated.EscalationCount)

	_, err = mgr.Acknowledge(alert.ID)
	require.NoError(t, err)
	escalated, err = mgr.Escalate(alert.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, escalated.EscalationCount)
}

func TestManager_NotFound(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.Get("missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = mgr.Update("missing", UpdatePatch{})
	assert.ErrorIs(t, err, errors.ErrNotFound)

	err = mgr.Delete("missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestManager_Search(t *testing.T) {
	mgr, clk := newTestManager(t)

	mk := func(title, source string, sev Severity, tags ...string) Alert {
		a, _, err := mgr.Create(CreateRequest{Title: title, Severity: sev, Source: source, Tags: tags})
		require.NoError(t, err)
		clk.Advance(time.Minute)
		return a
	}

	a1 := mk("disk filling up", "host-1", SeverityCritical, "disk")
	mk("memory pressure", "host-2", SeverityMedium, "memory")
	a3 := mk("disk latency spike", "host-1", SeverityHigh, "disk")
	_, err := mgr.Resolve(a1.ID)
	require.NoError(t, err)

	t.Run("free text", func(t *testing.T) {
		results, total := mgr.Search(Filter{Query: "disk"})
		assert.Equal(t, 2, total)
		require.Len(t, results, 2)
		// detected_at descending
		assert.Equal(t, a3.ID, results[0].ID)
	})

	t.Run("severity set", func(t *testing.T) {
		_, total := mgr.Search(Filter{Severities: []Severity{SeverityCritical, SeverityHigh}})
		assert.Equal(t, 2, total)
	})

	t.Run("status set", func(t *testing.T) {
		results, _ := mgr.Search(Filter{Statuses: []Status{StatusResolved}})
		require.Len(t, results, 1)
		assert.Equal(t, a1.ID, results[0].ID)
	})

	t.Run("source and tags", func(t *testing.T) {
		_, total := mgr.Search(Filter{Source: "host-1", Tags: []string{"disk"}})
		assert.Equal(t, 2, total)
	})

	t.Run("pagination", func(t *testing.T) {
		page1, total := mgr.Search(Filter{Limit: 2})
		assert.Equal(t, 3, total)
		require.Len(t, page1, 2)
		page2, _ := mgr.Search(Filter{Offset: 2, Limit: 2})
		require.Len(t, page2, 1)
		assert.NotContains(t, []string{page1[0].ID, page1[1].ID}, page2[0].ID)

		empty, total := mgr.Search(Filter{Offset: 10})
		assert.Equal(t, 3, total)
		assert.Empty(t, empty)
	})

	t.Run("date range", func(t *testing.T) {
		since := a3.DetectedAt
		_, total := mgr.Search(Filter{Since: &since})
		assert.Equal(t, 1, total)
	})
}

func TestManager_Cleanup(t *testing.T) {
	mgr, clk := newTestManager(t)

	old, _, err := mgr.Create(CreateRequest{Title: "old", Source: "s"})
	require.NoError(t, err)
	_, err = mgr.Resolve(old.ID)
	require.NoError(t, err)

	// Resolve the second alert one hour before the cleanup runs.
	clk.Advance(8*24*time.Hour - time.Hour)
	recent, _, err := mgr.Create(CreateRequest{Title: "recent", Source: "s"})
	require.NoError(t, err)
	_, err = mgr.Resolve(recent.ID)
	require.NoError(t, err)

	stale, _, err := mgr.Create(CreateRequest{Title: "stale but active", Source: "s"})
	require.NoError(t, err)

	clk.Advance(time.Hour)
	removed := mgr.Cleanup(7 * 24 * time.Hour)
	assert.Equal(t, 1, removed)

	_, err = mgr.Get(old.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound, "alert resolved 8 days ago must be purged")

	_, err = mgr.Get(recent.ID)
	assert.NoError(t, err, "alert resolved 1 hour ago must remain")

	_, err = mgr.Get(stale.ID)
	assert.NoError(t, err, "active alerts are never purged")
}

func TestManager_Stats(t *testing.T) {
	mgr, _ := newTestManager(t)

	a, _, _ := mgr.Create(CreateRequest{Title: "a", Severity: SeverityCritical, Source: "host-1"})
	mgr.Create(CreateRequest{Title: "b", Severity: SeverityCritical, Source: "host-2"})
	mgr.Create(CreateRequest{Title: "c", Severity: SeverityLow, Source: "host-1"})
	mgr.Resolve(a.ID)

	stats := mgr.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 2, stats.BySeverity[string(SeverityCritical)])
	assert.Equal(t, 1, stats.ByStatus[string(StatusResolved)])
	assert.Equal(t, 2, stats.BySource["host-1"])

	assert.Equal(t, 1, mgr.ActiveCountBySeverity(SeverityCritical))
}

func TestMaxSeverity(t *testing.T) {
	assert.Equal(t, SeverityCritical, MaxSeverity(SeverityHigh, SeverityCritical))
	assert.Equal(t, SeverityHigh, MaxSeverity(SeverityHigh, SeverityLow))
	assert.Equal(t, SeverityHigh, MaxSeverity(SeverityHigh, SeverityHigh))
}

func TestManager_CallbackRegistrationRacesWithCreate(t *testing.T) {
	mgr, _ := newTestManager(t)

	var delivered atomic.Int64
	var wg sync.WaitGroup

	// Registration and creation interleave; delivery must see a consistent
	// callback snapshot under the race detector.
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			mgr.OnCreated(func(Alert) { delivered.Add(1) })
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_, _, err := mgr.Create(CreateRequest{
				Title:    "Concurrent alert",
				Severity: SeverityLow,
				Source:   "host-1",
			})
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	// A callback registered before the last Create fires for it.
	mgr.OnCreated(func(Alert) { delivered.Add(1) })
	_, _, err := mgr.Create(CreateRequest{Title: "Final alert", Severity: SeverityLow})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return delivered.Load() > 0
	}, time.Second, 10*time.Millisecond)
}
