package websocket

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/alerts"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/health"
)

func TestAlertCreatedMessage(t *testing.T) {
	alert := alerts.Alert{
		ID:         "a1",
		Title:      "High CPU usage",
		Severity:   alerts.SeverityHigh,
		Status:     alerts.StatusNew,
		Category:   alerts.CategoryAutomatedRule,
		Source:     "host-1",
		DetectedAt: time.Now().UTC(),
	}

	msg := AlertCreatedMessage(alert)
	assert.Equal(t, MessageTypeAlertCreated, msg.Type)
	assert.Equal(t, TopicAlerts, msg.Topic)
	assert.Equal(t, "a1", msg.Data["id"])
	assert.Equal(t, "high", msg.Data["severity"])
}

func TestMessageToJSON(t *testing.T) {
	msg := Message{
		Type: MessageTypeConnectionStatus,
		Data: map[string]interface{}{"status": "connected"},
	}

	var decoded Message
	require.NoError(t, json.Unmarshal(msg.ToJSON(), &decoded))
	assert.Equal(t, MessageTypeConnectionStatus, decoded.Type)
	assert.Equal(t, "connected", decoded.Data["status"])
	assert.False(t, decoded.Timestamp.IsZero())
}

func TestHealthSnapshotMessage(t *testing.T) {
	snap := health.Snapshot{
		Overall: health.StatusWarning,
		Components: map[string]health.ComponentHealth{
			"cpu": {Name: "cpu", Status: health.StatusWarning, Value: 82.5},
		},
		LastCheck: time.Now().UTC(),
	}

	msg := HealthSnapshotMessage(snap)
	assert.Equal(t, MessageTypeHealthSnapshot, msg.Type)
	assert.Equal(t, TopicHealth, msg.Topic)
	assert.Equal(t, "warning", msg.Data["overall"])

	components, ok := msg.Data["components"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, components, "cpu")
}

func TestClientReceives(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	client := &Client{logger: logger, topics: make(map[string]bool)}

	// No subscriptions means receive everything.
	assert.True(t, client.Receives(TopicAlerts))
	assert.True(t, client.Receives(TopicHealth))

	client.Subscribe(TopicAlerts)
	assert.True(t, client.Receives(TopicAlerts))
	assert.False(t, client.Receives(TopicHealth))

	client.Unsubscribe(TopicAlerts)
	assert.True(t, client.Receives(TopicHealth))
}
