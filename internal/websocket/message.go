package websocket

import (
	"encoding/json"
	"time"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/alerts"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/health"
)

// Message types for WebSocket communication
const (
	MessageTypeAlertCreated   = "alert_created"
	MessageTypeAlertUpdated   = "alert_updated"
	MessageTypeAlertResolved  = "alert_resolved"
	MessageTypeHealthSnapshot = "health_snapshot"

	// Client subscription management
	MessageTypeSubscriptionUpdate = "subscription_update"
	MessageTypeConnectionStatus   = "connection_status"
)

// Topics clients can subscribe to. A client with no subscriptions
// receives everything.
const (
	TopicAlerts = "alerts"
	TopicHealth = "health"
)

// Message represents a WebSocket message
type Message struct {
	Type      string                 `json:"type"`
	Topic     string                 `json:"topic,omitempty"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m Message) ToJSON() []byte {
	m.Timestamp = time.Now().UTC()
	data, _ := json.Marshal(m)
	return data
}

// AlertCreatedMessage creates a message for a newly raised alert
func AlertCreatedMessage(alert alerts.Alert) Message {
	return Message{
		Type:  MessageTypeAlertCreated,
		Topic: TopicAlerts,
		Data:  alertData(alert),
	}
}

// AlertUpdatedMessage creates a message for an alert lifecycle change
func AlertUpdatedMessage(alert alerts.Alert) Message {
	return Message{
		Type:  MessageTypeAlertUpdated,
		Topic: TopicAlerts,
		Data:  alertData(alert),
	}
}

// AlertResolvedMessage creates a message for a resolved alert
func AlertResolvedMessage(alert alerts.Alert) Message {
	return Message{
		Type:  MessageTypeAlertResolved,
		Topic: TopicAlerts,
		Data:  alertData(alert),
	}
}

// HealthSnapshotMessage creates a message for a refreshed health snapshot
func HealthSnapshotMessage(snapshot health.Snapshot) Message {
	components := make(map[string]interface{}, len(snapshot.Components))
	for name, comp := range snapshot.Components {
		components[name] = map[string]interface{}{
			"status": string(comp.Status),
			"value":  comp.Value,
		}
	}

	return Message{
		Type:  MessageTypeHealthSnapshot,
		Topic: TopicHealth,
		Data: map[string]interface{}{
			"overall":    string(snapshot.Overall),
			"components": components,
			"last_check": snapshot.LastCheck,
		},
	}
}

func alertData(alert alerts.Alert) map[string]interface{} {
	return map[string]interface{}{
		"id":             alert.ID,
		"title":          alert.Title,
		"description":    alert.Description,
		"severity":       string(alert.Severity),
		"status":         string(alert.Status),
		"category":       alert.Category,
		"source":         alert.Source,
		"detected_at":    alert.DetectedAt,
		"updated_at":     alert.UpdatedAt,
		"tags":           alert.Tags,
		"correlation_id": alert.CorrelationID,
		"occurrences":    alert.Occurrences,
	}
}
