package websocket

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewHub(logger, nil)
}

func addTestClient(hub *Hub, id string, sendBuffer int) *Client {
	client := &Client{
		ID:     id,
		send:   make(chan []byte, sendBuffer),
		hub:    hub,
		logger: hub.logger,
		topics: make(map[string]bool),
	}
	hub.mu.Lock()
	hub.clients[client] = true
	hub.mu.Unlock()
	return client
}

func TestBroadcastToTopicDelivers(t *testing.T) {
	hub := newTestHub()
	client := addTestClient(hub, "c1", 4)

	hub.BroadcastToTopic(TopicAlerts, Message{Type: MessageTypeAlertCreated, Topic: TopicAlerts})

	select {
	case data := <-client.send:
		assert.Contains(t, string(data), MessageTypeAlertCreated)
	default:
		t.Fatal("client received no message")
	}
}

func TestBroadcastToTopicRespectsSubscriptions(t *testing.T) {
	hub := newTestHub()
	alertsOnly := addTestClient(hub, "alerts", 4)
	alertsOnly.Subscribe(TopicAlerts)
	healthOnly := addTestClient(hub, "health", 4)
	healthOnly.Subscribe(TopicHealth)

	hub.BroadcastToTopic(TopicAlerts, Message{Type: MessageTypeAlertCreated, Topic: TopicAlerts})

	assert.Len(t, alertsOnly.send, 1)
	assert.Len(t, healthOnly.send, 0)
}

func TestBroadcastToTopicSlowClientsDropped(t *testing.T) {
	hub := newTestHub()
	go hub.Run()

	// Two clients whose send buffers are already full.
	for i := 0; i < 2; i++ {
		client := addTestClient(hub, fmt.Sprintf("slow-%d", i), 1)
		client.send <- []byte("backlog")
	}

	done := make(chan struct{})
	go func() {
		hub.BroadcastToTopic(TopicAlerts, Message{Type: MessageTypeAlertCreated, Topic: TopicAlerts})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on slow clients")
	}

	// Both slow clients end up unregistered by the Run goroutine.
	require.Eventually(t, func() bool {
		return hub.GetClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
