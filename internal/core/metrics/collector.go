package metrics

import (
	"time"
)

// Recorder is the instrumentation surface the engine and API layer use.
type Recorder interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
	RecordCycle(duration time.Duration)
	RecordSamplesCollected(source string, count int)
	RecordCollectionFailure(source string)
	RecordAlertCreated(severity, category string)
	SetActiveAlerts(count int)
	RecordWebSocketConnection(action string)
}

// Config contains configuration for metrics collection
type Config struct {
	Enabled bool
	Prefix  string
}

// Noop discards all recordings. Used in tests.
type Noop struct{}

func (Noop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Noop) RecordCycle(time.Duration)                            {}
func (Noop) RecordSamplesCollected(string, int)                   {}
func (Noop) RecordCollectionFailure(string)                       {}
func (Noop) RecordAlertCreated(string, string)                    {}
func (Noop) SetActiveAlerts(int)                                  {}
func (Noop) RecordWebSocketConnection(string)                     {}
