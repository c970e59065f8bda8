package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements Recorder on Prometheus collectors registered
// with the default registry, exposed through the /metrics endpoint.
type PrometheusRecorder struct {
	config *Config

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	cycleDuration     prometheus.Histogram
	samplesCollected  *prometheus.CounterVec
	collectionFailues *prometheus.CounterVec

	alertsTotal  *prometheus.CounterVec
	alertsActive prometheus.Gauge

	websocketConnections prometheus.Gauge
}

// NewPrometheusRecorder creates and registers the engine's Prometheus metrics.
func NewPrometheusRecorder(config *Config) *PrometheusRecorder {
	if config == nil {
		config = &Config{Enabled: true, Prefix: "sentinel"}
	}
	prefix := config.Prefix

	return &PrometheusRecorder{
		config: config,
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		cycleDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    prefix + "_cycle_duration_seconds",
				Help:    "Monitoring cycle duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30},
			},
		),
		samplesCollected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_samples_collected_total",
				Help: "Total number of metric samples collected",
			},
			[]string{"source"},
		),
		collectionFailues: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_collection_failures_total",
				Help: "Total number of failed source collections",
			},
			[]string{"source"},
		),
		alertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_alerts_created_total",
				Help: "Total number of alerts created",
			},
			[]string{"severity", "category"},
		),
		alertsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "_alerts_active",
				Help: "Number of active (non-resolved) alerts",
			},
		),
		websocketConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "_websocket_connections",
				Help: "Number of active WebSocket connections",
			},
		),
	}
}

func (p *PrometheusRecorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	p.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	p.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) RecordCycle(duration time.Duration) {
	p.cycleDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) RecordSamplesCollected(source string, count int) {
	p.samplesCollected.WithLabelValues(source).Add(float64(count))
}

func (p *PrometheusRecorder) RecordCollectionFailure(source string) {
	p.collectionFailues.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) RecordAlertCreated(severity, category string) {
	p.alertsTotal.WithLabelValues(severity, category).Inc()
}

func (p *PrometheusRecorder) SetActiveAlerts(count int) {
	p.alertsActive.Set(float64(count))
}

func (p *PrometheusRecorder) RecordWebSocketConnection(action string) {
	switch action {
	case "connect":
		p.websocketConnections.Inc()
	case "disconnect":
		p.websocketConnections.Dec()
	}
}
