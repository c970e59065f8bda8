package engine

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/alerts"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/clock"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/collector"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/correlation"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/health"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/metrics"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/metricstore"
	"github.com/sentinel-ops/sentinel-backend-go/internal/core/rules"
)

// Config contains the engine's scheduling and retention knobs.
type Config struct {
	Interval          time.Duration
	MinSleep          time.Duration
	CollectionTimeout time.Duration
	AlertRetention    time.Duration
	CorrelationWindow time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Interval:          30 * time.Second,
		MinSleep:          time.Second,
		CollectionTimeout: 5 * time.Second,
		AlertRetention:    7 * 24 * time.Hour,
		CorrelationWindow: time.Hour,
	}
}

// Engine drives the monitoring pipeline: collect, evaluate, correlate,
// refresh health, cleanup. One cycle body runs at a time; API reads and
// writes run concurrently against the component locks.
type Engine struct {
	config *Config
	logger *logrus.Logger
	clock  clock.Clock

	store       *metricstore.Store
	rules       *rules.Engine
	alerts      *alerts.Manager
	correlation *correlation.Engine
	health      *health.Aggregator
	sources     []collector.MetricSource
	recorder    metrics.Recorder

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.Mutex
	running bool
	stopped bool
}

// New wires an engine from its components. Nil recorder and clock fall back
// to noop and wall clock.
func New(
	config *Config,
	store *metricstore.Store,
	ruleEngine *rules.Engine,
	alertMgr *alerts.Manager,
	correlationEngine *correlation.Engine,
	healthAgg *health.Aggregator,
	sources []collector.MetricSource,
	recorder metrics.Recorder,
	clk clock.Clock,
	logger *logrus.Logger,
) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	if clk == nil {
		clk = clock.New()
	}
	alertMgr.OnCreated(func(a alerts.Alert) {
		recorder.RecordAlertCreated(string(a.Severity), a.Category)
	})

	return &Engine{
		config:      config,
		logger:      logger,
		clock:       clk,
		store:       store,
		rules:       ruleEngine,
		alerts:      alertMgr,
		correlation: correlationEngine,
		health:      healthAgg,
		sources:     sources,
		recorder:    recorder,
		stopChan:    make(chan struct{}),
	}
}

// Store returns the engine's metric store.
func (e *Engine) Store() *metricstore.Store { return e.store }

// Rules returns the engine's rule engine.
func (e *Engine) Rules() *rules.Engine { return e.rules }

// Alerts returns the engine's alert manager.
func (e *Engine) Alerts() *alerts.Manager { return e.alerts }

// Health returns the engine's health aggregator.
func (e *Engine) Health() *health.Aggregator { return e.health }

// Correlation returns the engine's correlation engine.
func (e *Engine) Correlation() *correlation.Engine { return e.correlation }

// Start launches the background loop. A stopped engine stays stopped:
// stopChan is closed for good, so a relaunched loop would exit immediately
// while Running kept reporting true.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running || e.stopped {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.logger.WithField("interval", e.config.Interval).Info("Starting monitoring engine")

	e.wg.Add(1)
	go e.loop(ctx)
}

// Stop halts the loop. An in-flight cycle finishes its current stage; only
// the inter-cycle sleep is cancelled.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
	})
	e.wg.Wait()

	e.mu.Lock()
	e.running = false
	e.stopped = true
	e.mu.Unlock()

	e.logger.Info("Monitoring engine stopped")
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()

	for {
		start := e.clock.Now()
		e.RunCycle(ctx)
		elapsed := e.clock.Now().Sub(start)
		e.recorder.RecordCycle(elapsed)

		// Overruns clamp the sleep to a floor rather than stacking cycles.
		sleep := e.config.Interval - elapsed
		if sleep < e.config.MinSleep {
			sleep = e.config.MinSleep
		}

		select {
		case <-ctx.Done():
			return
		case <-e.stopChan:
			return
		case <-e.clock.After(sleep):
		}
	}
}

// RunCycle executes one pipeline pass in fixed stage order. Each stage is
// isolated: a panic skips the stage's remaining work and the cycle moves on.
func (e *Engine) RunCycle(ctx context.Context) {
	e.runStage("collect", func() { e.collect(ctx) })
	e.runStage("evaluate", func() {
		e.rules.EvaluateAll(e.store, e.alerts)
	})
	e.runStage("correlate", func() {
		e.correlation.Scan(e.config.CorrelationWindow)
	})
	e.runStage("health", func() {
		e.health.Refresh(e.store, e.alerts)
	})
	e.runStage("cleanup", func() {
		e.alerts.Cleanup(e.config.AlertRetention)
	})

	stats := e.alerts.Stats()
	e.recorder.SetActiveAlerts(stats.Active)
}

func (e *Engine) runStage(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{
				"stage": name,
				"panic": r,
			}).Error("Pipeline stage panicked, continuing with next stage")
		}
	}()
	fn()
}

// collect samples every source, each bounded by the collection timeout.
// A failing or slow source loses its samples for this cycle only.
func (e *Engine) collect(ctx context.Context) {
	now := e.clock.Now()
	for _, source := range e.sources {
		samples, err := e.collectOne(ctx, source)
		if err != nil {
			e.recorder.RecordCollectionFailure(source.Name())
			e.logger.WithError(err).WithField("source", source.Name()).
				Warn("Metric collection failed, retrying next cycle")
			continue
		}

		for _, sample := range samples {
			if sample.Timestamp.IsZero() {
				sample.Timestamp = now
			}
			e.store.Append(sample)
		}
		e.recorder.RecordSamplesCollected(source.Name(), len(samples))
	}
}

func (e *Engine) collectOne(ctx context.Context, source collector.MetricSource) ([]collector.Sample, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.config.CollectionTimeout)
	defer cancel()
	return source.Collect(callCtx)
}
