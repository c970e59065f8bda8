package collector

import (
	"context"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/metricstore"
)

// Sample aliases the store's sample type; sources produce exactly what the
// store ingests.
type Sample = metricstore.Sample

// MetricSource supplies samples for one cycle. Implementations must honor
// the context deadline; the engine time-boxes each Collect call so a stuck
// source cannot stall the cycle.
type MetricSource interface {
	Name() string
	Collect(ctx context.Context) ([]Sample, error)
}

// StaticSource returns fixed series values each cycle. Used by tests and
// the simulator; timestamps are stamped by the caller-provided now func.
type StaticSource struct {
	name   string
	values map[string]float64
}

// NewStaticSource creates a source that reports the given series values.
func NewStaticSource(name string, values map[string]float64) *StaticSource {
	return &StaticSource{name: name, values: values}
}

func (s *StaticSource) Name() string { return s.name }

// Set changes the value reported for a series.
func (s *StaticSource) Set(series string, value float64) {
	s.values[series] = value
}

func (s *StaticSource) Collect(ctx context.Context) ([]Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Sample, 0, len(s.values))
	for series, value := range s.values {
		out = append(out, Sample{
			Series: series,
			Value:  value,
			Source: s.name,
		})
	}
	return out, nil
}
