package collector

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

// SystemSource samples host telemetry via gopsutil. Each Collect returns
// whatever it could gather; one unreadable subsystem does not fail the rest.
type SystemSource struct {
	diskPath string
}

// NewSystemSource creates a system telemetry source sampling the root
// filesystem for disk usage.
func NewSystemSource() *SystemSource {
	return &SystemSource{diskPath: "/"}
}

func (s *SystemSource) Name() string { return "system" }

func (s *SystemSource) Collect(ctx context.Context) ([]Sample, error) {
	samples := make([]Sample, 0, 8)
	var firstErr error

	keep := func(series string, value float64) {
		samples = append(samples, Sample{Series: series, Value: value, Source: s.Name()})
	}
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		keep("cpu_usage", percents[0])
	} else {
		note(err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		keep("memory_usage", vm.UsedPercent)
	} else {
		note(err)
	}

	if usage, err := disk.UsageWithContext(ctx, s.diskPath); err == nil {
		keep("disk_usage", usage.UsedPercent)
	} else {
		note(err)
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		keep("load_1m", avg.Load1)
	} else {
		note(err)
	}

	if counters, err := net.IOCountersWithContext(ctx, false); err == nil && len(counters) > 0 {
		keep("network_rx_bytes", float64(counters[0].BytesRecv))
		keep("network_tx_bytes", float64(counters[0].BytesSent))
	} else {
		note(err)
	}

	if len(samples) == 0 && firstErr != nil {
		return nil, fmt.Errorf("system collection failed: %w", firstErr)
	}
	return samples, nil
}
