package metricstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAt(series string, value float64, ts time.Time) Sample {
	return Sample{Series: series, Value: value, Timestamp: ts}
}

func TestStore_AppendAndLatest(t *testing.T) {
	store := New(10)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, ok := store.Latest("cpu_usage")
	assert.False(t, ok, "empty store should report absent")

	store.Append(sampleAt("cpu_usage", 10, base))
	store.Append(sampleAt("cpu_usage", 20, base.Add(time.Second)))

	latest, ok := store.Latest("cpu_usage")
	require.True(t, ok)
	assert.Equal(t, 20.0, latest.Value)
	assert.Equal(t, base.Add(time.Second), latest.Timestamp)
}

func TestStore_CapacityEviction(t *testing.T) {
	const capacity = 5
	store := New(capacity)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < capacity*3; i++ {
		store.Append(sampleAt("cpu_usage", float64(i), base.Add(time.Duration(i)*time.Second)))
	}

	assert.Equal(t, capacity, store.Len("cpu_usage"))

	samples := store.Query("cpu_usage", base, base.Add(time.Hour))
	require.Len(t, samples, capacity)

	// Oldest retained sample is the first not evicted.
	assert.Equal(t, 10.0, samples[0].Value)
	assert.Equal(t, 14.0, samples[len(samples)-1].Value)

	for i := 1; i < len(samples); i++ {
		assert.True(t, samples[i].Timestamp.After(samples[i-1].Timestamp),
			"samples must be strictly time-ordered")
	}
}

func TestStore_QueryRange(t *testing.T) {
	store := New(100)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		store.Append(sampleAt("memory_usage", float64(i), base.Add(time.Duration(i)*time.Minute)))
	}

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{"full range", base, base.Add(time.Hour), 10},
		{"partial range", base.Add(2 * time.Minute), base.Add(5 * time.Minute), 4},
		{"empty range", base.Add(time.Hour), base.Add(2 * time.Hour), 0},
		{"single point", base.Add(3 * time.Minute), base.Add(3 * time.Minute), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := store.Query("memory_usage", tt.start, tt.end)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestStore_UnknownSeries(t *testing.T) {
	store := New(10)

	samples := store.Query("does_not_exist", time.Time{}, time.Now())
	assert.NotNil(t, samples)
	assert.Empty(t, samples)

	_, ok := store.Latest("does_not_exist")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len("does_not_exist"))
}

func TestStore_SeriesIsolation(t *testing.T) {
	store := New(3)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	store.Append(sampleAt("cpu_usage", 1, base))
	store.Append(sampleAt("disk_usage", 2, base))
	store.Append(sampleAt("disk_usage", 3, base.Add(time.Second)))

	assert.Equal(t, 1, store.Len("cpu_usage"))
	assert.Equal(t, 2, store.Len("disk_usage"))
	assert.ElementsMatch(t, []string{"cpu_usage", "disk_usage"}, store.SeriesNames())
}
