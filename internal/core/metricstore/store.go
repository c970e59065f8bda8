package metricstore

import (
	"sync"
	"time"
)

// Sample is a single timestamped observation on a metric series.
type Sample struct {
	Series    string            `json:"series"`
	Value     float64           `json:"value"`
	Timestamp time.Time         `json:"timestamp"`
	Labels    map[string]string `json:"labels,omitempty"`
	Source    string            `json:"source,omitempty"`
}

// ring is a fixed-capacity FIFO of samples. Indexing follows head/size/cap
// modular arithmetic; position 0 is the oldest retained sample.
type ring struct {
	buf  []Sample
	head int
	size int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]Sample, capacity)}
}

func (r *ring) push(s Sample) {
	r.buf[r.head] = s
	r.head = (r.head + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

func (r *ring) at(i int) Sample {
	idx := (r.head - r.size + i + len(r.buf)) % len(r.buf)
	return r.buf[idx]
}

func (r *ring) latest() (Sample, bool) {
	if r.size == 0 {
		return Sample{}, false
	}
	idx := (r.head - 1 + len(r.buf)) % len(r.buf)
	return r.buf[idx], true
}

// Store holds bounded per-series sample buffers. Appends beyond capacity
// evict the oldest sample for that series.
type Store struct {
	capacity int
	series   map[string]*ring
	mu       sync.RWMutex
}

// DefaultCapacity bounds each series when no explicit capacity is configured.
const DefaultCapacity = 1000

// New creates a store with the given per-series capacity.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		series:   make(map[string]*ring),
	}
}

// Append adds a sample to its series buffer, evicting the oldest entry if
// the buffer is at capacity.
func (s *Store) Append(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.series[sample.Series]
	if !ok {
		r = newRing(s.capacity)
		s.series[sample.Series] = r
	}
	r.push(sample)
}

// Query returns samples for a series within [start, end], ascending by time.
// Unknown or empty series yield an empty slice, not an error.
func (s *Store) Query(series string, start, end time.Time) []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.series[series]
	if !ok {
		return []Sample{}
	}

	out := make([]Sample, 0, r.size)
	for i := 0; i < r.size; i++ {
		sample := r.at(i)
		if sample.Timestamp.Before(start) || sample.Timestamp.After(end) {
			continue
		}
		out = append(out, sample)
	}
	return out
}

// Latest returns the most recent sample for a series, if any.
func (s *Store) Latest(series string) (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.series[series]
	if !ok {
		return Sample{}, false
	}
	return r.latest()
}

// Len returns the number of retained samples for a series.
func (s *Store) Len(series string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.series[series]
	if !ok {
		return 0
	}
	return r.size
}

// SeriesNames returns the names of all series with at least one sample.
func (s *Store) SeriesNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.series))
	for name := range s.series {
		names = append(names, name)
	}
	return names
}
