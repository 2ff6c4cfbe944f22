package metrics

import (
	"slices"
	"sync"
	"time"
)

// Latencies keeps the most recent request durations for percentiles.
type Latencies struct {
	samples    []time.Duration
	mu         sync.RWMutex
	maxSamples int
}

// NewLatencies creates a sample window of maxSamples entries.
func NewLatencies(maxSamples int) *Latencies {
	if maxSamples <= 0 {
		maxSamples = 1000
	}
	return &Latencies{
		samples:    make([]time.Duration, 0, maxSamples),
		maxSamples: maxSamples,
	}
}

// Record adds a sample. When full, the oldest fifth is evicted.
func (l *Latencies) Record(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.samples) >= l.maxSamples {
		evict := max(l.maxSamples/5, 1)
		copy(l.samples, l.samples[evict:])
		l.samples = l.samples[:len(l.samples)-evict]
	}
	l.samples = append(l.samples, d)
}

// Percentile returns the pth percentile, p in [0, 1].
func (l *Latencies) Percentile(p float64) time.Duration {
	l.mu.RLock()
	sorted := slices.Clone(l.samples)
	l.mu.RUnlock()

	if len(sorted) == 0 {
		return 0
	}
	slices.Sort(sorted)

	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Mean returns the average sample.
func (l *Latencies) Mean() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, s := range l.samples {
		sum += s
	}
	return sum / time.Duration(len(l.samples))
}

// Max returns the slowest sample.
func (l *Latencies) Max() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.samples) == 0 {
		return 0
	}
	return slices.Max(l.samples)
}

// Count returns the number of samples.
func (l *Latencies) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.samples)
}
