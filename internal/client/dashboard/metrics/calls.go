package metrics

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/botdesk/botdesk/internal/client/api"
	apperrors "github.com/botdesk/botdesk/pkg/errors"
)

// CallSnapshot is a point-in-time view of API traffic.
type CallSnapshot struct {
	TotalCalls   int64         `json:"total_calls"`
	FailedCalls  int64         `json:"failed_calls"`
	TimedOut     int64         `json:"timed_out"`
	AvgLatencyMS float64       `json:"avg_latency_ms"`
	P50LatencyMS float64       `json:"p50_latency_ms"`
	P95LatencyMS float64       `json:"p95_latency_ms"`
	MaxLatencyMS float64       `json:"max_latency_ms"`
	ByStatus     map[int]int64 `json:"by_status"`
	Since        time.Time     `json:"since"`
}

// CallRecorder aggregates api.CallInfo reports. Its Observe method is an
// api.CallObserver.
type CallRecorder struct {
	total    atomic.Int64
	failed   atomic.Int64
	timedOut atomic.Int64

	latencies *Latencies

	mu       sync.Mutex
	byStatus map[int]int64
	since    time.Time
}

// NewCallRecorder creates an empty recorder.
func NewCallRecorder() *CallRecorder {
	return &CallRecorder{
		latencies: NewLatencies(1000),
		byStatus:  make(map[int]int64),
		since:     time.Now(),
	}
}

// Observe records one finished call.
func (r *CallRecorder) Observe(ci api.CallInfo) {
	r.total.Add(1)
	if ci.Err != nil {
		r.failed.Add(1)
	}
	if errors.Is(ci.Err, apperrors.ErrRequestTimeout) {
		r.timedOut.Add(1)
	}
	r.latencies.Record(ci.Duration)

	r.mu.Lock()
	r.byStatus[ci.Status]++
	r.mu.Unlock()
}

// Snapshot returns the current totals.
func (r *CallRecorder) Snapshot() CallSnapshot {
	r.mu.Lock()
	byStatus := make(map[int]int64, len(r.byStatus))
	for k, v := range r.byStatus {
		byStatus[k] = v
	}
	since := r.since
	r.mu.Unlock()

	return CallSnapshot{
		TotalCalls:   r.total.Load(),
		FailedCalls:  r.failed.Load(),
		TimedOut:     r.timedOut.Load(),
		AvgLatencyMS: ms(r.latencies.Mean()),
		P50LatencyMS: ms(r.latencies.Percentile(0.50)),
		P95LatencyMS: ms(r.latencies.Percentile(0.95)),
		MaxLatencyMS: ms(r.latencies.Max()),
		ByStatus:     byStatus,
		Since:        since,
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
