package main

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

const latencyWindow = 4096

// LatencyRecorder keeps the most recent request durations in a ring buffer
type LatencyRecorder struct {
	mu      sync.Mutex
	samples []float64 // milliseconds
	next    int
	total   int
}

// NewLatencyRecorder creates a recorder holding up to size samples
func NewLatencyRecorder(size int) *LatencyRecorder {
	if size <= 0 {
		size = latencyWindow
	}
	return &LatencyRecorder{samples: make([]float64, 0, size)}
}

// Record adds one request duration
func (l *LatencyRecorder) Record(d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.total++
	if len(l.samples) < cap(l.samples) {
		l.samples = append(l.samples, ms)
		return
	}
	l.samples[l.next] = ms
	l.next = (l.next + 1) % len(l.samples)
}

// LatencySummary describes the sampled request durations in milliseconds
type LatencySummary struct {
	Count int
	Mean  float64
	P50   float64
	P99   float64
	Max   float64
}

func (s LatencySummary) String() string {
	return fmt.Sprintf("requests=%d mean=%.3fms p50=%.3fms p99=%.3fms max=%.3fms",
		s.Count, s.Mean, s.P50, s.P99, s.Max)
}

// Summary computes statistics over the current window.
// Count reports every recorded request, not just the sampled ones.
func (l *LatencyRecorder) Summary() (LatencySummary, error) {
	l.mu.Lock()
	data := stats.Float64Data(append([]float64(nil), l.samples...))
	total := l.total
	l.mu.Unlock()

	summary := LatencySummary{Count: total}
	if len(data) == 0 {
		return summary, nil
	}

	var err error
	if summary.Mean, err = data.Mean(); err != nil {
		return summary, fmt.Errorf("error computing mean latency: %w", err)
	}
	if summary.P50, err = data.Percentile(50); err != nil {
		return summary, fmt.Errorf("error computing p50 latency: %w", err)
	}
	if summary.P99, err = data.Percentile(99); err != nil {
		return summary, fmt.Errorf("error computing p99 latency: %w", err)
	}
	if summary.Max, err = data.Max(); err != nil {
		return summary, fmt.Errorf("error computing max latency: %w", err)
	}
	return summary, nil
}

// recordLatency times every request passed to next
func recordLatency(recorder *LatencyRecorder, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		recorder.Record(time.Since(start))
	})
}
