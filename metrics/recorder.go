package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Recorder is an in-memory Sink for tests and diagnostics.
type Recorder struct {
	inFlight atomic.Int64
	total    atomic.Int64

	mu        sync.Mutex
	byStatus  map[int]int64
	durations []time.Duration
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{byStatus: make(map[int]int64)}
}

func (r *Recorder) RequestStarted() {
	r.inFlight.Add(1)
}

func (r *Recorder) ResponseFinished(statusCode int, elapsed time.Duration) {
	r.inFlight.Add(-1)
	r.total.Add(1)

	r.mu.Lock()
	r.byStatus[statusCode]++
	r.durations = append(r.durations, elapsed)
	r.mu.Unlock()
}

// InFlight returns the current in-flight value.
func (r *Recorder) InFlight() int64 { return r.inFlight.Load() }

// Total returns the number of finished responses.
func (r *Recorder) Total() int64 { return r.total.Load() }

// Count returns the number of finished responses with the given status.
func (r *Recorder) Count(statusCode int) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byStatus[statusCode]
}

// Durations returns a copy of every observed duration.
func (r *Recorder) Durations() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.durations))
	copy(out, r.durations)
	return out
}
