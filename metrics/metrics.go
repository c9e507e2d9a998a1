// Package metrics isolates the process-wide request counters behind a small
// Sink interface. Responses report to a sink when they finalize; tests can
// swap in a Recorder instead of touching the global Prometheus registry.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink receives request lifecycle signals. Implementations must be safe for
// concurrent use and must never block the caller.
type Sink interface {
	// RequestStarted increments the in-flight gauge.
	RequestStarted()
	// ResponseFinished decrements the in-flight gauge, counts the response
	// and observes its duration, all labeled by status code.
	ResponseFinished(statusCode int, elapsed time.Duration)
}

// Noop discards every signal.
type Noop struct{}

func (Noop) RequestStarted()                      {}
func (Noop) ResponseFinished(int, time.Duration) {}

// Options configures a PrometheusSink.
type Options struct {
	Namespace string
	Buckets   []float64
}

// PrometheusSink reports to Prometheus collectors.
type PrometheusSink struct {
	inFlight  prometheus.Gauge
	responses *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewPrometheusSink creates the collectors and registers them with reg. A
// nil registerer skips registration, which is handy for isolated tests.
func NewPrometheusSink(reg prometheus.Registerer, opts Options) (*PrometheusSink, error) {
	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	s := &PrometheusSink{
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: opts.Namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being handled.",
		}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "http_responses_total",
			Help:      "Total number of finalized HTTP responses, by status code.",
		}, []string{"status_code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "http_requests_duration_seconds",
			Help:      "Time between request start and response finalization, by status code.",
			Buckets:   buckets,
		}, []string{"status_code"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{s.inFlight, s.responses, s.duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *PrometheusSink) RequestStarted() {
	s.inFlight.Inc()
}

func (s *PrometheusSink) ResponseFinished(statusCode int, elapsed time.Duration) {
	code := strconv.Itoa(statusCode)
	s.inFlight.Dec()
	s.responses.WithLabelValues(code).Inc()
	s.duration.WithLabelValues(code).Observe(elapsed.Seconds())
}

// InFlight exposes the in-flight gauge.
func (s *PrometheusSink) InFlight() prometheus.Gauge { return s.inFlight }

// Responses exposes the per-status response counter.
func (s *PrometheusSink) Responses() *prometheus.CounterVec { return s.responses }

// Duration exposes the per-status duration histogram.
func (s *PrometheusSink) Duration() *prometheus.HistogramVec { return s.duration }

var (
	defaultMu   sync.RWMutex
	defaultSink Sink
	defaultOnce sync.Once
)

// Default returns the process-wide sink. Unless replaced with SetDefault it
// is a PrometheusSink registered with prometheus.DefaultRegisterer under the
// "replyweaver" namespace.
func Default() Sink {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		defer defaultMu.Unlock()
		if defaultSink != nil {
			return
		}
		sink, err := NewPrometheusSink(prometheus.DefaultRegisterer, Options{Namespace: "replyweaver"})
		if err != nil {
			defaultSink = Noop{}
			return
		}
		defaultSink = sink
	})

	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultSink
}

// SetDefault replaces the process-wide sink. A nil sink installs Noop.
func SetDefault(s Sink) {
	if s == nil {
		s = Noop{}
	}
	defaultMu.Lock()
	defaultSink = s
	defaultMu.Unlock()
}
