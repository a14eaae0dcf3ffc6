package upload

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for uploads.
type Metrics struct {
	inflight prometheus.Gauge
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    prometheus.Counter
}

// NewMetrics creates the upload collectors and registers them with reg when
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "r2put",
			Subsystem: "upload",
			Name:      "inflight",
			Help:      "Current number of uploads in progress.",
		}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "r2put",
			Subsystem: "upload",
			Name:      "attempts_total",
			Help:      "Total number of upload attempts, partitioned by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "r2put",
			Subsystem: "upload",
			Name:      "duration_seconds",
			Help:      "Histogram of upload attempt latencies.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "r2put",
			Subsystem: "upload",
			Name:      "bytes_total",
			Help:      "Total number of payload bytes stored successfully.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.inflight, m.attempts, m.duration, m.bytes)
	}
	return m
}

func (m *Metrics) start() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

func (m *Metrics) finish(outcome string, size int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inflight.Dec()
	m.attempts.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if outcome == "succeeded" {
		m.bytes.Add(float64(size))
	}
}
