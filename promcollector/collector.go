// Package promcollector exports fission loop metrics to Prometheus.
package promcollector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/fission"
)

var _ fission.MetricsCollector = (*Collector)(nil)

// Collector implements fission.MetricsCollector with Prometheus metrics.
type Collector struct {
	iterations         prometheus.Counter
	iterationDuration  prometheus.Histogram
	kept               prometheus.Histogram
	requests           *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	candidates         *prometheus.CounterVec
	admissions         prometheus.Counter
	rejections         *prometheus.CounterVec
	checkpoints        *prometheus.CounterVec
	checkpointDuration prometheus.Histogram
	checkpointRecords  prometheus.Gauge
}

// New registers the fission metrics with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	f := promauto.With(reg)

	return &Collector{
		iterations: f.NewCounter(prometheus.CounterOpts{
			Name: "fission_iterations_total",
			Help: "Total completed loop iterations",
		}),
		iterationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fission_iteration_duration_seconds",
			Help:    "Loop iteration duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7min
		}),
		kept: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fission_iteration_admitted",
			Help:    "Records admitted per iteration",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fission_oracle_requests_total",
			Help: "Total oracle requests by kind and result",
		}, []string{"kind", "result"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fission_oracle_request_duration_seconds",
			Help:    "Oracle request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"kind"}),
		candidates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fission_candidates_total",
			Help: "Total candidates decoded from oracle responses",
		}, []string{"kind"}),
		admissions: f.NewCounter(prometheus.CounterOpts{
			Name: "fission_admissions_total",
			Help: "Total admitted records",
		}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fission_rejections_total",
			Help: "Total dropped candidates by reason",
		}, []string{"reason"}),
		checkpoints: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fission_checkpoints_total",
			Help: "Total checkpoint writes by result",
		}, []string{"result"}),
		checkpointDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fission_checkpoint_duration_seconds",
			Help:    "Checkpoint write duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		}),
		checkpointRecords: f.NewGauge(prometheus.GaugeOpts{
			Name: "fission_checkpoint_records",
			Help: "Records in the last successful checkpoint",
		}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordIteration implements fission.MetricsCollector.
func (c *Collector) RecordIteration(duration time.Duration, kept int) {
	c.iterations.Inc()
	c.iterationDuration.Observe(duration.Seconds())
	c.kept.Observe(float64(kept))
}

// RecordRequest implements fission.MetricsCollector.
func (c *Collector) RecordRequest(kind fission.RequestKind, duration time.Duration, err error) {
	c.requests.WithLabelValues(kind.String(), result(err)).Inc()
	c.requestDuration.WithLabelValues(kind.String()).Observe(duration.Seconds())
}

// RecordCandidates implements fission.MetricsCollector.
func (c *Collector) RecordCandidates(kind fission.RequestKind, n int) {
	c.candidates.WithLabelValues(kind.String()).Add(float64(n))
}

// RecordAdmission implements fission.MetricsCollector.
func (c *Collector) RecordAdmission() {
	c.admissions.Inc()
}

// RecordRejection implements fission.MetricsCollector.
func (c *Collector) RecordRejection(reason fission.RejectReason) {
	c.rejections.WithLabelValues(string(reason)).Inc()
}

// RecordCheckpoint implements fission.MetricsCollector.
func (c *Collector) RecordCheckpoint(records int, duration time.Duration, err error) {
	c.checkpoints.WithLabelValues(result(err)).Inc()
	c.checkpointDuration.Observe(duration.Seconds())
	if err == nil {
		c.checkpointRecords.Set(float64(records))
	}
}
