package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector provides an interface for recording fanout metrics.
//
// This interface is implemented by the concrete *Metrics type.
type MetricsCollector interface {
	// RecordMember counts one resolved member and records its latency.
	RecordMember(member, status, cause string, latency time.Duration)

	// RecordBatch counts one batch and records its total latency and the pool
	// slots still held when it finished.
	RecordBatch(result string, latency time.Duration, poolInFlight int64)

	// RecordPublish counts one sink publish attempt.
	RecordPublish(topic string, err error)

	// RecordEmbedding records the duration of one embedding request.
	RecordEmbedding(model string, latency time.Duration, err error)

	// RecordRequest counts one relay request and records its duration.
	RecordRequest(route string, code int, latency time.Duration)

	// CreateCounter creates a new CounterVec metric and registers it.
	CreateCounter(name, help string, labels []string) *prometheus.CounterVec

	// CreateHistogram creates a new HistogramVec metric and registers it.
	CreateHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec

	// CreateGauge creates a new GaugeVec metric and registers it.
	CreateGauge(name, help string, labels []string) *prometheus.GaugeVec
}
