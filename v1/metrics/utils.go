package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Batch result labels.
const (
	ResultComplete = "complete"
	ResultPartial  = "partial"
	ResultFailed   = "failed"
)

// OtherMemberLabel collects latency for members beyond Config.MaxMemberLabels.
const OtherMemberLabel = "other"

// RecordMember counts one resolved member and records its latency.
// Example: m.RecordMember("SongLyrics_50k", "timed_out", "deadline_exceeded", 500*time.Millisecond)
func (m *Metrics) RecordMember(member, status, cause string, latency time.Duration) {
	m.membersTotal.WithLabelValues(status, cause).Inc()
	m.memberLatency.WithLabelValues(m.memberLabel(member)).Observe(latency.Seconds())
}

// memberLabel returns member while fewer than maxMemberLabels distinct names
// have been seen, and OtherMemberLabel afterwards for any new name.
func (m *Metrics) memberLabel(member string) string {
	m.memberMu.Lock()
	defer m.memberMu.Unlock()
	if _, ok := m.memberLabels[member]; ok {
		return member
	}
	if len(m.memberLabels) >= m.maxMemberLabels {
		return OtherMemberLabel
	}
	m.memberLabels[member] = struct{}{}
	return member
}

// RecordBatch counts one batch under result and records its total latency.
func (m *Metrics) RecordBatch(result string, latency time.Duration, poolInFlight int64) {
	m.batchesTotal.WithLabelValues(result).Inc()
	m.batchLatency.Observe(latency.Seconds())
	m.poolInFlight.Set(float64(poolInFlight))
}

// RecordPublish counts one sink publish attempt.
func (m *Metrics) RecordPublish(topic string, err error) {
	m.publishTotal.WithLabelValues(topic, resultLabel(err)).Inc()
}

// RecordEmbedding records the duration of one embedding request.
func (m *Metrics) RecordEmbedding(model string, latency time.Duration, err error) {
	m.embedDuration.WithLabelValues(model, resultLabel(err)).Observe(latency.Seconds())
}

// RecordRequest counts one relay request and records its duration.
// Example: m.RecordRequest("/parallel-search", http.StatusOK, time.Since(start))
func (m *Metrics) RecordRequest(route string, code int, latency time.Duration) {
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.requestLatency.WithLabelValues(route).Observe(latency.Seconds())
}

// CreateCounter creates a new CounterVec metric and registers it.
func (m *Metrics) CreateCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := createCounterVec(m.namespace, name, help, labels)
	m.registerer.MustRegister(counter)
	return counter
}

// CreateHistogram creates a new HistogramVec metric and registers it.
func (m *Metrics) CreateHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	hist := createHistogramVec(m.namespace, name, help, labels, buckets)
	m.registerer.MustRegister(hist)
	return hist
}

// CreateGauge creates a new GaugeVec metric and registers it.
func (m *Metrics) CreateGauge(name, help string, labels []string) *prometheus.GaugeVec {
	gauge := createGaugeVec(m.namespace, name, help, labels)
	m.registerer.MustRegister(gauge)
	return gauge
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// createCounterVec defines a new CounterVec with standard options.
func createCounterVec(namespace, name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// createHistogramVec defines a new HistogramVec with configurable buckets.
func createHistogramVec(namespace, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labels,
	)
}

// createGaugeVec defines a new GaugeVec.
func createGaugeVec(namespace, name, help string, labels []string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}
