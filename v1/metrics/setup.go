package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// latencyBuckets spans sub-millisecond cache hits up to the longest batch deadlines.
var latencyBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// Metrics encapsulates the Prometheus registry and HTTP server responsible
// for exposing fanout metrics.
type Metrics struct {
	// Server defines the HTTP server used to expose the /metrics endpoint.
	Server *http.Server

	// Registry is the Prometheus registry where all metrics are registered.
	// Each service maintains its own isolated registry to prevent metric name collisions.
	Registry *prometheus.Registry

	namespace  string
	registerer prometheus.Registerer

	batchesTotal   *prometheus.CounterVec
	membersTotal   *prometheus.CounterVec
	memberLatency  *prometheus.HistogramVec
	batchLatency   prometheus.Histogram
	poolInFlight   prometheus.Gauge
	publishTotal   *prometheus.CounterVec
	embedDuration  *prometheus.HistogramVec
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec

	// member names come from client-supplied batches
	memberMu        sync.Mutex
	memberLabels    map[string]struct{}
	maxMemberLabels int
}

// NewMetrics initializes a dedicated Prometheus registry with the fanout
// collectors and an HTTP server exposing it at /metrics.
//
// The setup includes:
//   - A dedicated Prometheus registry for the service
//   - Batch, member, pool, sink, embedding and relay collectors
//   - Optional Go, process and build info collectors
//   - A global "service" label applied to all metrics
//
// Example:
//
//	m := metrics.NewMetrics(metrics.DefaultConfig())
//	go m.Server.ListenAndServe()
//
//	d := dispatcher.NewDispatcher(cfg, pool).WithObserver(metrics.NewObserver(m))
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()

	// service="<cfg.ServiceName>" on every series
	var registerer prometheus.Registerer = registry
	if cfg.ServiceName != "" {
		registerer = prometheus.WrapRegistererWith(prometheus.Labels{"service": cfg.ServiceName}, registry)
	}

	ns := cfg.Namespace
	maxMembers := cfg.MaxMemberLabels
	if maxMembers <= 0 {
		maxMembers = DefaultMaxMemberLabels
	}
	m := &Metrics{
		Registry:        registry,
		namespace:       ns,
		registerer:      registerer,
		memberLabels:    make(map[string]struct{}),
		maxMemberLabels: maxMembers,
	}

	m.batchesTotal = createCounterVec(ns, "batches_total", "Dispatched batches by result (complete, partial, failed)", []string{"result"})
	m.membersTotal = createCounterVec(ns, "members_total", "Resolved batch members by status and cause", []string{"status", "cause"})
	m.memberLatency = createHistogramVec(ns, "member_latency_seconds", "Latency of each member from batch start to resolution", []string{"member"}, latencyBuckets)
	m.batchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "batch_latency_seconds",
		Help:      "Total latency of each dispatched batch",
		Buckets:   latencyBuckets,
	})
	m.poolInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "pool_in_flight",
		Help:      "Connection pool slots held when the last batch finished",
	})
	m.publishTotal = createCounterVec(ns, "sink_publish_total", "Batch results published to the sink by topic and result", []string{"topic", "result"})
	m.embedDuration = createHistogramVec(ns, "embedding_duration_seconds", "Duration of embedding requests", []string{"model", "result"}, latencyBuckets)
	m.requestsTotal = createCounterVec(ns, "relay_requests_total", "HTTP requests served by the relay", []string{"route", "code"})
	m.requestLatency = createHistogramVec(ns, "relay_request_duration_seconds", "Duration of HTTP requests served by the relay", []string{"route"}, latencyBuckets)

	registerer.MustRegister(
		m.batchesTotal,
		m.membersTotal,
		m.memberLatency,
		m.batchLatency,
		m.poolInFlight,
		m.publishTotal,
		m.embedDuration,
		m.requestsTotal,
		m.requestLatency,
	)

	if cfg.EnableDefaultCollectors {
		registerer.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	m.Server = &http.Server{
		Addr:    cfg.Address,
		Handler: mux,
	}
	return m
}
