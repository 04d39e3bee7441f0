// Package metrics exposes fanout activity as Prometheus metrics.
//
// # Architecture
//
// This package follows the "accept interfaces, return structs" design pattern:
//   - MetricsCollector interface: Defines the contract for recording metrics
//   - Metrics struct: Concrete implementation of the MetricsCollector interface
//   - Observer struct: An observability.Observer that feeds a MetricsCollector
//   - FX module: Provides *Metrics, MetricsCollector and observability.Observer
//
// The other packages never import this one. They report operations to an
// observability.Observer, and NewObserver turns those reports into series.
//
// # Series
//
// With the default "fanout" namespace:
//
//	fanout_batches_total{result}                 complete, partial or failed
//	fanout_members_total{status,cause}           one per resolved member
//	fanout_member_latency_seconds{member}        member latency, queueing included
//	fanout_batch_latency_seconds                 total batch latency
//	fanout_pool_in_flight                        pool slots held after the last batch
//	fanout_sink_publish_total{topic,result}      Kafka publishes
//	fanout_embedding_duration_seconds{model,result}
//	fanout_relay_requests_total{route,code}
//	fanout_relay_request_duration_seconds{route}
//
// # Direct Usage (Without FX)
//
//	m := metrics.NewMetrics(metrics.DefaultConfig())
//	go m.Server.ListenAndServe()
//
//	d := dispatcher.NewDispatcher(cfg, pool).
//		WithObserver(metrics.NewObserver(m))
//
// # Configuration
//
//	METRICS_ADDRESS=:9090
//	METRICS_ENABLE_DEFAULT_COLLECTORS=true
//	METRICS_NAMESPACE=fanout
//	METRICS_SERVICE_NAME=fanout
package metrics
