// Package observability defines the hook through which fanout components report
// the operations they perform.
//
// Components such as the dispatcher, the Kafka sink and the relay accept an
// optional Observer. When one is attached, every completed operation is
// reported as an OperationContext carrying the component name, the operation,
// the resource it touched, how long it took and any error. Observers are free
// to turn these events into metrics, spans or log lines; the metrics package
// ships a Prometheus-backed implementation.
//
// Attaching an observer:
//
//	d := dispatcher.NewDispatcher(cfg, pool).WithObserver(metrics.NewObserver(m))
//
// Several observers can be combined:
//
//	obs := observability.Multi(metricsObserver, auditObserver)
//
// # Thread Safety
//
// Observers are called concurrently from many goroutines (the dispatcher
// reports every member from its own goroutine), so implementations must be
// safe for concurrent use.
package observability
