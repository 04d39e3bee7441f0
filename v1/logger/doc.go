// Package logger provides structured logging for the fanout services.
//
// It wraps Uber's zap with a small, map-based API so call sites do not depend
// on zap directly, and it can correlate entries with OpenTelemetry traces.
//
// # Architecture
//
// This package follows the "accept interfaces, return structs" design pattern:
//   - Logger interface: Defines the contract for logging operations
//   - LoggerClient struct: Concrete implementation of the Logger interface
//   - NewLoggerClient constructor: Returns *LoggerClient (concrete type)
//   - FX module: Provides both *LoggerClient and Logger interface for dependency injection
//
// Packages that log (dispatcher, sink, relay, embedding) declare the narrow
// logger interface they need. *LoggerClient satisfies all of them.
//
// # Direct Usage (Without FX)
//
//	log := logger.NewLoggerClient(logger.Config{
//		Level:         "info",
//		EnableTracing: true,
//	})
//
//	log.Info("Relay listening", nil, map[string]interface{}{
//		"addr": ":8000",
//	})
//
//	// Adds trace_id and span_id of the active span
//	log.InfoWithContext(ctx, "Batch dispatched", nil, map[string]interface{}{
//		"batch_id": "b-1",
//	})
//
// # Configuration
//
//	ZAP_LOGGER_LEVEL=debug          # debug, info, warning, error
//	LOGGER_SERVICE_NAME=fanout      # value of the "service" field
//	LOGGER_ENABLE_TRACING=true      # add trace_id/span_id in *WithContext methods
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package logger
