package metrics

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/fx"

	"github.com/weavebench/fanout/v1/observability"
)

// Logger is the subset of *logger.LoggerClient used for lifecycle events.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// FXModule defines the Fx module for the metrics package.
//
// The module:
//  1. Provides *Metrics and the MetricsCollector interface
//  2. Provides an observability.Observer that feeds the collectors, so the
//     dispatcher, sink, embedding and relay packages pick it up automatically
//  3. Starts and stops the /metrics HTTP server with the application
//
// Usage:
//
//	app := fx.New(
//	    metrics.FXModule,
//	    fx.Provide(metrics.NewConfig),
//	    // other modules...
//	)
var FXModule = fx.Module("metrics",
	fx.Provide(
		NewMetrics,
		fx.Annotate(
			func(m *Metrics) MetricsCollector { return m },
			fx.As(new(MetricsCollector)),
		),
		func(c MetricsCollector) observability.Observer { return NewObserver(c) },
	),
	fx.Invoke(RegisterMetricsLifecycle),
)

// MetricsLifecycleParams groups the dependencies for lifecycle management.
type MetricsLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Metrics   *Metrics
	Logger    Logger `optional:"true"`
}

// RegisterMetricsLifecycle launches the metrics server on start and shuts it
// down gracefully on stop.
func RegisterMetricsLifecycle(params MetricsLifecycleParams) {
	m, log := params.Metrics, params.Logger
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if log != nil {
					log.Info("Starting Prometheus metrics server", nil, map[string]interface{}{
						"address": m.Server.Addr,
					})
				}
				if err := m.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) && log != nil {
					log.Error("Error starting Prometheus metrics server", err, nil)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if log != nil {
				log.Info("Shutting down Prometheus metrics server", nil, nil)
			}
			return m.Server.Shutdown(ctx)
		},
	})
}
