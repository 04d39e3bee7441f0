package tracer

import (
	"context"

	"go.uber.org/fx"
)

// FXModule provides a Uber FX module that configures distributed tracing for your application.
//
// The module:
// 1. Provides the tracer client through NewClientWithDI
// 2. Registers a shutdown hook that flushes pending spans
//
// Usage:
//
//	app := fx.New(
//	    tracer.FXModule,
//	    fx.Provide(tracer.NewConfig),
//	)
var FXModule = fx.Module("tracer",
	fx.Provide(
		NewClientWithDI,
	),
	fx.Invoke(RegisterTracerLifecycle),
)

// TracerParams groups the dependencies needed to create a Tracer.
type TracerParams struct {
	fx.In

	Config Config
	Logger Logger `optional:"true"`
}

// NewClientWithDI creates the Tracer with the optional logger injected.
func NewClientWithDI(params TracerParams) (*Tracer, error) {
	return NewClient(params.Config, params.Logger)
}

// RegisterTracerLifecycle registers shutdown hooks for the tracer with the FX lifecycle.
// Pending spans are flushed to the exporter before the application exits.
func RegisterTracerLifecycle(lc fx.Lifecycle, tracer *Tracer) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if tracer.logger != nil {
				tracer.logger.Info("Shutting down tracer", nil, nil)
			}
			return tracer.Shutdown(ctx)
		},
	})
}
