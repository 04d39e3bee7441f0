package dispatcher

import (
	"context"

	"go.uber.org/fx"

	"github.com/weavebench/fanout/v1/observability"
)

// FXModule is an fx.Module that provides the connection pool and the dispatcher.
//
// The module provides:
// 1. *Pool, built from Config and closed on application stop
// 2. *Dispatcher (concrete type) for direct use
// 3. Client interface for dependency injection
//
// Usage:
//
//	app := fx.New(
//	    dispatcher.FXModule,
//	    fx.Provide(dispatcher.NewConfig),
//	    // other modules...
//	)
var FXModule = fx.Module("dispatcher",
	fx.Provide(
		NewPoolWithDI,
		NewDispatcherWithDI,
		fx.Annotate(
			func(d *Dispatcher) Client { return d },
			fx.As(new(Client)),
		),
	),
	fx.Invoke(RegisterDispatcherLifecycle),
)

// PoolParams groups the dependencies needed to create the shared pool.
type PoolParams struct {
	fx.In

	Config Config
}

// NewPoolWithDI validates the configuration and builds the shared pool.
func NewPoolWithDI(params PoolParams) (*Pool, error) {
	if err := params.Config.Validate(); err != nil {
		return nil, err
	}
	return NewPool(params.Config), nil
}

// DispatcherParams groups the dependencies needed to create a Dispatcher.
type DispatcherParams struct {
	fx.In

	Config   Config
	Pool     *Pool
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Tracer   Tracer                 `optional:"true"`
}

// NewDispatcherWithDI creates a dispatcher using dependency injection.
// Logger, Observer and Tracer are attached only when the container provides them.
//
// Example usage with fx:
//
//	app := fx.New(
//	    dispatcher.FXModule,
//	    logger.FXModule,  // Optional: provides logger
//	    metrics.FXModule, // Optional: provides observer
//	    fx.Provide(dispatcher.NewConfig),
//	)
func NewDispatcherWithDI(params DispatcherParams) *Dispatcher {
	d := NewDispatcher(params.Config, params.Pool)
	if params.Logger != nil {
		d.logger = params.Logger
	}
	if params.Observer != nil {
		d.observer = params.Observer
	}
	if params.Tracer != nil {
		d.tracer = params.Tracer
	}
	return d
}

// DispatcherLifecycleParams groups the dependencies needed for lifecycle management.
type DispatcherLifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Dispatcher *Dispatcher
}

// RegisterDispatcherLifecycle closes the shared pool when the application stops.
// Batches still in flight keep their slots until their own deadline fires.
func RegisterDispatcherLifecycle(params DispatcherLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			params.Dispatcher.logInfo(ctx, "Dispatcher started", nil, map[string]interface{}{
				"endpoint":        params.Dispatcher.endpoint,
				"max_connections": params.Dispatcher.pool.Capacity(),
			})
			return nil
		},
		OnStop: func(ctx context.Context) error {
			params.Dispatcher.logInfo(ctx, "Closing dispatcher pool", nil, nil)
			params.Dispatcher.pool.Close()
			return nil
		},
	})
}
