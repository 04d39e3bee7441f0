package sink

import (
	"context"

	"go.uber.org/fx"

	"github.com/weavebench/fanout/v1/observability"
)

// FXModule provides a Publisher. When the configuration is disabled the
// Publisher is Discard and no broker connection is made.
//
// A Config must be supplied by the application, e.g. fx.Provide(sink.NewConfig).
var FXModule = fx.Module("sink",
	fx.Provide(NewPublisherWithDI),
)

// SinkParams groups the dependencies needed to create a Publisher.
type SinkParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    Config
	Logger    Logger                 `optional:"true"`
	Observer  observability.Observer `optional:"true"`
	Carrier   Carrier                `optional:"true"`
}

// NewPublisherWithDI builds the sink and registers its shutdown hook.
func NewPublisherWithDI(params SinkParams) (Publisher, error) {
	if err := params.Config.Validate(); err != nil {
		return nil, err
	}
	if !params.Config.Enabled {
		return Discard, nil
	}

	s, err := NewSink(params.Config, params.Logger)
	if err != nil {
		return nil, err
	}
	if params.Observer != nil {
		s.WithObserver(params.Observer)
	}
	if params.Carrier != nil {
		s.WithCarrier(params.Carrier)
	}
	RegisterSinkLifecycle(params.Lifecycle, s, params.Logger)
	return s, nil
}

// RegisterSinkLifecycle closes the sink on application shutdown.
func RegisterSinkLifecycle(lc fx.Lifecycle, s *Sink, logger Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if logger != nil {
				logger.Info("Closing Kafka result sink", nil, map[string]interface{}{
					"topic": s.Topic(),
				})
			}
			return s.Close()
		},
	})
}
