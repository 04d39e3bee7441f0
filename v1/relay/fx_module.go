package relay

import (
	"context"

	"go.uber.org/fx"

	"github.com/weavebench/fanout/v1/dispatcher"
	"github.com/weavebench/fanout/v1/observability"
	"github.com/weavebench/fanout/v1/sink"
)

// FXModule provides the relay *Server and runs it with the application.
//
// It depends on dispatcher.FXModule for the Client and dispatcher.Config.
// A sink.Publisher, Logger, Observer and Propagator are used when present.
var FXModule = fx.Module("relay",
	fx.Provide(NewServerWithDI),
	fx.Invoke(RegisterRelayLifecycle),
)

// RelayParams groups the dependencies needed to create a Server.
type RelayParams struct {
	fx.In

	Config           Config
	Client           dispatcher.Client
	DispatcherConfig dispatcher.Config
	Publisher        sink.Publisher         `optional:"true"`
	Logger           Logger                 `optional:"true"`
	Observer         observability.Observer `optional:"true"`
	Propagator       Propagator             `optional:"true"`
}

// NewServerWithDI builds the server with whatever optional collaborators the
// container offers.
func NewServerWithDI(params RelayParams) *Server {
	s := NewServer(params.Config, params.Client, params.DispatcherConfig)
	if params.Publisher != nil {
		s.publisher = params.Publisher
	}
	if params.Logger != nil {
		s.logger = params.Logger
	}
	if params.Observer != nil {
		s.observer = params.Observer
	}
	if params.Propagator != nil {
		s.propagator = params.Propagator
	}
	return s
}

// RegisterRelayLifecycle starts serving on application start and drains
// in-flight requests on stop.
func RegisterRelayLifecycle(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				s.logInfo(context.Background(), "Starting parallel search relay", map[string]interface{}{
					"address": s.Addr(),
				})
				if err := s.ListenAndServe(); err != nil {
					s.logError(context.Background(), "relay server stopped", err, nil)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.logInfo(ctx, "Shutting down parallel search relay", nil)
			return s.Shutdown(ctx)
		},
	})
}
