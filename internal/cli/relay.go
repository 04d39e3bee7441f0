package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/weavebench/fanout/v1/dispatcher"
	"github.com/weavebench/fanout/v1/logger"
	"github.com/weavebench/fanout/v1/metrics"
	"github.com/weavebench/fanout/v1/relay"
	"github.com/weavebench/fanout/v1/sink"
	"github.com/weavebench/fanout/v1/tracer"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Serve POST /parallel-search in front of Weaviate",
	Long: "Runs the parallel search relay together with the Prometheus metrics server.\n" +
		"Configuration comes from DISPATCHER_*, RELAY_*, METRICS_*, TRACER_*, SINK_KAFKA_*\n" +
		"and logger environment variables.",
	Run: func(cmd *cobra.Command, args []string) {
		fx.New(relayApp()).Run()
	},
}

func relayApp() fx.Option {
	return fx.Options(
		relayModules(),
		fx.WithLogger(func(l *logger.LoggerClient) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Zap}
		}),
	)
}

// relayModules assembles the relay service. Each package declares its own narrow
// logging and tracing interfaces, so the concrete clients are bound to them here.
func relayModules() fx.Option {
	return fx.Options(
		fx.Provide(
			logger.NewConfig,
			metrics.NewConfig,
			tracer.NewConfig,
			dispatcher.NewConfig,
			sink.NewConfig,
			relay.NewConfig,
		),
		logger.FXModule,
		metrics.FXModule,
		tracer.FXModule,
		dispatcher.FXModule,
		sink.FXModule,
		relay.FXModule,
		fx.Provide(
			func(l *logger.LoggerClient) dispatcher.Logger { return l },
			func(l *logger.LoggerClient) metrics.Logger { return l },
			func(l *logger.LoggerClient) tracer.Logger { return l },
			func(l *logger.LoggerClient) sink.Logger { return l },
			func(l *logger.LoggerClient) relay.Logger { return l },
			func(t *tracer.Tracer) dispatcher.Tracer { return t },
			func(t *tracer.Tracer) sink.Carrier { return t },
			func(t *tracer.Tracer) relay.Propagator { return t },
		),
	)
}
