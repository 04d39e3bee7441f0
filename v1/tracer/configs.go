package tracer

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config defines the tracer configuration.
type Config struct {
	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `yaml:"service_name" envconfig:"TRACER_SERVICE_NAME"`

	// AppEnv is reported as deployment.environment, e.g. "staging".
	AppEnv string `yaml:"app_env" envconfig:"TRACER_APP_ENV"`

	// EnableExport ships spans to an OTLP/HTTP collector. When false spans are
	// created and propagated but never leave the process.
	EnableExport bool `yaml:"enable_export" envconfig:"TRACER_ENABLE_EXPORT"`

	// Endpoint is the collector host:port. Empty means the OTEL_EXPORTER_OTLP_*
	// environment variables or the exporter default.
	Endpoint string `yaml:"endpoint" envconfig:"TRACER_OTLP_ENDPOINT"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure" envconfig:"TRACER_OTLP_INSECURE"`
}

// NewConfig reads TRACER_* environment variables.
func NewConfig() (Config, error) {
	cfg := Config{ServiceName: "fanout", AppEnv: "development"}
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("tracer: load config: %w", err)
	}
	return cfg, nil
}
