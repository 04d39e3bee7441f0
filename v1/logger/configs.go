package logger

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Log levels accepted by Config.Level.
const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// DefaultServiceName is attached to every entry when Config.ServiceName is empty.
const DefaultServiceName = "fanout"

// Config defines the logger configuration.
type Config struct {
	// Level is one of debug, info, warning or error. Anything else means info.
	Level string `yaml:"level" envconfig:"ZAP_LOGGER_LEVEL"`

	// ServiceName is added to every entry as the "service" field.
	ServiceName string `yaml:"service_name" envconfig:"LOGGER_SERVICE_NAME"`

	// EnableTracing adds trace_id and span_id from the context to entries
	// written through the *WithContext methods.
	EnableTracing bool `yaml:"enable_tracing" envconfig:"LOGGER_ENABLE_TRACING"`
}

// NewConfig reads the logger configuration from the environment.
func NewConfig() (Config, error) {
	cfg := Config{Level: Info, ServiceName: DefaultServiceName}
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("logger: load config: %w", err)
	}
	return cfg, nil
}
