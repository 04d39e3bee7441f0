package metrics

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Defaults applied by DefaultConfig.
const (
	DefaultMetricsAddress = ":9090"
	DefaultNamespace      = "fanout"

	// DefaultMaxMemberLabels caps distinct member label values on
	// member_latency_seconds.
	DefaultMaxMemberLabels = 64
)

// Config defines the configuration structure for the Prometheus metrics server.
type Config struct {
	// Address is where the /metrics HTTP server listens, e.g. ":9090" or
	// "127.0.0.1:9100".
	//
	// Default: ":9090"
	Address string `yaml:"address" envconfig:"METRICS_ADDRESS"`

	// EnableDefaultCollectors registers the Go runtime, process and build info
	// collectors next to the fanout metrics.
	//
	// Default: true
	EnableDefaultCollectors bool `yaml:"enable_default_collectors" envconfig:"METRICS_ENABLE_DEFAULT_COLLECTORS"`

	// Namespace prefixes every fanout metric name.
	//
	// Example:
	//   Namespace: "fanout"
	//   → fanout_batches_total, fanout_member_latency_seconds
	//
	// Default: "fanout"
	Namespace string `yaml:"namespace" envconfig:"METRICS_NAMESPACE"`

	// ServiceName is added to every metric as the constant "service" label.
	ServiceName string `yaml:"service_name" envconfig:"METRICS_SERVICE_NAME"`

	// MaxMemberLabels bounds how many distinct member names get their own
	// member_latency_seconds series. Members first seen after the cap is
	// reached are recorded under OtherMemberLabel. Non-positive values fall
	// back to the default.
	//
	// Default: 64
	MaxMemberLabels int `yaml:"max_member_labels" envconfig:"METRICS_MAX_MEMBER_LABELS"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() Config {
	return Config{
		Address:                 DefaultMetricsAddress,
		EnableDefaultCollectors: true,
		Namespace:               DefaultNamespace,
		ServiceName:             "fanout",
		MaxMemberLabels:         DefaultMaxMemberLabels,
	}
}

// NewConfig starts from DefaultConfig and applies METRICS_* environment variables.
func NewConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("metrics: load config: %w", err)
	}
	return cfg, nil
}
